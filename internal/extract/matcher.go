package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/itinmap/internal/model"
)

// Match is a place mention found on one line
type Match struct {
	Name     string
	Category model.Category
}

// CategoryMatcher tries to pull one place mention out of a line
type CategoryMatcher interface {
	// Category returns the tag this matcher assigns
	Category() model.Category

	// TryMatch returns the first mention on the line, if any
	TryMatch(line string) (Match, bool)
}

// categoryKeywords maps each category to its trigger words. Lowercase keywords match
// case-insensitively and tolerate a plural suffix; capitalized keywords are local
// proper-noun prefixes ("Wat Pho", "Koh Samui") and match case-sensitively.
var categoryKeywords = map[model.Category][]string{
	model.CategoryTemple:    {"temple", "shrine", "pagoda", "stupa", "monastery", "Wat", "Chedi"},
	model.CategoryMarket:    {"market", "bazaar"},
	model.CategoryBeach:     {"beach", "bay"},
	model.CategoryWaterfall: {"waterfall", "cascade", "Falls", "Nam Tok"},
	model.CategoryMuseum:    {"museum", "gallery"},
	model.CategoryIsland:    {"island", "islet", "archipelago", "Koh", "Ko"},
	model.CategoryCave:      {"cave", "grotto", "Tham"},
	model.CategoryPalace:    {"palace"},
	model.CategoryMountain:  {"mountain", "peak", "viewpoint", "hill", "Mount", "Doi"},
	model.CategoryPark:      {"park", "garden", "sanctuary", "zoo"},
	model.CategoryHotel:     {"hotel", "resort", "hostel", "guesthouse"},
}

// leadingStopwords are capitalized words that open sentences but are never part of a
// place name ("Visit Wat Pho" -> "Wat Pho").
var leadingStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "visit": true, "explore": true, "relax": true,
	"head": true, "go": true, "see": true, "stop": true, "enjoy": true, "take": true,
	"then": true, "after": true, "before": true, "morning": true, "afternoon": true,
	"evening": true, "lunch": true, "dinner": true, "breakfast": true,
	"spend": true, "discover": true, "check": true, "stay": true, "hike": true,
	"climb": true, "walk": true, "return": true, "start": true, "finally": true,
	"next": true, "in": true, "at": true, "on": true, "to": true, "wander": true,
	"stroll": true, "shop": true, "swim": true, "watch": true, "catch": true,
	"ride": true, "drive": true, "arrive": true, "depart": true, "continue": true,
	"optional": true, "tip": true, "note": true, "day": true, "end": true,
	"overnight": true, "and": true, "or": true, "from": true, "via": true,
}

// word is a token of a line with its byte offsets
type word struct {
	text       string
	start, end int
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’\-]*`)

func tokenize(line string) []word {
	locs := wordPattern.FindAllStringIndex(line, -1)
	words := make([]word, len(locs))
	for i, loc := range locs {
		words[i] = word{text: line[loc[0]:loc[1]], start: loc[0], end: loc[1]}
	}
	return words
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// adjacent reports whether only blanks separate words a and b
func adjacent(line string, a, b word) bool {
	return strings.TrimSpace(line[a.end:b.start]) == ""
}

// KeywordMatcher matches a category keyword and grows it into the surrounding
// capitalized name, e.g. "the Grand Palace", "Temple of the Emerald Buddha".
type KeywordMatcher struct {
	category model.Category
	pattern  *regexp.Regexp
}

// NewKeywordMatcher builds a matcher for category from its keywords
func NewKeywordMatcher(category model.Category, keywords []string) *KeywordMatcher {
	var alts []string
	for _, kw := range keywords {
		quoted := strings.ReplaceAll(regexp.QuoteMeta(kw), " ", `\s+`)
		if isCapitalized(kw) {
			alts = append(alts, quoted)
		} else {
			alts = append(alts, "(?i:"+quoted+"(?:e?s)?)")
		}
	}
	pattern := regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
	return &KeywordMatcher{category: category, pattern: pattern}
}

// Category returns the tag this matcher assigns
func (m *KeywordMatcher) Category() model.Category {
	return m.category
}

// TryMatch returns the first keyword mention on the line expanded to its name
func (m *KeywordMatcher) TryMatch(line string) (Match, bool) {
	loc := m.pattern.FindStringIndex(line)
	if loc == nil {
		return Match{}, false
	}

	words := tokenize(line)
	first, last := -1, -1
	for i, w := range words {
		if w.start >= loc[0] && w.end <= loc[1] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return Match{}, false
	}

	// Grow left over an adjacent capitalized run, then drop sentence openers
	keyword := first
	for first > 0 {
		prev := words[first-1]
		if !isCapitalized(prev.text) || !adjacent(line, prev, words[first]) {
			break
		}
		first--
	}
	for first < keyword && leadingStopwords[strings.ToLower(words[first].text)] {
		first++
	}

	last = growRight(line, words, last)

	return Match{
		Name:     line[words[first].start:words[last].end],
		Category: m.category,
	}, true
}

// growRight extends a name over following capitalized words and an
// "of [the] X Y" tail. It returns the index of the last word in the name.
func growRight(line string, words []word, last int) int {
	for last+1 < len(words) {
		next := words[last+1]
		if !adjacent(line, words[last], next) {
			break
		}
		if isCapitalized(next.text) && !leadingStopwords[strings.ToLower(next.text)] {
			last++
			continue
		}
		if next.text == "of" {
			j := last + 2
			if j < len(words) && strings.EqualFold(words[j].text, "the") && adjacent(line, words[j-1], words[j]) {
				j++
			}
			if j < len(words) && isCapitalized(words[j].text) && adjacent(line, words[j-1], words[j]) {
				last = j
				continue
			}
		}
		break
	}
	return last
}

// GenericMatcher is the fallback: a visit-style verb followed by a capitalized name
type GenericMatcher struct {
	pattern *regexp.Regexp
}

// NewGenericMatcher builds the fallback matcher
func NewGenericMatcher() *GenericMatcher {
	return &GenericMatcher{
		pattern: regexp.MustCompile(`(?i)\b(?:visit|visiting|explore|exploring|discover|head\s+to|stop\s+at|mentioned\s+at|wander\s+through|stroll\s+through|at)\s+(?:the\s+)?`),
	}
}

// Category returns the general tag
func (m *GenericMatcher) Category() model.Category {
	return model.CategoryGeneral
}

// TryMatch returns the first capitalized name that follows a trigger verb
func (m *GenericMatcher) TryMatch(line string) (Match, bool) {
	words := tokenize(line)
	for _, loc := range m.pattern.FindAllStringIndex(line, -1) {
		start := -1
		for i, w := range words {
			if w.start >= loc[1] {
				start = i
				break
			}
		}
		if start < 0 || words[start].start != loc[1] {
			continue
		}
		if !isCapitalized(words[start].text) || leadingStopwords[strings.ToLower(words[start].text)] {
			continue
		}
		last := growRight(line, words, start)
		return Match{
			Name:     line[words[start].start:words[last].end],
			Category: model.CategoryGeneral,
		}, true
	}
	return Match{}, false
}

// NewMatchers builds the ordered matcher list for the given category priority.
// The generic matcher is always appended last.
func NewMatchers(categories []model.Category) ([]CategoryMatcher, error) {
	matchers := make([]CategoryMatcher, 0, len(categories)+1)
	seen := make(map[model.Category]bool)
	for _, c := range categories {
		if c == model.CategoryGeneral || seen[c] {
			continue
		}
		keywords, ok := categoryKeywords[c]
		if !ok {
			return nil, fmt.Errorf("unknown category: %s", c)
		}
		seen[c] = true
		matchers = append(matchers, NewKeywordMatcher(c, keywords))
	}
	matchers = append(matchers, NewGenericMatcher())
	return matchers, nil
}
