package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/itinmap/internal/model"
)

// LocationExtractor turns itinerary text into day-scoped candidate locations
type LocationExtractor struct {
	matchers          []CategoryMatcher
	maxPerDay         int
	minNameLength     int
	exclusions        []*regexp.Regexp
	genericExclusions []*regexp.Regexp
	summaryPlaces     bool
}

// NewLocationExtractor creates an extractor from configuration
func NewLocationExtractor(cfg model.ExtractConfig) (*LocationExtractor, error) {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = model.DefaultConfig().Extract.Categories
	}
	matchers, err := NewMatchers(categories)
	if err != nil {
		return nil, err
	}

	maxPerDay := cfg.MaxPerDay
	if maxPerDay <= 0 {
		maxPerDay = 4
	}
	minLen := cfg.MinNameLength
	if minLen <= 0 {
		minLen = 3
	}

	return &LocationExtractor{
		matchers:          matchers,
		maxPerDay:         maxPerDay,
		minNameLength:     minLen,
		exclusions:        compileTokens(cfg.Exclusions),
		genericExclusions: compileTokens(cfg.GenericExclusions),
		summaryPlaces:     cfg.SummaryPlaces,
	}, nil
}

// compileTokens turns exclusion tokens into whole-word, plural-tolerant patterns so
// "tour" rejects "Tour Agency" and "tours" but not "Tourist Night Market".
func compileTokens(tokens []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted := strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+quoted+`(?:e?s)?\b`))
	}
	return patterns
}

// Extract parses text into days. Day k is the k-th day marker; without markers the
// whole text is day 1. The base destination is always the first candidate of day 1.
// With summary places enabled, "Places:" entries not mentioned on any activity line
// are appended to day 1 as general candidates.
func (e *LocationExtractor) Extract(text string, baseName string) []model.Day {
	baseName = strings.TrimSpace(baseName)
	segments := splitDays(text)

	days := make([]model.Day, len(segments))
	seen := make(map[string]bool)

	for i, seg := range segments {
		days[i] = model.Day{Index: seg.index, Candidates: []model.CandidateLocation{}}

		if seg.index == 1 && baseName != "" {
			days[i].Candidates = append(days[i].Candidates, model.CandidateLocation{
				RawName:  baseName,
				Query:    baseName,
				Day:      1,
				Category: model.CategoryGeneral,
				IsBase:   true,
			})
			seen[dedupeKey(baseName)] = true
		}

		accepted := 0
		for _, line := range seg.lines {
			if accepted >= e.maxPerDay {
				break
			}
			if isSummaryLine(line) {
				continue
			}

			match, ok := e.matchLine(line)
			if !ok {
				continue
			}
			name, ok := e.accept(match, baseName)
			if !ok {
				continue
			}

			query := qualify(name, baseName)
			key := dedupeKey(query)
			if seen[key] {
				continue
			}
			seen[key] = true

			days[i].Candidates = append(days[i].Candidates, model.CandidateLocation{
				RawName:    name,
				Query:      query,
				Day:        seg.index,
				Category:   match.Category,
				SourceLine: line,
			})
			accepted++
		}
	}

	if e.summaryPlaces {
		days[0].Candidates = append(days[0].Candidates, e.summaryCandidates(text, baseName, seen)...)
	}

	return days
}

// summaryCandidates returns the unseen summary places that pass the rejection rules
func (e *LocationExtractor) summaryCandidates(text, baseName string, seen map[string]bool) []model.CandidateLocation {
	var out []model.CandidateLocation
	for _, raw := range ParseSummary(text).Places {
		name, ok := e.accept(Match{Name: raw, Category: model.CategoryGeneral}, baseName)
		if !ok {
			continue
		}
		query := qualify(name, baseName)
		key := dedupeKey(query)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, model.CandidateLocation{
			RawName:  name,
			Query:    query,
			Day:      1,
			Category: model.CategoryGeneral,
		})
	}
	return out
}

// matchLine returns the first matcher hit for a line. Only one mention per line is
// ever taken.
func (e *LocationExtractor) matchLine(line string) (Match, bool) {
	for _, m := range e.matchers {
		if match, ok := m.TryMatch(line); ok {
			return match, true
		}
	}
	return Match{}, false
}

// accept applies the rejection rules in order: length, base self-reference,
// exclusion tokens, then generic-only exclusion tokens.
func (e *LocationExtractor) accept(match Match, baseName string) (string, bool) {
	name := trimPunctuation(match.Name)
	if utf8.RuneCountInString(name) < e.minNameLength {
		return "", false
	}
	if baseName != "" && strings.EqualFold(name, baseName) {
		return "", false
	}
	if containsAny(name, e.exclusions) {
		return "", false
	}
	if match.Category == model.CategoryGeneral && containsAny(name, e.genericExclusions) {
		return "", false
	}
	return name, true
}

func containsAny(name string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func trimPunctuation(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// qualify disambiguates a place name with the destination
func qualify(name, baseName string) string {
	if baseName == "" {
		return name
	}
	return name + ", " + baseName
}

func dedupeKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Candidates flattens days into one ordered candidate list
func Candidates(days []model.Day) []model.CandidateLocation {
	var out []model.CandidateLocation
	for _, d := range days {
		out = append(out, d.Candidates...)
	}
	return out
}
