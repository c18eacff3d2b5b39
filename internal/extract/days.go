package extract

import (
	"regexp"
	"strings"
)

// dayMarker matches "Day N" either at the start of a line (markdown decoration allowed)
// or inline after a sentence end, e.g. "... city. Day 2: Relax". Inline markers need a
// capital "Day" and a separator, and dashes count only when followed by a space, so
// prose like "a full day 2-3 hours" is not a marker. Group 1 holds an inline marker
// without its sentence-ending punctuation.
var dayMarker = regexp.MustCompile(`(?m)^[ \t>*#_\-]*(?i:day)[ \t]+\d{1,3}\b[ \t*_]*(?:[:.)]|[\-–—](?:[ \t]|$))?[ \t*_]*|[.!?][ \t]+(Day[ \t]+\d{1,3}[ \t*_]*(?::|[\-–—](?:[ \t]|$))[ \t*_]*)`)

// markerSpans returns the [start, end) byte ranges of the day markers in text
func markerSpans(text string) [][2]int {
	matches := dayMarker.FindAllStringSubmatchIndex(text, -1)
	spans := make([][2]int, 0, len(matches))
	for _, m := range matches {
		start := m[0]
		if m[2] >= 0 {
			start = m[2]
		}
		spans = append(spans, [2]int{start, m[1]})
	}
	return spans
}

// summaryLine matches the trailing summary block some generators append
var summaryLine = regexp.MustCompile(`(?i)^[ \t*\-]*(primary location|places|hotels)[ \t*]*:`)

// segment is the text attributed to one day
type segment struct {
	index int
	lines []string
}

// splitDays splits itinerary text into day segments. A segment runs from the end of
// its marker to the start of the next marker. Text before the first marker is
// preamble and is dropped. Without any marker the whole text is day 1.
func splitDays(text string) []segment {
	locs := markerSpans(text)
	if len(locs) == 0 {
		return []segment{{index: 1, lines: splitLines(text)}}
	}

	segments := make([]segment, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, segment{
			index: i + 1,
			lines: splitLines(text[loc[1]:end]),
		})
	}
	return segments
}

// splitLines returns the non-empty, trimmed lines of s
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// isSummaryLine reports whether line belongs to a "Places:/Hotels:" summary block
func isSummaryLine(line string) bool {
	return summaryLine.MatchString(line)
}

// CountDays returns the number of day markers in text
func CountDays(text string) int {
	return len(markerSpans(text))
}
