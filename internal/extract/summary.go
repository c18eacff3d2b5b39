package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/itinmap/internal/model"
)

// Summary is the optional trailing block a generator may append:
//
//	Primary location: Phuket
//	Places: Wat Chalong, Patong Beach
//	Hotels: Kata Rocks, The Slate
type Summary struct {
	Primary string
	Places  []string
	Hotels  []string
}

var (
	primaryPattern = regexp.MustCompile(`(?im)^[ \t*\-]*primary location[ \t*]*:[ \t*]*(.+)$`)
	placesPattern  = regexp.MustCompile(`(?im)^[ \t*\-]*places[ \t*]*:[ \t*]*(.+)$`)
	hotelsPattern  = regexp.MustCompile(`(?im)^[ \t*\-]*hotels[ \t*]*:[ \t*]*(.+)$`)
)

// ParseSummary reads the summary block. Missing lines leave fields empty.
func ParseSummary(text string) Summary {
	var s Summary
	if m := primaryPattern.FindStringSubmatch(text); m != nil {
		s.Primary = trimPunctuation(m[1])
	}
	if m := placesPattern.FindStringSubmatch(text); m != nil {
		s.Places = splitList(m[1])
	}
	if m := hotelsPattern.FindStringSubmatch(text); m != nil {
		s.Hotels = splitList(m[1])
	}
	return s
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = trimPunctuation(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BookingLinks builds map search links for hotels
func BookingLinks(hotels []string) []model.BookingLink {
	links := make([]model.BookingLink, 0, len(hotels))
	for _, h := range hotels {
		links = append(links, model.BookingLink{
			Name: h,
			URL:  model.BookingURL(h),
		})
	}
	return links
}
