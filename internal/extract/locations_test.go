package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/itinmap/internal/model"
)

func newTestExtractor(t *testing.T) *LocationExtractor {
	t.Helper()
	e, err := NewLocationExtractor(model.DefaultConfig().Extract)
	if err != nil {
		t.Fatalf("NewLocationExtractor failed: %v", err)
	}
	return e
}

func TestExtract_InlineDayMarkers(t *testing.T) {
	e := newTestExtractor(t)

	days := e.Extract("Day 1: Visit a temple in the old city. Day 2: Relax at a beach.", "Phuket")

	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}

	day1 := days[0].Candidates
	if len(day1) != 2 {
		t.Fatalf("expected 2 candidates on day 1, got %d: %+v", len(day1), day1)
	}
	if !day1[0].IsBase || day1[0].Query != "Phuket" {
		t.Errorf("expected base Phuket first, got %+v", day1[0])
	}
	if day1[1].Query != "temple, Phuket" || day1[1].Category != model.CategoryTemple {
		t.Errorf("expected temple candidate, got %+v", day1[1])
	}
	if day1[1].Day != 1 {
		t.Errorf("expected day 1, got %d", day1[1].Day)
	}

	day2 := days[1].Candidates
	if len(day2) != 1 {
		t.Fatalf("expected 1 candidate on day 2, got %d: %+v", len(day2), day2)
	}
	if day2[0].Query != "beach, Phuket" || day2[0].Category != model.CategoryBeach || day2[0].IsBase {
		t.Errorf("expected beach candidate, got %+v", day2[0])
	}
}

func TestExtract_DurationProseIsNotAMarker(t *testing.T) {
	e := newTestExtractor(t)

	days := e.Extract("Day 1: Spend a full day 2-3 hours at the Grand Palace\nDay 2: Visit Wat Pho", "Bangkok")

	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	day1 := days[0].Candidates
	if len(day1) != 2 || day1[1].RawName != "Grand Palace" || day1[1].Day != 1 {
		t.Errorf("expected Grand Palace on day 1, got %+v", day1)
	}
	day2 := days[1].Candidates
	if len(day2) != 1 || day2[0].RawName != "Wat Pho" {
		t.Errorf("expected Wat Pho on day 2, got %+v", day2)
	}
}

func TestExtract_ExclusionRejectsAgency(t *testing.T) {
	e := newTestExtractor(t)

	text := "Day 1: Book a trip with Island Tour Agency\nDay 2: Visit Patong Beach"
	days := e.Extract(text, "Phuket")

	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if len(days[0].Candidates) != 1 || !days[0].Candidates[0].IsBase {
		t.Errorf("expected only the base on day 1, got %+v", days[0].Candidates)
	}
	for _, c := range Candidates(days) {
		if strings.Contains(strings.ToLower(c.RawName), "agency") {
			t.Errorf("agency should have been rejected: %+v", c)
		}
	}
	if len(days[1].Candidates) != 1 || days[1].Candidates[0].RawName != "Patong Beach" {
		t.Errorf("expected Patong Beach on day 2, got %+v", days[1].Candidates)
	}
}

func TestExtract_NoMarkers(t *testing.T) {
	e := newTestExtractor(t)

	days := e.Extract("Just relax and enjoy the local food.", "Krabi")

	if len(days) != 1 {
		t.Fatalf("expected 1 implicit day, got %d", len(days))
	}
	if len(days[0].Candidates) != 1 {
		t.Fatalf("expected only the base, got %+v", days[0].Candidates)
	}
	base := days[0].Candidates[0]
	if !base.IsBase || base.Query != "Krabi" || base.Day != 1 {
		t.Errorf("unexpected base candidate: %+v", base)
	}
}

func TestExtract_DayCountMatchesMarkers(t *testing.T) {
	e := newTestExtractor(t)

	text := `Here is your trip.
Day 1: Arrive and check in.
Day 2: Rest day.
Day 3: Visit Wat Chalong.`

	days := e.Extract(text, "Phuket")
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	for i, d := range days {
		if d.Index != i+1 {
			t.Errorf("expected day index %d, got %d", i+1, d.Index)
		}
		if d.Candidates == nil {
			t.Errorf("day %d candidates should be empty, not nil", d.Index)
		}
	}
	if len(days[1].Candidates) != 0 {
		t.Errorf("expected empty day 2, got %+v", days[1].Candidates)
	}
	if len(days[2].Candidates) != 1 || days[2].Candidates[0].RawName != "Wat Chalong" {
		t.Errorf("expected Wat Chalong on day 3, got %+v", days[2].Candidates)
	}
}

func TestExtract_PerDayCap(t *testing.T) {
	e := newTestExtractor(t)

	text := `Day 1:
Swim at Kata Beach
Swim at Karon Beach
Swim at Patong Beach
Swim at Kamala Beach
Swim at Surin Beach
Swim at Nai Harn Beach`

	days := e.Extract(text, "Phuket")
	nonBase := 0
	for _, c := range days[0].Candidates {
		if !c.IsBase {
			nonBase++
		}
	}
	if nonBase != 4 {
		t.Errorf("expected 4 non-base candidates, got %d", nonBase)
	}
	if days[0].Candidates[4].RawName != "Kamala Beach" {
		t.Errorf("expected first-seen order, last kept is %q", days[0].Candidates[4].RawName)
	}
}

func TestExtract_DedupAcrossDays(t *testing.T) {
	e := newTestExtractor(t)

	text := `Day 1: Visit Wat Chalong
Day 2: Return to Wat Chalong
Day 3: Swim at Kata Beach`

	days := e.Extract(text, "Phuket")

	seen := make(map[string]bool)
	for _, c := range Candidates(days) {
		if seen[c.Query] {
			t.Errorf("duplicate query %q", c.Query)
		}
		seen[c.Query] = true
	}
	if len(days[1].Candidates) != 0 {
		t.Errorf("expected repeated Wat Chalong to be dropped from day 2, got %+v", days[1].Candidates)
	}
}

func TestExtract_DedupDoesNotConsumeCap(t *testing.T) {
	cfg := model.DefaultConfig().Extract
	cfg.MaxPerDay = 2
	e, err := NewLocationExtractor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	text := `Day 1: Visit Wat Chalong
Day 2:
See Wat Chalong again
Swim at Kata Beach
Shop at Chillva Market`

	days := e.Extract(text, "Phuket")
	if got := len(days[1].Candidates); got != 2 {
		t.Fatalf("expected 2 candidates on day 2, got %d: %+v", got, days[1].Candidates)
	}
	if days[1].Candidates[0].RawName != "Kata Beach" || days[1].Candidates[1].RawName != "Chillva Market" {
		t.Errorf("unexpected day 2 candidates: %+v", days[1].Candidates)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	e := newTestExtractor(t)

	text := `**Day 1:** Visit Wat Pho and the Grand Palace
- Dinner at Blue Elephant
**Day 2:** Take a longtail boat to Koh Phi Phi
Primary location: Bangkok
Places: Wat Pho, Koh Phi Phi`

	first := e.Extract(text, "Bangkok")
	second := e.Extract(text, "Bangkok")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestExtract_RejectionRules(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		line string
	}{
		{"base self reference", "Arrive at Phuket"},
		{"too short", "Take a boat to Ko"},
		{"generic restaurant", "Dinner at Blue Elephant Restaurant"},
		{"nightclub", "Party at Illuzion Nightclub"},
		{"office", "Pick up tickets at the TAT Office"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := e.Extract(tt.line, "Phuket")
			if len(days[0].Candidates) != 1 {
				t.Errorf("expected only the base for %q, got %+v", tt.line, days[0].Candidates)
			}
		})
	}
}

func TestExtract_ExclusionIsWholeWord(t *testing.T) {
	e := newTestExtractor(t)

	days := e.Extract("Browse the Tourist Night Market", "Phuket")
	if len(days[0].Candidates) != 2 {
		t.Fatalf("expected market to be kept, got %+v", days[0].Candidates)
	}
	if got := days[0].Candidates[1].RawName; got != "Tourist Night Market" {
		t.Errorf("expected Tourist Night Market, got %q", got)
	}
}

func TestExtract_SummaryLinesIgnored(t *testing.T) {
	e := newTestExtractor(t)

	text := `Day 1: Relax at the hotel pool
Places: Wat Chalong, Big Buddha
Hotels: Kata Rocks`

	days := e.Extract(text, "Phuket")
	for _, c := range Candidates(days) {
		if strings.Contains(c.SourceLine, "Places:") || strings.Contains(c.SourceLine, "Hotels:") {
			t.Errorf("summary line was matched: %+v", c)
		}
	}
}

func TestExtract_SummaryPlaces(t *testing.T) {
	text := `Day 1: Visit Wat Chalong
Day 2: Swim at Kata Beach

Primary location: Phuket
Places: Wat Chalong, Big Buddha, Old Town Restaurant, Phuket, Kata Beach, Old Phuket Town`

	tests := []struct {
		name    string
		enabled bool
		day1    []string
	}{
		{"disabled", false, []string{"Phuket", "Wat Chalong, Phuket"}},
		{"enabled", true, []string{"Phuket", "Wat Chalong, Phuket", "Big Buddha, Phuket", "Old Phuket Town, Phuket"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig().Extract
			cfg.SummaryPlaces = tt.enabled
			e, err := NewLocationExtractor(cfg)
			if err != nil {
				t.Fatal(err)
			}

			days := e.Extract(text, "Phuket")
			if len(days) != 2 {
				t.Fatalf("expected 2 days, got %d", len(days))
			}

			var got []string
			for _, c := range days[0].Candidates {
				got = append(got, c.Query)
			}
			if !reflect.DeepEqual(got, tt.day1) {
				t.Errorf("day 1 queries = %q, want %q", got, tt.day1)
			}
			for _, c := range days[0].Candidates[2:] {
				if c.Category != model.CategoryGeneral || c.Day != 1 || c.IsBase {
					t.Errorf("summary candidate should be a general day 1 stop: %+v", c)
				}
			}
			if len(days[1].Candidates) != 1 || days[1].Candidates[0].RawName != "Kata Beach" {
				t.Errorf("expected only Kata Beach on day 2, got %+v", days[1].Candidates)
			}
		})
	}
}

func TestExtract_EmptyBase(t *testing.T) {
	e := newTestExtractor(t)

	days := e.Extract("Day 1: Visit Wat Arun", "")
	if len(days[0].Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %+v", days[0].Candidates)
	}
	c := days[0].Candidates[0]
	if c.IsBase || c.Query != "Wat Arun" {
		t.Errorf("expected unqualified Wat Arun, got %+v", c)
	}
}

func TestNewLocationExtractor_UnknownCategory(t *testing.T) {
	cfg := model.DefaultConfig().Extract
	cfg.Categories = []model.Category{"volcano"}
	if _, err := NewLocationExtractor(cfg); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestSplitDays_MarkdownHeaders(t *testing.T) {
	text := "Intro line\n### Day 1\nVisit Wat Pho\n\n### Day 2 - Beaches\nSwim at Kata Beach\n"
	segs := splitDays(text)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if len(segs[0].lines) != 1 || segs[0].lines[0] != "Visit Wat Pho" {
		t.Errorf("unexpected day 1 lines: %q", segs[0].lines)
	}
	if len(segs[1].lines) != 2 || segs[1].lines[0] != "Beaches" {
		t.Errorf("unexpected day 2 lines: %q", segs[1].lines)
	}
}

func TestCountDays(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Day 1: Visit a temple. Day 2: Relax at a beach.", 2},
		{"**Day 1:** arrive\n**Day 2:** leave\n**Day 3:** home", 3},
		{"Just relax and enjoy the local food.", 0},
		{"Day 1: Spend a full day 2-3 hours at the Grand Palace\nDay 2: Visit Wat Pho", 2},
		{"Day 1: Arrive. Day 2 - Beaches. Day 3: Home", 3},
		{"It takes a day 2: bring water", 0},
		{"Plan for day 2-3 of the trip.", 0},
	}
	for _, tt := range tests {
		if got := CountDays(tt.text); got != tt.want {
			t.Errorf("CountDays(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
