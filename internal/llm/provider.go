package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/itinmap/internal/extract"
	"github.com/ppiankov/itinmap/internal/model"
)

// ErrNoDayMarkers is returned when generated text cannot be split into days
var ErrNoDayMarkers = errors.New("generated itinerary has no day markers")

// Generator writes itinerary text for a destination
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate produces day-marked itinerary text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest describes the trip to plan
type GenerateRequest struct {
	Destination string
	Days        int
	Interests   []string

	// Prompt overrides the built-in prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// GenerateResponse is the generated itinerary
type GenerateResponse struct {
	Text       string
	Days       int // Day markers found in Text
	Model      string
	TokensUsed int
}

// Config holds generator configuration
type Config struct {
	Provider  string // "openai", "anthropic", "ollama", ""
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
	HTTP      model.HTTPConfig
}

// ConfigFromModel converts the file configuration
func ConfigFromModel(cfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
		HTTP:      httpCfg,
	}
}

const systemPrompt = "You are a travel planner. You write concise day-by-day itineraries that name real, specific places."

// BuildPrompt constructs the itinerary prompt. The output contract (one "Day N:" header
// per day, one activity per line, a closing summary block) is what the location
// extractor parses.
func BuildPrompt(req GenerateRequest) string {
	days := req.Days
	if days <= 0 {
		days = 3
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip to %s.\n", days, req.Destination)
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "The traveller is interested in: %s.\n", strings.Join(req.Interests, ", "))
	}
	b.WriteString(`
FORMAT RULES:
1. Start each day with a line "Day N:" (N = 1, 2, ...). Write exactly `)
	fmt.Fprintf(&b, "%d", days)
	b.WriteString(` days.
2. Put one activity per line, and name the specific place (e.g. "Visit Wat Chalong", "Swim at Kata Beach").
3. Do not recommend tour agencies, travel offices or nightclubs.
4. End with exactly these three lines:
Primary location: <main city or area>
Places: <comma-separated list of every place you named>
Hotels: <comma-separated list of 2-3 suggested hotels>
`)
	return b.String()
}

// finish validates generated text and counts its days
func finish(text string) (string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, errors.New("empty response")
	}
	n := extract.CountDays(text)
	if n == 0 {
		return "", 0, ErrNoDayMarkers
	}
	return text, n, nil
}

func resolveModel(req, cfg, fallback string) string {
	if req != "" {
		return req
	}
	if cfg != "" {
		return cfg
	}
	return fallback
}

func resolveMaxTokens(req, cfg int) int {
	if req > 0 {
		return req
	}
	if cfg > 0 {
		return cfg
	}
	return 1500
}
