package model

import "time"

// Config is the complete itinmap configuration
type Config struct {
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Places  PlacesConfig  `yaml:"places" mapstructure:"places"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Route   RouteConfig   `yaml:"route" mapstructure:"route"`
	Render  RenderConfig  `yaml:"render" mapstructure:"render"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
}

// ExtractConfig parameterizes the location extractor
type ExtractConfig struct {
	MaxPerDay         int        `yaml:"max_per_day" mapstructure:"max_per_day"`             // Non-base candidates kept per day
	MinNameLength     int        `yaml:"min_name_length" mapstructure:"min_name_length"`     // After trimming punctuation
	Categories        []Category `yaml:"categories" mapstructure:"categories"`               // Matcher priority order
	Exclusions        []string   `yaml:"exclusions" mapstructure:"exclusions"`               // Reject any match containing these
	GenericExclusions []string   `yaml:"generic_exclusions" mapstructure:"generic_exclusions"` // Extra rejects for general matches
	SummaryPlaces     bool       `yaml:"summary_places" mapstructure:"summary_places"`         // Add "Places:" summary entries to day 1
}

// PlacesConfig configures the place and photo lookup collaborators
type PlacesConfig struct {
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Region            string        `yaml:"region" mapstructure:"region"` // ccTLD region bias, e.g. "th"
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	PhotoMaxWidth     int           `yaml:"photo_max_width" mapstructure:"photo_max_width"`
	Photos            bool          `yaml:"photos" mapstructure:"photos"`
}

// CacheConfig controls how long resolved places are kept
type CacheConfig struct {
	Scope string        `yaml:"scope" mapstructure:"scope"` // "request" or "shared"
	TTL   time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir   string        `yaml:"dir,omitempty" mapstructure:"dir"` // Disk layer for shared scope (optional)
}

// RouteConfig configures per-day route assembly
type RouteConfig struct {
	Optimizer string        `yaml:"optimizer" mapstructure:"optimizer"` // "none", "local", "google"
	APIKey    string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Mode      string        `yaml:"mode" mapstructure:"mode"` // driving, walking, bicycling, transit
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Palette   []string      `yaml:"palette" mapstructure:"palette"`
}

// RenderConfig configures the map markup
type RenderConfig struct {
	DefaultCenter LatLng `yaml:"default_center" mapstructure:"default_center"`
	Zoom          int    `yaml:"zoom" mapstructure:"zoom"`
	TileURL       string `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution   string `yaml:"attribution" mapstructure:"attribution"`
	Height        string `yaml:"height" mapstructure:"height"`
}

// LLMConfig configures the optional itinerary text generator
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // "openai", "ollama", ""
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// HTTPConfig is shared by every outbound API client
type HTTPConfig struct {
	HTTPProxy    string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"` // Itinerary downloads
}

// DefaultPalette is the cyclic per-day color set
var DefaultPalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#42d4f4", "#f032e6", "#9a6324",
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			MaxPerDay:         4,
			MinNameLength:     3,
			Categories:        Categories()[:len(Categories())-1],
			Exclusions:        []string{"agency", "tour", "office", "nightclub"},
			GenericExclusions: []string{"restaurant", "cafe", "bar", "airport", "station", "hospital"},
		},
		Places: PlacesConfig{
			BaseURL:           "https://maps.googleapis.com/maps/api/place",
			Region:            "th",
			Timeout:           10 * time.Second,
			Workers:           4,
			RequestsPerSecond: 10,
			Burst:             5,
			MaxRetries:        2,
			PhotoMaxWidth:     800,
			Photos:            true,
		},
		Cache: CacheConfig{
			Scope: "request",
			TTL:   24 * time.Hour,
		},
		Route: RouteConfig{
			Optimizer: "local",
			BaseURL:   "https://maps.googleapis.com/maps/api/directions/json",
			Mode:      "driving",
			Timeout:   10 * time.Second,
			Palette:   append([]string(nil), DefaultPalette...),
		},
		Render: RenderConfig{
			DefaultCenter: LatLng{Lat: 13.7563, Lng: 100.5018},
			Zoom:          12,
			TileURL:       "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution:   "&copy; OpenStreetMap contributors",
			Height:        "500px",
		},
		LLM: LLMConfig{
			Timeout:   60 * time.Second,
			MaxTokens: 1500,
		},
		HTTP: HTTPConfig{
			UserAgent:    "itinmap/0.1 (+https://github.com/ppiankov/itinmap)",
			MaxBodyBytes: 2 << 20,
		},
	}
}
