package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/itinmap/internal/extract"
	"github.com/ppiankov/itinmap/internal/model"
	"github.com/ppiankov/itinmap/internal/pipeline"
	"github.com/ppiankov/itinmap/internal/util"
)

// synthOptions are the flags shared by synth and plan
type synthOptions struct {
	destination string
	outHTML     string
	outJSON     string
	optimizer   string
	region      string
	maxPerDay   int
	noPhotos    bool
	timeout     time.Duration
}

var synthOpts synthOptions

// synthCmd represents the synth command
var synthCmd = &cobra.Command{
	Use:   "synth [file|-|url]",
	Short: "Render an itinerary as a day-by-day map",
	Long: `Synth reads itinerary text and:
- Splits it into days on "Day N" markers
- Extracts up to --max-per-day place mentions per day
- Resolves each place through the Google Places API
- Orders each day's stops and draws the route
- Writes an HTML map (and optionally the resolved locations as JSON)

The destination defaults to the "Primary location:" line of the text.
Reads stdin when no argument (or "-") is given.

Example:
  itinmap synth trip.md --destination Phuket
  cat trip.md | itinmap synth --destination "Chiang Mai" --out cm.html --json cm.json
  itinmap synth https://example.com/trip.txt -d Krabi --optimizer google`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)
	addSynthFlags(synthCmd, &synthOpts)
}

func addSynthFlags(cmd *cobra.Command, o *synthOptions) {
	cmd.Flags().StringVarP(&o.destination, "destination", "d", "", "base destination used to qualify place names")
	cmd.Flags().StringVarP(&o.outHTML, "out", "o", "map.html", "output HTML map path")
	cmd.Flags().StringVar(&o.outJSON, "json", "", "output JSON path for resolved locations (optional)")
	cmd.Flags().StringVar(&o.optimizer, "optimizer", "", "route optimizer (none, local, google)")
	cmd.Flags().StringVar(&o.region, "region", "", "ccTLD region bias for place search (e.g. th)")
	cmd.Flags().IntVar(&o.maxPerDay, "max-per-day", 0, "max places extracted per day")
	cmd.Flags().BoolVar(&o.noPhotos, "no-photos", false, "skip place photo lookups")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 2*time.Minute, "overall timeout")
}

// apply overrides config with explicitly set flags
func (o *synthOptions) apply(cfg *model.Config) {
	if o.optimizer != "" {
		cfg.Route.Optimizer = o.optimizer
	}
	if o.region != "" {
		cfg.Places.Region = o.region
	}
	if o.maxPerDay > 0 {
		cfg.Extract.MaxPerDay = o.maxPerDay
	}
	if o.noPhotos {
		cfg.Places.Photos = false
	}
}

func runSynth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), synthOpts.timeout)
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	synthOpts.apply(cfg)

	ref := "-"
	if len(args) == 1 {
		ref = args[0]
	}
	loader := pipeline.NewLoader(util.NewHTTPClient(cfg.Places.Timeout, cfg.HTTP), cfg.HTTP.MaxBodyBytes)
	src, err := loader.Load(ctx, ref)
	if err != nil {
		return fmt.Errorf("load itinerary: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d bytes from %s\n", len(src.Text), src.Origin)
	}

	return synthesize(ctx, cfg, src.Text, &synthOpts)
}

// synthesize runs the pipeline on text and writes the outputs
func synthesize(ctx context.Context, cfg *model.Config, text string, o *synthOptions) error {
	destination := strings.TrimSpace(o.destination)
	if destination == "" {
		destination = extract.ParseSummary(text).Primary
	}
	if destination == "" {
		return errors.New("no destination: pass --destination or include a \"Primary location:\" line")
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Synthesizing map for %s...\n", destination)
	}

	result, err := p.Synthesize(ctx, text, destination)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}
	if !result.BaseResolved {
		return fmt.Errorf("destination %q could not be resolved; check the name and your GOOGLE_MAPS_API_KEY", destination)
	}

	candidates := len(extract.Candidates(result.Days))
	fmt.Fprintf(os.Stderr, "✓ Extracted %d places across %d days\n", candidates, len(result.Days))
	fmt.Fprintf(os.Stderr, "✓ Resolved %d/%d places\n", len(result.Locations), candidates)
	logger.Debug("synthesis complete",
		zap.String("artifact", result.Artifact.ID),
		zap.Int("routes", len(result.Artifact.Routes)))

	if err := writeFile(o.outHTML, func(w io.Writer) error {
		return writePage(w, destination, result.Artifact)
	}); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote map: %s\n", o.outHTML)

	if o.outJSON != "" {
		if err := writeFile(o.outJSON, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote locations: %s\n", o.outJSON)
	}

	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return write(f)
}

// writePage wraps the map fragment in a standalone document
func writePage(w io.Writer, title string, artifact model.MapArtifact) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	b.WriteString(artifact.Markup)
	if len(artifact.BookingLinks) > 0 {
		b.WriteString("\n<h3>Hotels</h3>\n<ul>\n")
		for _, l := range artifact.BookingLinks {
			fmt.Fprintf(&b, "<li><a href=\"%s\" target=\"_blank\" rel=\"noopener\">%s</a></li>\n",
				html.EscapeString(l.URL), html.EscapeString(l.Name))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body>\n</html>\n")

	_, err := io.WriteString(w, b.String())
	return err
}
