package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/itinmap/internal/llm"
)

var (
	planOpts      synthOptions
	planDays      int
	planInterests []string
	planProvider  string
	planModel     string
	planTextOut   string
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate an itinerary with an LLM and map it",
	Long: `Plan asks the configured LLM provider for a day-by-day itinerary and then
maps it exactly like synth does.

Example:
  itinmap plan --destination Phuket --days 3
  itinmap plan -d "Chiang Mai" --days 4 --interests temples,markets --provider ollama --model llama3
  itinmap plan -d Krabi --text-out krabi.md`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	addSynthFlags(planCmd, &planOpts)
	_ = planCmd.MarkFlagRequired("destination")

	planCmd.Flags().IntVar(&planDays, "days", 3, "number of days to plan")
	planCmd.Flags().StringSliceVar(&planInterests, "interests", nil, "comma-separated interests")
	planCmd.Flags().StringVar(&planProvider, "provider", "", "LLM provider (openai, anthropic, ollama); default from config")
	planCmd.Flags().StringVar(&planModel, "model", "", "LLM model name")
	planCmd.Flags().StringVar(&planTextOut, "text-out", "", "also save the generated itinerary text")
}

// errProviderUnavailable is returned when the pre-flight provider check fails
var errProviderUnavailable = errors.New("LLM provider is not available")

// generateItinerary asks for a plan only after the provider passes its availability check
func generateItinerary(ctx context.Context, gen llm.Generator, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if !gen.IsAvailable(ctx) {
		return nil, fmt.Errorf("%w: %s (check the API key and endpoint)", errProviderUnavailable, gen.Name())
	}
	resp, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate itinerary: %w", err)
	}
	return resp, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), planOpts.timeout)
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if planProvider != "" {
		cfg.LLM.Provider = planProvider
		cfg.LLM.APIKey = ""
		applyProviderEnv(cfg, os.Getenv)
	}
	if planModel != "" {
		cfg.LLM.Model = planModel
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
		applyProviderEnv(cfg, os.Getenv)
	}
	planOpts.apply(cfg)

	gen, err := llm.NewGenerator(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Generating %d-day itinerary for %s with %s...\n", planDays, planOpts.destination, gen.Name())

	resp, err := generateItinerary(ctx, gen, llm.GenerateRequest{
		Destination: planOpts.destination,
		Days:        planDays,
		Interests:   planInterests,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Generated %d days (%s, %d tokens)\n", resp.Days, resp.Model, resp.TokensUsed)

	if planTextOut != "" {
		if err := os.WriteFile(planTextOut, []byte(resp.Text+"\n"), 0o644); err != nil {
			return fmt.Errorf("write itinerary: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote itinerary: %s\n", planTextOut)
	} else if verbose {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(resp.Text))
	}

	return synthesize(ctx, cfg, resp.Text, &planOpts)
}
