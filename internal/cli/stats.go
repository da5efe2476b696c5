package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/feedlens/internal/audience"
	"github.com/ppiankov/feedlens/internal/divergence"
	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/page"
)

var (
	statsJSON       bool
	viewersFlag     string
	commentersFlag  string
	compareJSONFlag bool
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <subject>...",
	Short: "Generate synthetic audience statistics for subjects",
	Long: `Stats generates the synthetic audience statistics the treatment and
comparison arms render, together with the commenter/viewer divergence report.

Statistics are memoized per subject for the lifetime of the command, so a
subject listed twice prints the same numbers.

Example:
  feedlens stats post-77
  feedlens stats post-1 post-2 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare commenter and viewer attitude breakdowns",
	Long: `Compare computes divergence between two support/neutral/oppose breakdowns.

Example:
  feedlens compare --viewers 62/15/23 --commenters 15/10/75`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(compareCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")

	compareCmd.Flags().StringVar(&viewersFlag, "viewers", "", "viewer attitudes as support/neutral/oppose")
	compareCmd.Flags().StringVar(&commentersFlag, "commenters", "", "commenter attitudes as support/neutral/oppose")
	compareCmd.Flags().BoolVar(&compareJSONFlag, "json", false, "print JSON")
	_ = compareCmd.MarkFlagRequired("viewers")
	_ = compareCmd.MarkFlagRequired("commenters")
}

type statsOutput struct {
	Subject string                   `json:"subject"`
	Stats   model.AudienceStatistics `json:"stats"`
	Report  divergence.Report        `json:"report"`
}

func runStats(cmd *cobra.Command, args []string) error {
	src := audience.NewMockSource(audience.WithLogger(logger))
	defer func() { _ = src.Close() }()

	ctx := contextOf(cmd)
	out := make([]statsOutput, 0, len(args))
	for _, subject := range args {
		stats, err := src.GetAudienceStats(ctx, subject)
		if err != nil {
			return fmt.Errorf("stats for %s: %w", subject, err)
		}
		out = append(out, statsOutput{
			Subject: subject,
			Stats:   stats,
			Report:  divergence.Analyze(stats.CommenterAttitudes, stats.Attitudes),
		})
	}

	w := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for i, o := range out {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printStats(w, o)
	}
	return nil
}

func printStats(w io.Writer, o statsOutput) {
	s := o.Stats
	fmt.Fprintf(w, "%s: %d people viewed this post\n", o.Subject, s.ViewerCount)
	fmt.Fprintf(w, "  Political   liberal %.0f%%  moderate %.0f%%  conservative %.0f%%\n",
		s.Political.Liberal, s.Political.Moderate, s.Political.Conservative)
	fmt.Fprintf(w, "  Viewers     support %.0f%%  neutral %.0f%%  oppose %.0f%%\n",
		s.Attitudes.Support, s.Attitudes.Neutral, s.Attitudes.Oppose)
	fmt.Fprintf(w, "  Commenters  support %.0f%%  neutral %.0f%%  oppose %.0f%%\n",
		s.CommenterAttitudes.Support, s.CommenterAttitudes.Neutral, s.CommenterAttitudes.Oppose)
	printReport(w, o.Report)
}

func printReport(w io.Writer, r divergence.Report) {
	fmt.Fprintf(w, "  Divergence Level: %d%% (%s)\n", r.Percent, r.Level)
	if r.LeanNote != "" {
		fmt.Fprintf(w, "  (%s)\n", r.LeanNote)
	}
	fmt.Fprintf(w, "  %s\n", r.Warning)
	if r.Comparison.AreDifferent {
		fmt.Fprintf(w, "  %s\n", page.DifferentViewsNote)
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	viewers, err := parseAttitudes(viewersFlag)
	if err != nil {
		return fmt.Errorf("--viewers: %w", err)
	}
	commenters, err := parseAttitudes(commentersFlag)
	if err != nil {
		return fmt.Errorf("--commenters: %w", err)
	}

	report := divergence.Analyze(commenters, viewers)
	w := cmd.OutOrStdout()
	if compareJSONFlag {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(w, report)
	return nil
}

// parseAttitudes reads "support/neutral/oppose"; the parts must sum to 100
func parseAttitudes(s string) (model.AttitudeBreakdown, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return model.AttitudeBreakdown{}, fmt.Errorf("expected support/neutral/oppose, got %q", s)
	}

	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.AttitudeBreakdown{}, fmt.Errorf("parse %q: %w", p, err)
		}
		if v < 0 || v > 100 {
			return model.AttitudeBreakdown{}, fmt.Errorf("%v is outside 0-100", v)
		}
		vals[i] = v
	}

	b := model.AttitudeBreakdown{Support: vals[0], Neutral: vals[1], Oppose: vals[2]}
	if !model.ValidBreakdown(b) {
		return model.AttitudeBreakdown{}, fmt.Errorf("percentages must sum to 100, got %v", vals[0]+vals[1]+vals[2])
	}
	return b, nil
}
