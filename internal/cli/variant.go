package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/variant"
)

// variantCmd represents the variant command
var variantCmd = &cobra.Command{
	Use:   "variant",
	Short: "Inspect or override the experiment variant",
	Long: `Inspect or override the post-detail experiment variant.

Resolution order: manual override in client storage, then the remote
feature flag, then control. Overrides persist in the configured storage
backend (storage.backend: file or badger to survive restarts).`,
}

var variantShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved variant and where it came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResolver(cmd, func(r *variant.Resolver) error {
			state := r.State()
			w := cmd.OutOrStdout()
			if variantJSON {
				return json.NewEncoder(w).Encode(state)
			}
			fmt.Fprintf(w, "%s (%s) via %s\n", state.Variant, state.Variant.DisplayName(), state.Origin)
			return nil
		})
	},
}

var variantSetCmd = &cobra.Command{
	Use:       "set <control|treatment|comparison>",
	Short:     "Persist a manual override",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"control", "treatment", "comparison"},
	RunE: func(cmd *cobra.Command, args []string) error {
		v := model.Variant(strings.ToLower(args[0]))
		return withResolver(cmd, func(r *variant.Resolver) error {
			if err := r.SetManualOverride(&v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Override set: %s\n", v.DisplayName())
			return nil
		})
	},
}

var variantClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the manual override",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResolver(cmd, func(r *variant.Resolver) error {
			if err := r.ClearOverride(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Override cleared, now %s\n", r.Resolve())
			return nil
		})
	},
}

var variantJSON bool

func init() {
	rootCmd.AddCommand(variantCmd)
	variantCmd.AddCommand(variantShowCmd, variantSetCmd, variantClearCmd)
	variantShowCmd.Flags().BoolVar(&variantJSON, "json", false, "print JSON")
}

func withResolver(cmd *cobra.Command, fn func(*variant.Resolver) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := contextOf(cmd)
	r, _, closers, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	r.Init(ctx)
	return fn(r)
}
