package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/ecowash/internal/config"
	"github.com/aristath/ecowash/internal/di"
	"github.com/aristath/ecowash/internal/modules/calculations"
	"github.com/aristath/ecowash/internal/modules/correction"
	"github.com/aristath/ecowash/internal/modules/notification"
	"github.com/aristath/ecowash/internal/modules/recipe"
	"github.com/aristath/ecowash/internal/modules/tolerance"
	"github.com/aristath/ecowash/internal/version"
	"github.com/aristath/ecowash/pkg/logger"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	recipeDir string
	logLevel  string
	timeout   time.Duration
}

// fixedTolerance replaces the tolerance file when --tolerance is given.
type fixedTolerance float64

func (f fixedTolerance) Tolerance(ctx context.Context) float64 {
	return float64(f)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "ecowash",
		Short:        "Solvent blend correction from density and refractive index readings",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.recipeDir, "recipe-dir", "", "recipe directory (defaults to RECIPE_DIR or <data dir>/recette)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "time limit for loading recipes")

	root.AddCommand(
		newCalculateCmd(opts),
		newRecipesCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newCalculateCmd(opts *rootOptions) *cobra.Command {
	var (
		recipeName string
		density    float64
		refraction float64
		tol        float64
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the additive volumes for one measurement",
		Example: `  ecowash calculate --recipe "EcoWash - 1B" --density 0.8512 --refraction 1.4411
  ecowash calculate --recipe "EcoWash - 1B" --density 0.8512 --refraction 1.4411 --tolerance 0.01 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var override calculations.ToleranceProvider
			if cmd.Flags().Changed("tolerance") {
				override = fixedTolerance(tol)
			}
			service, err := newService(opts, override, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			calc, err := service.Calculate(ctx, calculations.Request{
				Recipe: recipeName,
				Measurement: correction.Measurement{
					Density:         density,
					RefractiveIndex: refraction,
				},
			})
			if err != nil {
				return err
			}
			result := calc.Result

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipeName, "recipe", "", "recipe name (file name without extension)")
	cmd.Flags().Float64Var(&density, "density", 0, "measured density")
	cmd.Flags().Float64Var(&refraction, "refraction", 0, "measured refractive index")
	cmd.Flags().Float64Var(&tol, "tolerance", tolerance.DefaultTolerance, "tolerance override (defaults to the tolerance file)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("recipe")
	_ = cmd.MarkFlagRequired("density")
	_ = cmd.MarkFlagRequired("refraction")

	return cmd
}

func newRecipesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List the recipes available in the recipe directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newService(opts, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			names, err := service.Recipes(ctx)
			if err != nil {
				return fmt.Errorf("failed to list recipes: %w", err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ecowash %s (%s)\n", version.Version, version.Commit)
		},
	}
}

// newService builds a calculation service from the environment configuration, with
// the recipe directory flag taking precedence. Nothing is recorded or published.
func newService(opts *rootOptions, override calculations.ToleranceProvider, logOut io.Writer) (*calculations.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.recipeDir != "" {
		cfg.Recipes.Dir = opts.recipeDir
	}

	log := logger.New(logger.Config{Level: opts.logLevel, Pretty: true, Output: logOut})

	source := recipe.NewDirSource(cfg.Recipes.Dir)
	tol := override
	if tol == nil {
		tol = tolerance.NewProvider(source, cfg.Tolerance.Key, cfg.Tolerance.Default, log)
	}
	calculator := correction.NewCalculator(correction.NewCorrector(di.FallbackAdditives(cfg.Additives)), log)

	return calculations.NewService(recipe.NewCatalog(source, 0, log), tol, calculator, nil, nil, log), nil
}

func printResult(w io.Writer, result *correction.Result) {
	fmt.Fprintf(w, "Recipe:     %s\n", result.Recipe)
	fmt.Fprintf(w, "Tolerance:  %g\n", result.Gate.Tolerance)
	fmt.Fprintf(w, "Density:    %.5f (theoretical %.5f)\n", result.Measurement.Density, result.Gate.TheoreticalDensity)
	fmt.Fprintf(w, "Refraction: %.5f (theoretical %.5f)\n", result.Measurement.RefractiveIndex, result.Gate.TheoreticalRefractiveIndex)

	if !result.NeedsCorrection() {
		fmt.Fprintln(w, "No rebalancing needed")
		return
	}

	fmt.Fprintf(w, "Excess:     %s (%s)\n", result.Classification.Component, result.Classification.Role)
	for _, a := range notification.SortedAdditives(result.Additives()) {
		fmt.Fprintf(w, "Add %.7f of %s\n", a.Volume, a.Name)
	}
	for _, name := range result.Correction.Missing {
		fmt.Fprintf(w, "Missing additive: %s (no concentration available)\n", name)
	}
}
