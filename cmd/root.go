package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	// Registers the standard proxies with nas.NewEvaluatorFunc.
	_ "github.com/proxynas/proxynas/nas/proxy"
)

var logLevel string // Log verbosity level

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "proxynas",
	Short: "Zero-cost proxy search over feed-forward classifier architectures",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerDataFlags adds the dataset selection flags shared by search and predict.
func registerDataFlags(cmd *cobra.Command, src *dataSource) {
	cmd.Flags().StringVar(&src.Path, "data", "", "CSV dataset (trailing label columns, see --label-columns; .gz accepted). Synthetic data when empty")
	cmd.Flags().IntVar(&src.LabelColumns, "label-columns", 1, "Trailing CSV label columns: 1 for an integer class index, k > 1 for a one-hot block over k classes")
	cmd.Flags().IntVar(&src.SyntheticRows, "synthetic-rows", 200, "Rows of the synthetic dataset")
	cmd.Flags().IntVar(&src.SyntheticFeatures, "synthetic-features", 20, "Features of the synthetic dataset")
	cmd.Flags().IntVar(&src.SyntheticClasses, "synthetic-classes", 3, "Classes of the synthetic dataset")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerSearchFlags(searchCmd)
	registerDataFlags(predictCmd, &predictData)
	predictCmd.Flags().Int64Var(&predictData.Seed, "seed", 42, "Seed for synthetic data generation")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(metricsCmd)
}
