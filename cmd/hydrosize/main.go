// HydroSize sizes the pipe diameters of a cold-water plumbing network drawn
// in DXF, choosing the cheapest commercial diameters that keep every fixture
// above its minimum pressure.
//
// Build:
//
//	go build -o hydrosize ./cmd/hydrosize
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logFormat  string
	logLevel   string
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:          "hydrosize",
		Short:        "Minimum-cost pipe diameter sizing for cold-water plumbing",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file (default ./hydrosize.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log output format: text or json")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(solveCmd(&g))
	rootCmd.AddCommand(inspectCmd(&g))
	rootCmd.AddCommand(compareCmd(&g))
	rootCmd.AddCommand(tablesCmd(&g))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func solveCmd(g *globalFlags) *cobra.Command {
	var opts outputFlags

	cmd := &cobra.Command{
		Use:   "solve [drawing.dxf]",
		Short: "Size every segment of a drawing and write the reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), g, opts, args[0])
		},
	}

	addOutputFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "write the PDF report to this path")
	cmd.Flags().StringVar(&opts.labels, "labels", "", "write QR pipe tags (PDF) to this path")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this path")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "solver time limit, overrides the config (e.g. 30s)")
	return cmd
}

func inspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [drawing.dxf]",
		Short: "Build the network and show segments, tees, paths and anomalies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), g, args[0])
		},
	}
}

func compareCmd(g *globalFlags) *cobra.Command {
	var opts outputFlags

	cmd := &cobra.Command{
		Use:   "compare [drawing.dxf] [diameters]",
		Short: "Compare a manual diameter budget against the optimised one",
		Long: "Compare a manual diameter budget against the optimised one.\n\n" +
			"The diameters file lists one nominal diameter (mm) per segment in report\n" +
			"order. Any separator works and ',' is accepted as decimal mark; an .xlsx\n" +
			"file is read from its first sheet.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), g, opts, args[0], args[1])
		},
	}

	addOutputFlags(cmd, &opts)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "solver time limit, overrides the config (e.g. 30s)")
	return cmd
}

func tablesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Load and validate the reference tables named in the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(g)
		},
	}
}

// outputFlags are the report destinations and limits of solve and compare.
type outputFlags struct {
	pdf         string
	xlsx        string
	labels      string
	json        string
	metricsFile string
	timeout     time.Duration
}

func addOutputFlags(cmd *cobra.Command, opts *outputFlags) {
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "write the Excel workbook to this path")
	cmd.Flags().StringVar(&opts.json, "json", "", "write the JSON result snapshot to this path")
}
