package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/proxynas/proxynas/nas"
)

// metricsCmd lists the registered proxies
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the zero-cost proxies and their default weights",
	Run: func(cmd *cobra.Command, args []string) {
		printMetrics(os.Stdout)
	},
}

func printMetrics(w io.Writer) {
	for _, m := range nas.StandardMetrics() {
		fmt.Fprintf(w, "%-24s %.4f\n", m, nas.DefaultWeight())
	}
}
