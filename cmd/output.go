package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/proxynas/proxynas/nas"
	"github.com/proxynas/proxynas/nas/trace"
)

// writeResult writes the result document to path, gzip-compressed when path
// ends in .gz, or to stdout when path is empty.
func writeResult(result *nas.SearchResult, path string) error {
	if path == "" {
		return result.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		if err := result.WriteJSON(f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	gz := gzip.NewWriter(f)
	if err := result.WriteJSON(gz); err != nil {
		_ = gz.Close()
		_ = f.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return err
	}
	logrus.Infof("Result written to %s", path)
	return f.Close()
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTraceSummary writes a human-readable digest of the evaluation trace.
func printTraceSummary(w io.Writer, summary *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Evaluation Trace Summary ===")
	fmt.Fprintf(w, "Evaluations: %d (%d failed)\n", summary.TotalEvaluations, summary.FailedEvaluations)
	for _, m := range nas.StandardMetrics() {
		name := string(m)
		d, ok := summary.RawDistributions[name]
		if !ok && summary.MetricFailures[name] == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-24s n=%-4d failed=%-4d mean=%-12.6g p50=%-12.6g min=%-12.6g max=%-12.6g time=%v\n",
			name, d.Count, summary.MetricFailures[name], d.Mean, d.P50, d.Min, d.Max, summary.MetricTime[name])
	}
	if summary.SlowestConfig != "" {
		fmt.Fprintf(w, "Slowest configuration: %s (%v)\n", summary.SlowestConfig, summary.SlowestConfigTime)
	}
}
