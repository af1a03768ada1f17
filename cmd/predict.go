package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/proxynas/proxynas/nas"
)

var predictData dataSource

// prediction is the JSON document printed by the predict command.
type prediction struct {
	Stats  nas.DatasetStats       `json:"stats"`
	Config nas.ArchitectureConfig `json:"config"`
}

// predictCmd runs only the meta-learner on a dataset
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a starting architecture from dataset statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ds, err := predictData.load()
		if err != nil {
			logrus.Fatalf("Failed to load dataset: %v", err)
		}
		stats := nas.ComputeDatasetStats(ds.X, ds.Y)
		if err := writeJSON(os.Stdout, prediction{Stats: stats, Config: nas.PredictFromStats(stats)}); err != nil {
			logrus.Fatalf("Failed to write prediction: %v", err)
		}
	},
}
