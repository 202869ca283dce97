package cmd

import (
	"fmt"
	"io"

	"scan-analysis/measurement"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rawInput bool

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Group domains by the (protocol, port, server) answering their configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(inputFile)
		if err != nil {
			return err
		}
		defer in.Close()

		result, err := measurement.RunClusters(cmd.Context(), in, rawInput, pipelineOptions())
		if err != nil {
			return err
		}
		fmt.Printf("records=%d targets=%s incomplete=%d malformed=%d\n",
			result.Records, color.GreenString("%d", result.Clusters.Len()),
			result.Clusters.Incomplete, result.Malformed)

		if err := save("clusters.json", func(w io.Writer) error {
			return measurement.WriteJSON(w, result.Clusters.Export())
		}); err != nil {
			return err
		}
		return save("clusters.csv", func(w io.Writer) error {
			return measurement.WriteClusterTargetsCSV(w, result.Clusters)
		})
	},
}

func init() {
	clustersCmd.Flags().StringVarP(&inputFile, "input", "i", "", "check_results.jsonl (or init.jsonl with --raw)")
	clustersCmd.Flags().BoolVar(&rawInput, "raw", false, "input holds raw probe records; derive check results from their configs")
	_ = clustersCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(clustersCmd)
}
