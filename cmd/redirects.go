package cmd

import (
	"fmt"
	"io"

	"scan-analysis/measurement"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	protocolFlag string
	inputFile    string
)

func protocol() (measurement.Protocol, error) {
	if protocolFlag != "" {
		return measurement.ParseProtocol(protocolFlag)
	}
	return measurement.ParseProtocol(cfg.Redirects.Protocol)
}

func bucketOptions() measurement.BucketOptions {
	return measurement.BucketOptions{
		TLDs:           cfg.Redirects.TLDs,
		OtherKey:       cfg.Redirects.OtherKey,
		SmallThreshold: cfg.Redirects.SmallThreshold,
	}
}

func printResolveStats(p measurement.Protocol, s measurement.ResolveStats) {
	fmt.Printf("%s attempts=%d accepted=%s empty=%d bad_status=%d probe_error=%d invalid_host=%d\n",
		color.CyanString(string(p)), s.Attempts, color.GreenString("%d", s.Accepted),
		s.Empty, s.BadStatus, s.FatalProbeError, s.InvalidHost)
}

// saveProviderReports writes the statistics map, the TLD flow edges and the
// small-provider table for one protocol.
func saveProviderReports(p measurement.Protocol, stats map[string][]string) error {
	if err := save(fmt.Sprintf("redirects_statistics_%s.json", p), func(w io.Writer) error {
		return measurement.WriteJSON(w, stats)
	}); err != nil {
		return err
	}
	return saveBucketReports(p, stats)
}

func saveBucketReports(p measurement.Protocol, stats map[string][]string) error {
	edges := measurement.BucketByTLD(stats, bucketOptions())
	if err := save(fmt.Sprintf("redirects_tld_statistics_%s.csv", p), func(w io.Writer) error {
		return measurement.WriteEdgesCSV(w, edges)
	}); err != nil {
		return err
	}
	small := measurement.SmallProviders(stats, cfg.Redirects.SmallReportThreshold)
	if err := save(fmt.Sprintf("small_providers_%s.csv", p), func(w io.Writer) error {
		return measurement.WriteSmallProvidersCSV(w, small)
	}); err != nil {
		return err
	}
	return save(fmt.Sprintf("redirects_report_%s.xlsx", p), func(w io.Writer) error {
		return measurement.WriteBucketWorkbook(w, edges, small)
	})
}

var redirectsCmd = &cobra.Command{
	Use:   "redirects",
	Short: "Extract redirect chains from init.jsonl and build every provider report",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := protocol()
		if err != nil {
			return err
		}
		in, err := openInput(inputFile)
		if err != nil {
			return err
		}
		defer in.Close()

		result, err := measurement.RunRedirects(cmd.Context(), in, p, pipelineOptions())
		if err != nil {
			return err
		}
		printResolveStats(p, result.Stats)
		if err := save(fmt.Sprintf("filtered_redirects_%s.jsonl", p), func(w io.Writer) error {
			return measurement.WriteChainsJSONL(w, result.Chains)
		}); err != nil {
			return err
		}
		return saveProviderReports(p, result.Providers.Export())
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Write accepted canonical redirect chains (filtered_redirects_<protocol>.jsonl)",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := protocol()
		if err != nil {
			return err
		}
		in, err := openInput(inputFile)
		if err != nil {
			return err
		}
		defer in.Close()

		result, err := measurement.RunRedirects(cmd.Context(), in, p, pipelineOptions())
		if err != nil {
			return err
		}
		printResolveStats(p, result.Stats)
		return save(fmt.Sprintf("filtered_redirects_%s.jsonl", p), func(w io.Writer) error {
			return measurement.WriteChainsJSONL(w, result.Chains)
		})
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Build provider statistics from a filtered_redirects JSONL file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := protocol()
		if err != nil {
			return err
		}
		in, err := openInput(inputFile)
		if err != nil {
			return err
		}
		defer in.Close()

		providers, malformed, err := measurement.AccumulateChains(cmd.Context(), in, pipelineOptions())
		if err != nil {
			return err
		}
		logger.Info("chains loaded", "providers", providers.Len(), "malformed", malformed)
		return save(fmt.Sprintf("redirects_statistics_%s.json", p), func(w io.Writer) error {
			return measurement.WriteJSON(w, providers.Export())
		})
	},
}

func loadStats() (map[string][]string, error) {
	in, err := openInput(inputFile)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return measurement.LoadProviderStats(in)
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Bucket a provider statistics file by TLD and provider size",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := protocol()
		if err != nil {
			return err
		}
		stats, err := loadStats()
		if err != nil {
			return err
		}
		return saveBucketReports(p, stats)
	},
}

var smallProvidersCmd = &cobra.Command{
	Use:   "small-providers",
	Short: "List providers below the report threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := loadStats()
		if err != nil {
			return err
		}
		small := measurement.SmallProviders(stats, cfg.Redirects.SmallReportThreshold)
		for _, sp := range small {
			self := ""
			if sp.ContainsSelf {
				self = color.YellowString(" (self)")
			}
			fmt.Printf("%-40s %d%s\n", sp.Provider, sp.CustomerCount, self)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{redirectsCmd, extractCmd, providersCmd, bucketsCmd, smallProvidersCmd} {
		c.Flags().StringVarP(&inputFile, "input", "i", "", "input file")
		_ = c.MarkFlagRequired("input")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{redirectsCmd, extractCmd, providersCmd, bucketsCmd} {
		c.Flags().StringVarP(&protocolFlag, "protocol", "p", "", "autoconfig | autodiscover (default from config)")
	}
}

