package kv

import (
	"fmt"

	"github.com/ValentinKolb/dStore/cmd/util"
	"github.com/ValentinKolb/dStore/lib/store/estore"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Prints store sizes and lifecycle counters in Prometheus text format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return util.WithFactory(func(f *estore.Factory[string, string]) error {
			names, err := f.Names()
			if err != nil {
				return err
			}

			set := metrics.NewSet()
			for _, name := range names {
				s, err := f.GetInstance(name)
				if err != nil {
					return err
				}
				info, err := s.Info()
				if err != nil {
					return err
				}
				entries, size := float64(info.Entries), float64(info.SizeBytes)
				set.GetOrCreateGauge(fmt.Sprintf(`dstore_store_entries{store=%q}`, name), func() float64 { return entries })
				set.GetOrCreateGauge(fmt.Sprintf(`dstore_store_size_bytes{store=%q}`, name), func() float64 { return size })
			}

			w := cmd.OutOrStdout()
			set.WritePrometheus(w)
			metrics.WritePrometheus(w, false)
			return nil
		})
	},
}
