package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/beamline/pointingsim/assembly"
	"github.com/beamline/pointingsim/simulation"
)

func newListPVsCmd() *cobra.Command {
	var (
		prefix  string
		variant string
		coupled bool
	)

	cmd := &cobra.Command{
		Use:   "list-pvs",
		Short: "Print all process variables the simulator would serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := assembly.Variant(variant)
			if v != assembly.VariantCentroid &&
				v != assembly.VariantImaging {
				return fmt.Errorf("unknown variant %q", variant)
			}

			b := simulation.MakeBuilder().
				WithPrefix(prefix).
				WithVariant(v).
				WithSerialEngine().
				WithoutMonitoring()
			if coupled {
				b = b.WithCoupling()
			}

			s := b.Build()

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tKIND\tACCESS\tDOC")
			for _, pv := range s.Registry().Variables() {
				access := "rw"
				if pv.ReadOnly() {
					access = "ro"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					pv.Path(), pv.Kind(), access, pv.Doc())
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&prefix,
		"prefix", envOr("POINTINGSIM_PREFIX", "LAS:TEST:"),
		"Path prefix of all process variables")
	cmd.Flags().StringVar(&variant,
		"variant", envOr("POINTINGSIM_VARIANT", "centroid"),
		"Rig variant, centroid or imaging")
	cmd.Flags().BoolVar(&coupled,
		"coupled", false,
		"Couple the centroid cameras to tip/tilt readbacks")

	return cmd
}
