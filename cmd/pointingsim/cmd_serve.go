package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/beamline/pointingsim/assembly"
	"github.com/beamline/pointingsim/simulation"
)

func newServeCmd() *cobra.Command {
	var (
		prefix      string
		variant     string
		coupled     bool
		seed        int64
		monitorPort int
		noMonitor   bool
		record      bool
		output      string
		duration    time.Duration
		openBrowser bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := assembly.Variant(variant)
			if v != assembly.VariantCentroid &&
				v != assembly.VariantImaging {
				return fmt.Errorf("unknown variant %q", variant)
			}

			b := simulation.MakeBuilder().
				WithPrefix(prefix).
				WithVariant(v).
				WithSeed(seed)
			if coupled {
				b = b.WithCoupling()
			}
			if verbose {
				b = b.WithEventTracing()
			}
			if noMonitor {
				b = b.WithoutMonitoring()
			} else if monitorPort > 0 {
				b = b.WithMonitorPort(monitorPort)
			}
			if record {
				b = b.WithRecording()
				if output != "" {
					b = b.WithOutputFileName(output)
				}
			}

			s := b.Build()

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigs
				fmt.Fprintln(os.Stderr, "Shutting down")
				s.Terminate()
			}()

			if duration > 0 {
				time.AfterFunc(duration, s.Terminate)
			}

			if openBrowser && s.MonitorPort() > 0 {
				url := "http://localhost:" +
					strconv.Itoa(s.MonitorPort())
				if err := browser.OpenURL(url); err != nil {
					fmt.Fprintf(os.Stderr,
						"Cannot open browser: %s\n", err)
				}
			}

			return s.Run()
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
	cmd.Flags().Int64Var(&seed,
		"seed", 0,
		"Seed for all noise sources, 0 for time-based")
	cmd.Flags().IntVar(&monitorPort,
		"monitor-port", envIntOr("POINTINGSIM_MONITOR_PORT", 0),
		"Port of the monitoring server, 0 for a random port")
	cmd.Flags().BoolVar(&noMonitor,
		"no-monitor", false,
		"Disable the monitoring server")
	cmd.Flags().BoolVar(&record,
		"record", false,
		"Record scalar samples into a SQLite database")
	cmd.Flags().StringVar(&output,
		"output", "",
		"Output file name for the recording database")
	cmd.Flags().DurationVar(&duration,
		"duration", 0,
		"Stop after this wall-clock duration, 0 to run forever")
	cmd.Flags().BoolVar(&openBrowser,
		"open-browser", false,
		"Open the monitoring page in a browser")
	cmd.Flags().BoolVar(&verbose,
		"verbose", false,
		"Log every handled scan event")

	return cmd
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring %s=%q: %s\n", key, v, err)
		return fallback
	}

	return n
}
