// Command pointingsim runs a soft-real-time simulator of a laser-pointing
// diagnostic rig.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var version = "0.1.0-dev"

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pointingsim",
		Short: "Laser-pointing rig simulator",
		Long: `pointingsim simulates the diagnostic rig of a laser-pointing
test stand: centroid cameras, tip/tilt actuator readbacks, an optional
full-frame camera, and a drifting beam current, all recomputed on
periodic scans and exposed as named process variables.`,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newListPVsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pointingsim version %s\n", version)
		},
	}
}

// envOr reads a configuration default from the environment, .env included.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
