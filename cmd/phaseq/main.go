package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adwforge/phaseq/internal/config"
	"github.com/adwforge/phaseq/internal/queue"
	"github.com/adwforge/phaseq/internal/storage"
	"github.com/adwforge/phaseq/internal/storage/sqlite"
)

// Version is set at build time via -ldflags
var Version = "v0.3.0"

var (
	dbPath     string
	jsonOutput bool

	store storage.Storage
	svc   *queue.Service
)

var rootCmd = &cobra.Command{
	Use:   "phaseq",
	Short: "Dependency-ordered phase queue for autonomous developer workflows",
	Long: `phaseq queues the ordered phases of a multi-phase specification and
advances them one at a time: a phase becomes ready only when its
predecessor completes, and a failure anywhere blocks the rest of the
chain. A background coordinator reconciles external execution results
into queue state.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if dbPath == "" {
			dbPath = config.DatabasePath()
		}
		if jsonOutput {
			config.Set("json", true)
		}

		s, err := sqlite.New(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot open database %s: %v\n", dbPath, err)
			os.Exit(1)
		}
		store = s
		svc = queue.NewService(store)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the phaseq version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("phaseq %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .phaseq/phaseq.db or ~/.phaseq/phaseq.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
