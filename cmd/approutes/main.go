package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/approutes/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
   ┌─┐┌─┐┌─┐┬─┐┌─┐┬ ┬┌┬┐┌─┐┌─┐
   ├─┤├─┘├─┘├┬┘│ ││ │ │ ├┤ └─┐
   ┴ ┴┴  ┴  ┴└─└─┘└─┘ ┴ └─┘└─┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	verbose     bool
	configPath  string
	dir         string
	metricsFile string
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "approutes",
		Short: "Resolve app directory routes and emit build output",
		Long: `approutes turns an app directory into an entrypoint table and writes
build output assets.

  • Pages, layouts and route handlers from file conventions
  • Route groups, parallel routes and private folders
  • Conflict detection between pages and route handlers
  • Icon, Open Graph and other metadata files in order
  • Asset graph emission to disk or S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: approutes.json in the project root)")
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "Project directory (default: nearest directory with a config file)")
	rootCmd.PersistentFlags().StringVar(&flags.metricsFile, "metrics", "", "Write Prometheus metrics to this file (default from config)")

	rootCmd.AddCommand(
		routesCmd(flags),
		metadataCmd(flags),
		emitCmd(flags),
		watchCmd(flags),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
