// rrx drives the Rasterix front-end against a software model of the
// rasterizer.
//
// Commands:
//
//	render  - Render a model to PNG
//	view    - Spin a model in the terminal
//	dump    - Capture or decode the display list stream
//	config  - Print or check a device configuration
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/rasterix/pkg/logging"
)

var version = "dev"

// rootFlags are shared by every command.
type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "rrx",
		Short: "Rasterix fixed-function front-end",
		Long: "rrx compiles geometry and render state into the RRX command stream " +
			"and executes it on a software model of the rasterizer.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if flags.verbose {
				level = slog.LevelDebug
			}
			logging.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "device configuration YAML")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log uploads, swaps and allocations")

	root.AddCommand(
		newRenderCmd(flags),
		newViewCmd(flags),
		newDumpCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}
