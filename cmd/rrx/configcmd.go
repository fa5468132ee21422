package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taigrr/rasterix/pkg/config"
)

func newConfigCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective device configuration",
		Long: "Print the device configuration as YAML: the defaults, or --config " +
			"applied over them. The file is validated before it is printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if root.configPath != "" {
				var err error
				if cfg, err = config.Load(root.configPath); err != nil {
					return err
				}
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprint(w, string(out))
			fmt.Fprintf(w, "# %d display lines, %d pages per texture, %d bus buffers\n",
				cfg.DisplayLines(), cfg.MaxPagesPerTexture(), cfg.BusBufferCount())
			return nil
		},
	}
}
