package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/swdee/go-detfusion"
	"gopkg.in/yaml.v3"
)

// configCommand creates the command that prints a preset configuration,
// which can be saved and edited for use with detect --config
func configCommand(s *settings) *cobra.Command {

	return &cobra.Command{
		Use:   "config [mode]",
		Short: "Print a preset configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {

			mode := detfusion.ModeDefault

			if len(args) == 1 {
				mode = args[0]
			}

			cfg, err := detfusion.PresetConfig(mode)

			if err != nil {
				return err
			}

			s.log.Debug("printing preset", "mode", cfg.Mode)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)

			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("error encoding config: %w", err)
			}

			return enc.Close()
		},
	}
}
