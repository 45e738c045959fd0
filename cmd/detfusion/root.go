package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings are the values shared by every sub-command, read from flags and
// DETFUSION_ environment variables
type settings struct {
	v   *viper.Viper
	log *slog.Logger
}

// rootCommand creates the root command and its sub-commands
func rootCommand() *cobra.Command {

	s := &settings{
		v: viper.New(),
	}

	s.v.SetEnvPrefix("DETFUSION")
	s.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "detfusion",
		Short:         "Multi-detector fusion and deduplication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), s.v.GetString("log-level"), s.v.GetBool("log-json"))

			if err != nil {
				return err
			}

			s.log = log
			return nil
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	if err := s.v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}

	rootCmd.AddCommand(
		detectCommand(s),
		configCommand(s),
	)

	return rootCmd
}

// newLogger returns a text or JSON logger writing to w at the named level
func newLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {

	var lvl slog.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}
