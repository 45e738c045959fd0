package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/swdee/go-detfusion"
	"github.com/swdee/go-detfusion/adapter/httpdetect"
	"gocv.io/x/gocv"
	"gopkg.in/yaml.v3"
)

// output formats of the detect command
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// detectCommand creates the command that runs fusion on a single image
func detectCommand(s *settings) *cobra.Command {

	cmd := &cobra.Command{
		Use:   "detect [image]",
		Short: "Detect and count objects in an image",
		Long: `Run every configured detection pass over the image through the
detection service at --endpoint and print the fused detections.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, s, args[0])
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringP("mode", "m", detfusion.ModeDefault, "Preset used when no configuration file is given: default, enhanced, aggressive")
	cmd.Flags().String("labels", "", "Path to class labels file, one name per line, overriding configured class names")
	cmd.Flags().String("endpoint", "", "URL of the detection service")
	cmd.Flags().String("api-key", "", "API key for the detection service")
	cmd.Flags().Int("input-width", 0, "Letterbox regions to this width before upload, 0 to upload as is")
	cmd.Flags().Int("input-height", 0, "Letterbox regions to this height before upload, 0 to upload as is")
	cmd.Flags().StringP("format", "f", formatJSON, "Output format: json, yaml")

	if err := s.v.BindPFlags(cmd.Flags()); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}

	return cmd
}

// runDetect loads the configuration and image, processes it and writes the
// result to the command output
func runDetect(cmd *cobra.Command, s *settings, path string) error {

	format := s.v.GetString("format")

	if format != formatJSON && format != formatYAML {
		return fmt.Errorf("unknown output format %q", format)
	}

	cfg, err := loadConfig(s)

	if err != nil {
		return err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return fmt.Errorf("%w: could not read %s", detfusion.ErrEmptyImage, path)
	}

	size := cfg.Parallelism

	if size == 0 {
		size = runtime.NumCPU()
	}

	endpoint := s.v.GetString("endpoint")
	opts := []httpdetect.Option{
		httpdetect.WithAPIKey(s.v.GetString("api-key")),
		httpdetect.WithInputSize(s.v.GetInt("input-width"), s.v.GetInt("input-height")),
	}

	pool, err := detfusion.NewPool(size, func(i int) (detfusion.Adapter, error) {
		c, err := httpdetect.New(endpoint, opts...)

		if err != nil {
			return nil, err
		}

		return c, nil
	})

	if err != nil {
		return err
	}

	defer pool.Close()

	engine, err := detfusion.NewEngine(pool, cfg, detfusion.WithLogger(s.log))

	if err != nil {
		return err
	}

	res, err := engine.Process(cmd.Context(), img)

	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), format, res)
}

// loadConfig returns the configuration file given by --config, or the
// preset named by --mode, with class names from --labels applied
func loadConfig(s *settings) (detfusion.Config, error) {

	var cfg detfusion.Config
	var err error

	if path := s.v.GetString("config"); path != "" {
		cfg, err = detfusion.LoadConfig(path)
	} else {
		cfg, err = detfusion.PresetConfig(s.v.GetString("mode"))
	}

	if err != nil {
		return detfusion.Config{}, err
	}

	if path := s.v.GetString("labels"); path != "" {
		cfg.Classes.LabelsFile = path

		if err := cfg.Classes.LoadLabelNames(); err != nil {
			return detfusion.Config{}, err
		}
	}

	return cfg, nil
}

// writeResult encodes the result in the given format
func writeResult(w io.Writer, format string, res *detfusion.Result) error {

	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("error encoding result: %w", err)
		}

		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}
