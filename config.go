package detfusion

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/swdee/go-detfusion/postprocess"
	"github.com/swdee/go-detfusion/preprocess"
)

// Preset mode names accepted by PresetConfig
const (
	ModeDefault    = "default"
	ModeEnhanced   = "enhanced"
	ModeAggressive = "aggressive"
)

// Techniques selects which kinds of detection pass are run for each detector
// variant and threshold
type Techniques struct {
	// Full runs the detector on the whole image
	Full bool `mapstructure:"full" yaml:"full"`
	// Tiled runs the detector on each cell of a GridSize x GridSize grid
	Tiled    bool `mapstructure:"tiled" yaml:"tiled"`
	GridSize int  `mapstructure:"grid_size" yaml:"grid_size"`
	// Contrast runs the detector on a contrast enhanced copy of the image
	Contrast bool `mapstructure:"contrast" yaml:"contrast"`
	// Heuristic adds a single colour segmentation pass
	Heuristic bool `mapstructure:"heuristic" yaml:"heuristic"`
}

// modelPasses reports whether any technique invokes the detector variants
func (t Techniques) modelPasses() bool {
	return t.Full || t.Tiled || t.Contrast
}

// ClassConfig defines the classes kept by the class filter
type ClassConfig struct {
	Mode postprocess.ClassMode `mapstructure:"mode" yaml:"mode"`
	// IDs are the class IDs of interest
	IDs []int `mapstructure:"ids" yaml:"ids"`
	// Names maps class IDs to canonical names
	Names map[int]string `mapstructure:"names" yaml:"names"`
	// LabelsFile is a text file of class names, one per line with the line
	// number as the class ID.  Its names replace entries in Names.
	LabelsFile string `mapstructure:"labels_file" yaml:"labels_file,omitempty"`
}

// LoadLabelNames merges the names from LabelsFile into Names.  It does
// nothing when no labels file is set.
func (c *ClassConfig) LoadLabelNames() error {

	if c.LabelsFile == "" {
		return nil
	}

	labels, err := LoadLabels(c.LabelsFile)

	if err != nil {
		return fmt.Errorf("%w: class labels: %w", ErrConfiguration, err)
	}

	names := make(map[int]string, len(c.Names)+len(labels))

	for id, name := range c.Names {
		names[id] = name
	}

	for id, name := range LabelMap(labels) {
		names[id] = name
	}

	c.Names = names

	return nil
}

// Config defines the detection passes to run on an image and how their
// results are fused
type Config struct {
	// Mode is the name of the preset the configuration was derived from
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Variants are the detector variant identifiers passed to the Adapter
	Variants []string `mapstructure:"variants" yaml:"variants"`
	// Thresholds are the confidence thresholds each variant is run at
	Thresholds  []float32                  `mapstructure:"thresholds" yaml:"thresholds"`
	Techniques  Techniques                 `mapstructure:"techniques" yaml:"techniques"`
	Classes     ClassConfig                `mapstructure:"classes" yaml:"classes"`
	Suppression postprocess.SuppressParams `mapstructure:"suppression" yaml:"suppression"`
	// Contrast is the adjustment applied for contrast enhanced passes
	Contrast preprocess.Contrast `mapstructure:"contrast" yaml:"contrast"`
	// Heuristic are the parameters of the colour segmentation pass
	Heuristic preprocess.ColourParams `mapstructure:"heuristic" yaml:"heuristic"`
	// Parallelism is the maximum number of passes run at once
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
	// PassTimeout is the time allowed for a single pass, 0 for no limit
	PassTimeout time.Duration `mapstructure:"pass_timeout" yaml:"pass_timeout"`
}

// DefaultConfig returns a configuration for counting cows with a single
// detector variant run on the full image
//   - Variant: yolov8m at confidence 0.3
//   - Classes: cow only (strict)
//   - Suppression: IoU above 0.3
func DefaultConfig() Config {
	return Config{
		Mode:       ModeDefault,
		Variants:   []string{"yolov8m"},
		Thresholds: []float32{0.3},
		Techniques: Techniques{
			Full:     true,
			GridSize: 3,
		},
		Classes: ClassConfig{
			Mode:  postprocess.ClassStrict,
			IDs:   []int{21},
			Names: map[int]string{21: "cow"},
		},
		Suppression: postprocess.SuppressParams{
			Policy:    postprocess.PolicyIoU,
			Threshold: 0.3,
		},
		Contrast:    preprocess.DefaultContrast(),
		Heuristic:   preprocess.DefaultColourParams(),
		Parallelism: 4,
	}
}

// EnhancedConfig returns a configuration that runs three detector variants at
// four low thresholds on both the full image and a 3x3 grid, keeping
// livestock classes
//   - Variants: yolov8m, yolov8s, yolov8n
//   - Thresholds: 0.1, 0.15, 0.2, 0.25
//   - Classes: horse, sheep, cow (broad)
//   - Suppression: IoU above 0.3
func EnhancedConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeEnhanced
	cfg.Variants = []string{"yolov8m", "yolov8s", "yolov8n"}
	cfg.Thresholds = []float32{0.1, 0.15, 0.2, 0.25}
	cfg.Techniques = Techniques{
		Full:     true,
		Tiled:    true,
		GridSize: 3,
	}
	cfg.Classes = ClassConfig{
		Mode:  postprocess.ClassBroad,
		IDs:   []int{19, 20, 21},
		Names: COCOAnimalNames(),
	}

	return cfg
}

// AggressiveConfig returns a configuration for hard images where the
// detectors find little.  It runs at very low thresholds on the full image
// and a contrast enhanced copy, adds the colour segmentation pass, accepts
// any animal class and suppresses nested boxes by overlap ratio
//   - Variants: yolov8n, yolov8s, yolov8m
//   - Thresholds: 0.01, 0.05, 0.1, 0.15
//   - Classes: COCO animal classes 16 to 25 (broad)
//   - Suppression: overlap ratio above 0.3
func AggressiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeAggressive
	cfg.Variants = []string{"yolov8n", "yolov8s", "yolov8m"}
	cfg.Thresholds = []float32{0.01, 0.05, 0.1, 0.15}
	cfg.Techniques = Techniques{
		Full:      true,
		GridSize:  3,
		Contrast:  true,
		Heuristic: true,
	}
	cfg.Classes = ClassConfig{
		Mode:  postprocess.ClassBroad,
		IDs:   []int{16, 17, 18, 19, 20, 21, 22, 23, 24, 25},
		Names: COCOAnimalNames(),
	}
	cfg.Suppression = postprocess.SuppressParams{
		Policy:    postprocess.PolicyOverlapRatio,
		Threshold: 0.3,
	}

	return cfg
}

// PresetConfig returns the preset configuration for the named mode
func PresetConfig(mode string) (Config, error) {
	switch strings.ToLower(mode) {
	case "", ModeDefault:
		return DefaultConfig(), nil
	case ModeEnhanced:
		return EnhancedConfig(), nil
	case ModeAggressive, "ultra":
		return AggressiveConfig(), nil
	}

	return Config{}, fmt.Errorf("%w: unknown mode %q", ErrConfiguration, mode)
}

// Validate checks the configuration and returns ErrConfiguration joined with
// every problem found
func (c Config) Validate() error {

	var errs []error

	if !c.Techniques.modelPasses() && !c.Techniques.Heuristic {
		errs = append(errs, errors.New("no detection technique enabled"))
	}

	if c.Techniques.modelPasses() {
		if len(c.Variants) == 0 {
			errs = append(errs, errors.New("no detector variants configured"))
		}

		for i, v := range c.Variants {
			if strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Errorf("detector variant %d is blank", i))
			}
		}

		if len(c.Thresholds) == 0 {
			errs = append(errs, errors.New("no confidence thresholds configured"))
		}

		for _, t := range c.Thresholds {
			if !(t > 0 && t <= 1) {
				errs = append(errs, fmt.Errorf("confidence threshold %v outside (0, 1]", t))
			}
		}
	}

	if _, err := postprocess.NewClassFilter(c.Classes.Mode, c.Classes.IDs, c.Classes.Names); err != nil {
		errs = append(errs, err)
	}

	if err := c.Suppression.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism %d is negative", c.Parallelism))
	}

	if c.PassTimeout < 0 {
		errs = append(errs, fmt.Errorf("pass timeout %s is negative", c.PassTimeout))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
}

// LoadConfig reads a YAML configuration file.  The "mode" key selects the
// preset the file's values are applied over, and any key can be overridden
// by an environment variable prefixed with DETFUSION_, eg:
// DETFUSION_SUPPRESSION_THRESHOLD=0.2
func LoadConfig(path string) (Config, error) {

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DETFUSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %w", ErrConfiguration, path, err)
	}

	cfg, err := PresetConfig(v.GetString("mode"))

	if err != nil {
		return Config{}, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decoding %s: %w", ErrConfiguration, path, err)
	}

	if err := cfg.Classes.LoadLabelNames(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
