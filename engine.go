package detfusion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-detfusion/postprocess"
	"github.com/swdee/go-detfusion/preprocess"
	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

// Engine runs a configured set of detection passes over an image and fuses
// their results into a single deduplicated list of detections.  An Engine is
// safe for concurrent use, each call to Process owns its own proposal pool.
type Engine struct {
	cfg        Config
	adapter    Adapter
	heuristic  Adapter
	filter     *postprocess.ClassFilter
	suppressor *postprocess.Suppressor
	log        *slog.Logger
	metrics    *Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used by the Engine, by default slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records pass and detection metrics
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithHeuristic replaces the colour segmentation detector used for the
// heuristic pass
func WithHeuristic(a Adapter) Option {
	return func(e *Engine) {
		e.heuristic = a
	}
}

// NewEngine returns an Engine that runs detection passes with the given
// adapter.  The adapter may be nil only if the configuration enables the
// heuristic pass alone.
func NewEngine(adapter Adapter, cfg Config, opts ...Option) (*Engine, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if adapter == nil && cfg.Techniques.modelPasses() {
		return nil, fmt.Errorf("%w: no adapter for detector passes", ErrConfiguration)
	}

	filter, err := postprocess.NewClassFilter(cfg.Classes.Mode, cfg.Classes.IDs, cfg.Classes.Names)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	suppressor, err := postprocess.NewSuppressor(cfg.Suppression)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if cfg.Parallelism == 0 {
		cfg.Parallelism = runtime.NumCPU()
	}

	e := &Engine{
		cfg:        cfg,
		adapter:    adapter,
		heuristic:  preprocess.NewColourSegmenter(cfg.Heuristic),
		filter:     filter,
		suppressor: suppressor,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if unnamed := filter.Unnamed(); cfg.Classes.Mode == postprocess.ClassStrict && len(unnamed) > 0 {
		e.log.Warn("classes of interest without a name are dropped in strict mode",
			"classes", unnamed)
	}

	return e, nil
}

// Config returns the configuration the Engine was created with
func (e *Engine) Config() Config {
	return e.cfg
}

// Result is the outcome of processing an image
type Result struct {
	// RunID identifies the call to Process in logs
	RunID  string `json:"run_id" yaml:"run_id"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	// Passes is the number of detection passes enumerated
	Passes int `json:"passes" yaml:"passes"`
	// Detections are the fused detections ordered by descending confidence
	Detections []result.Detection `json:"detections" yaml:"detections"`
	// Failures are the passes that contributed nothing, in pass order
	Failures []PassFailure       `json:"failures" yaml:"failures"`
	Summary  postprocess.Summary `json:"summary" yaml:"summary"`
}

// Process runs every detection pass over the BGR image and returns the
// fused detections.  A failed pass does not fail the call, it is recorded in
// the Result's Failures and processing continues with the remaining passes.
// An error is returned only if the image or configuration can not be used.
func (e *Engine) Process(ctx context.Context, img gocv.Mat) (*Result, error) {

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	start := time.Now()
	width, height := img.Cols(), img.Rows()

	passes, err := Enumerate(e.cfg, width, height)

	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := e.log.With("run_id", runID)

	log.Info("processing image", "width", width, "height", height,
		"mode", e.cfg.Mode, "passes", len(passes))

	agg := &aggregator{
		adapter:     e.adapter,
		heuristic:   e.heuristic,
		contrast:    e.cfg.Contrast,
		parallelism: e.cfg.Parallelism,
		passTimeout: e.cfg.PassTimeout,
		log:         log,
		metrics:     e.metrics,
	}

	raw, failures := agg.collect(ctx, img, passes)
	filtered := e.filter.Apply(raw)
	accepted := e.suppressor.Suppress(filtered)
	dets := result.NewBuilder(width, height).BuildAll(accepted)

	classes := make([]string, len(dets))

	for i, d := range dets {
		classes[i] = d.ClassName
	}

	e.metrics.observeImage(classes, time.Since(start))

	if len(failures) == len(passes) {
		log.Warn("every detection pass failed", "failures", len(failures))
	}

	log.Info("image processed", "proposals", len(raw), "filtered", len(filtered),
		"detections", len(dets), "failures", len(failures), "duration", time.Since(start))

	return &Result{
		RunID:      runID,
		Width:      width,
		Height:     height,
		Passes:     len(passes),
		Detections: dets,
		Failures:   failures,
		Summary:    postprocess.Summarise(raw, filtered, dets),
	}, nil
}
