package detfusion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/swdee/go-detfusion/preprocess"
	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// PassFailure records a detection pass that contributed no proposals because
// its adapter failed or the pass was abandoned
type PassFailure struct {
	Pass Pass `json:"pass" yaml:"pass"`
	// Err wraps ErrAdapterUnavailable or ErrAdapterInference
	Err    error  `json:"-" yaml:"-"`
	Reason string `json:"reason" yaml:"reason"`
}

// Error implements the error interface
func (f PassFailure) Error() string {
	return fmt.Sprintf("pass %s: %v", f.Pass, f.Err)
}

// Unwrap returns the underlying error
func (f PassFailure) Unwrap() error {
	return f.Err
}

// aggregator runs the detection passes for an image and gathers their
// proposals into a single pool
type aggregator struct {
	adapter     Adapter
	heuristic   Adapter
	contrast    preprocess.Contrast
	parallelism int
	passTimeout time.Duration
	log         *slog.Logger
	metrics     *Metrics

	// mu guards the pool while passes are running
	mu        sync.Mutex
	proposals []result.Proposal
	failures  []PassFailure
	// inflight counts adapter calls that have not returned, including calls
	// the aggregator stopped waiting on
	inflight sync.WaitGroup
}

// collect runs every pass and returns the proposal pool in global image
// coordinates along with the passes that failed.  It returns once every pass
// has completed or been recorded as failed; the pool is not written to after.
func (a *aggregator) collect(ctx context.Context, img gocv.Mat,
	passes []Pass) ([]result.Proposal, []PassFailure) {

	enhanced, enhanceErr := a.prepareContrast(img, passes)

	var g errgroup.Group
	g.SetLimit(a.parallelism)

	for _, p := range passes {
		g.Go(func() error {
			a.runPass(ctx, img, enhanced, enhanceErr, p)
			return nil
		})
	}

	// errors are contained per pass so Wait never returns one
	_ = g.Wait()

	if enhanced != nil {
		// abandoned adapter calls may still be reading the enhanced image
		go func() {
			a.inflight.Wait()
			enhanced.Close()
		}()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// sort failures into pass order, completion order is not deterministic
	failures := make([]PassFailure, 0, len(a.failures))
	byIndex := make(map[int]PassFailure, len(a.failures))

	for _, f := range a.failures {
		byIndex[f.Pass.Index] = f
	}

	for _, p := range passes {
		if f, ok := byIndex[p.Index]; ok {
			failures = append(failures, f)
		}
	}

	return a.proposals, failures
}

// prepareContrast creates the contrast enhanced copy of the image if any pass
// requires it
func (a *aggregator) prepareContrast(img gocv.Mat, passes []Pass) (*gocv.Mat, error) {

	for _, p := range passes {
		if p.Technique != TechniqueContrast {
			continue
		}

		dst := gocv.NewMat()

		if err := a.contrast.Apply(img, &dst); err != nil {
			dst.Close()
			return nil, err
		}

		return &dst, nil
	}

	return nil, nil
}

// runPass runs a single pass and merges its proposals into the pool
func (a *aggregator) runPass(ctx context.Context, img gocv.Mat, enhanced *gocv.Mat,
	enhanceErr error, p Pass) {

	start := time.Now()
	log := a.log.With("pass", p.Index, "variant", p.Variant, "technique", string(p.Technique))

	var raws []result.RawDetection
	var err error

	if p.Technique == TechniqueContrast && enhanced == nil {
		err = fmt.Errorf("%w: contrast enhancement: %w", ErrAdapterInference, enhanceErr)
	} else {
		raws, err = a.invoke(ctx, img, enhanced, p)
	}

	if err != nil {
		a.metrics.observePass(p.Technique, true, 0, 0, time.Since(start))
		log.Warn("detection pass failed", "error", err)

		a.mu.Lock()
		a.failures = append(a.failures, PassFailure{Pass: p, Err: err, Reason: err.Error()})
		a.mu.Unlock()

		return
	}

	prov := p.Provenance()
	proposals := make([]result.Proposal, 0, len(raws))
	malformed := 0

	for i, raw := range raws {
		box, err := result.NewBox(raw.Box.X1, raw.Box.Y1, raw.Box.X2, raw.Box.Y2)

		if err == nil && !validProbability(raw.Probability) {
			err = fmt.Errorf("%w: confidence %v outside [0, 1]", ErrMalformedBox, raw.Probability)
		}

		if err != nil {
			malformed++
			log.Debug("dropping malformed proposal", "error", err)
			continue
		}

		// remap tile local coordinates into the source image
		if p.Tile != nil {
			box = p.Tile.ToGlobal(box)
		}

		proposals = append(proposals, result.Proposal{
			Box:         box,
			Probability: raw.Probability,
			Class:       raw.Class,
			Provenance:  prov,
			Seq:         i,
		})
	}

	a.metrics.observePass(p.Technique, false, len(proposals), malformed, time.Since(start))
	log.Debug("detection pass complete", "proposals", len(proposals), "malformed", malformed,
		"duration", time.Since(start))

	a.mu.Lock()
	a.proposals = append(a.proposals, proposals...)
	a.mu.Unlock()
}

// reply is the outcome of an adapter call
type reply struct {
	dets []result.RawDetection
	err  error
}

// invoke calls the adapter for the pass on the pass region.  It stops
// waiting when the pass deadline or the caller's context is done, treating
// the pass as failed.
func (a *aggregator) invoke(ctx context.Context, img gocv.Mat, enhanced *gocv.Mat,
	p Pass) ([]result.RawDetection, error) {

	if a.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.passTimeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: pass not started: %w", ErrAdapterInference, err)
	}

	adapter := a.adapter

	if p.Technique == TechniqueHeuristic {
		adapter = a.heuristic
	}

	var region gocv.Mat
	closeRegion := true

	// every region other than the contrast copy gets its own header on the
	// pixel data, so an abandoned call can outlive the caller closing img
	switch p.Technique {
	case TechniqueTiled:
		var err error
		region, err = preprocess.TileRegion(img, *p.Tile)

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAdapterInference, err)
		}

	case TechniqueContrast:
		// closed by collect once every inflight call has returned
		region = *enhanced
		closeRegion = false

	default:
		region = img.Region(image.Rect(0, 0, img.Cols(), img.Rows()))
	}

	if adapter == nil {
		if closeRegion {
			region.Close()
		}
		return nil, fmt.Errorf("%w: no adapter for %s pass", ErrAdapterUnavailable, p.Technique)
	}

	done := make(chan reply, 1)
	a.inflight.Add(1)

	go func() {
		defer a.inflight.Done()

		var r reply

		defer func() {
			if rec := recover(); rec != nil {
				r = reply{err: fmt.Errorf("%w: adapter panic: %v", ErrAdapterInference, rec)}
			}

			if closeRegion {
				region.Close()
			}

			done <- r
		}()

		r.dets, r.err = adapter.Detect(ctx, region, p.Variant, p.Threshold)
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, adapterError(r.err)
		}
		return r.dets, nil

	case <-ctx.Done():
		return nil, fmt.Errorf("%w: pass abandoned: %w", ErrAdapterInference, ctx.Err())
	}
}

// adapterError makes sure an adapter error wraps one of the adapter
// sentinel errors
func adapterError(err error) error {
	if errors.Is(err, ErrAdapterUnavailable) || errors.Is(err, ErrAdapterInference) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAdapterInference, err)
}

// validProbability reports whether p is a confidence score in [0, 1]
func validProbability(p float32) bool {
	return !math.IsNaN(float64(p)) && p >= 0 && p <= 1
}
