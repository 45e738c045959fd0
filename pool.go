package detfusion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

// Pool is a simple pool of adapters for detectors that can not be shared
// between goroutines, such as one model runtime per NPU core.  The Pool is
// itself an Adapter, each Detect call borrows an adapter for its duration.
type Pool struct {
	// pool of adapters
	adapters chan Adapter
	// size of pool
	size   int
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new adapter pool of the given size.  newAdapter is called
// once for each slot with the slot index.
func NewPool(size int, newAdapter func(i int) (Adapter, error)) (*Pool, error) {

	if size <= 0 {
		return nil, fmt.Errorf("%w: pool size %d", ErrConfiguration, size)
	}

	p := &Pool{
		adapters: make(chan Adapter, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		a, err := newAdapter(i)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, fmt.Errorf("%w: creating adapter %d: %w", ErrAdapterUnavailable, i, err)
		}

		// attach to pool
		p.Return(a)
	}

	return p, nil
}

// Get an adapter from the pool, blocking until one is available or the
// context is done
func (p *Pool) Get(ctx context.Context) (Adapter, error) {
	select {
	case a, ok := <-p.adapters:
		if !ok {
			return nil, fmt.Errorf("%w: pool closed", ErrAdapterUnavailable)
		}
		return a, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return an adapter to the pool
func (p *Pool) Return(a Adapter) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		closeAdapter(a)
		return
	}

	select {
	case p.adapters <- a:
	default:
		// pool is full
	}
}

// Size returns the number of adapters the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Detect borrows an adapter from the pool and runs detection with it
func (p *Pool) Detect(ctx context.Context, region gocv.Mat, variant string,
	threshold float32) ([]result.RawDetection, error) {

	a, err := p.Get(ctx)

	if err != nil {
		return nil, err
	}

	defer p.Return(a)

	return a.Detect(ctx, region, variant, threshold)
}

// Close the pool and all adapters in it that implement io.Closer.  Adapters
// borrowed at the time of closing are closed when returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	// close channel
	close(p.adapters)

	var errs []error

	// close all adapters
	for next := range p.adapters {
		errs = append(errs, closeAdapter(next))
	}

	return errors.Join(errs...)
}

// closeAdapter closes the adapter if it holds resources
func closeAdapter(a Adapter) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
