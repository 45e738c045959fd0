package detfusion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

// closingAdapter is an adapter that records being closed
type closingAdapter struct {
	id     int
	closed atomic.Bool
}

func (c *closingAdapter) Detect(ctx context.Context, region gocv.Mat, variant string,
	threshold float32) ([]result.RawDetection, error) {
	return []result.RawDetection{{
		Box:         result.Box{X1: 0, Y1: 0, X2: 1, Y2: 1},
		Probability: threshold,
		Class:       c.id,
	}}, nil
}

func (c *closingAdapter) Close() error {
	c.closed.Store(true)
	return nil
}

func newClosingPool(t *testing.T, size int) (*Pool, []*closingAdapter) {
	t.Helper()

	var created []*closingAdapter

	pool, err := NewPool(size, func(i int) (Adapter, error) {
		a := &closingAdapter{id: i}
		created = append(created, a)
		return a, nil
	})
	require.NoError(t, err)

	return pool, created
}

func TestPoolGetReturn(t *testing.T) {

	pool, _ := newClosingPool(t, 2)
	defer pool.Close()

	assert.Equal(t, 2, pool.Size())

	ctx := context.Background()

	a, err := pool.Get(ctx)
	require.NoError(t, err)
	b, err := pool.Get(ctx)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	// pool is empty, Get waits until the context is done
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = pool.Get(cancelled)
	assert.ErrorIs(t, err, context.Canceled)

	pool.Return(a)

	c, err := pool.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, a, c)

	pool.Return(b)
	pool.Return(c)
}

func TestPoolDetect(t *testing.T) {

	pool, _ := newClosingPool(t, 1)
	defer pool.Close()

	img := gocv.NewMat()
	defer img.Close()

	dets, err := pool.Detect(context.Background(), img, "m", 0.25)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, float32(0.25), dets[0].Probability)

	// adapter was returned so a second call does not block
	_, err = pool.Detect(context.Background(), img, "m", 0.25)
	assert.NoError(t, err)
}

func TestPoolClose(t *testing.T) {

	pool, created := newClosingPool(t, 3)

	borrowed, err := pool.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, pool.Close())

	closed := 0
	for _, a := range created {
		if a.closed.Load() {
			closed++
		}
	}
	assert.Equal(t, 2, closed)

	// borrowed adapter is closed once returned
	pool.Return(borrowed)
	assert.True(t, borrowed.(*closingAdapter).closed.Load())

	_, err = pool.Get(context.Background())
	assert.ErrorIs(t, err, ErrAdapterUnavailable)

	// closing twice is a no-op
	assert.NoError(t, pool.Close())
}

func TestNewPoolErrors(t *testing.T) {

	_, err := NewPool(0, func(i int) (Adapter, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrConfiguration)

	var created []*closingAdapter

	_, err = NewPool(3, func(i int) (Adapter, error) {
		if i == 2 {
			return nil, errors.New("model file missing")
		}
		a := &closingAdapter{id: i}
		created = append(created, a)
		return a, nil
	})
	require.ErrorIs(t, err, ErrAdapterUnavailable)

	// adapters created before the failure are released
	require.Len(t, created, 2)
	for _, a := range created {
		assert.True(t, a.closed.Load())
	}
}
