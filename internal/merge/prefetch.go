package merge

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/registry"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// chunk is a run of consecutive samples of one sensor. err, if set,
// follows the samples.
type chunk struct {
	samples []types.Sample
	err     error
}

// PrefetchGroup runs value generation for each wrapped source on its own
// goroutine. Each goroutine stays at most one chunk ahead of the merge.
type PrefetchGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
	size   int

	running atomic.Int32
}

// NewPrefetchGroup creates a group whose goroutines stop when ctx is done
// or Close is called. size is the number of samples per chunk.
func NewPrefetchGroup(ctx context.Context, size int) *PrefetchGroup {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	return &PrefetchGroup{ctx: gctx, cancel: cancel, g: g, size: size}
}

// Wrap starts a producer goroutine for src and returns a source that reads
// from it.
func (p *PrefetchGroup) Wrap(src registry.Source) registry.Source {
	ps := &prefetched{
		spec: src.Spec(),
		ch:   make(chan chunk, 1),
		ctx:  p.ctx,
	}

	p.running.Add(1)
	p.g.Go(func() error {
		defer p.running.Add(-1)
		defer close(ps.ch)
		return p.produce(src, ps)
	})
	return ps
}

func (p *PrefetchGroup) produce(src registry.Source, ps *prefetched) error {
	for {
		c := chunk{samples: make([]types.Sample, 0, p.size)}
		exhausted := false
		for len(c.samples) < p.size {
			s, ok, err := src.Next()
			if err != nil {
				c.err = err
				break
			}
			if !ok {
				exhausted = true
				break
			}
			c.samples = append(c.samples, s)
		}

		if len(c.samples) > 0 || c.err != nil {
			select {
			case ps.ch <- c:
			case <-p.ctx.Done():
				return nil
			}
		}
		if c.err != nil {
			// Reported in-band; the merge surfaces it in order.
			return nil
		}
		if exhausted {
			ps.complete.Store(true)
			return nil
		}
	}
}

// Running returns the number of producer goroutines still alive.
func (p *PrefetchGroup) Running() int {
	return int(p.running.Load())
}

// Close stops all producers and waits for them to exit.
func (p *PrefetchGroup) Close() error {
	p.cancel()
	return p.g.Wait()
}

// prefetched is the consumer side of one producer.
type prefetched struct {
	spec     sensor.Spec
	ch       chan chunk
	ctx      context.Context
	complete atomic.Bool

	cur  []types.Sample
	pos  int
	err  error
	done bool
}

func (ps *prefetched) Spec() sensor.Spec { return ps.spec }

func (ps *prefetched) Next() (types.Sample, bool, error) {
	for ps.pos >= len(ps.cur) {
		if ps.err != nil {
			return types.Sample{}, false, ps.err
		}
		if ps.done {
			return types.Sample{}, false, nil
		}

		c, open := <-ps.ch
		if !open {
			if ps.complete.Load() {
				ps.done = true
				return types.Sample{}, false, nil
			}
			// Producer stopped early: the group was cancelled.
			ps.err = fmt.Errorf("%w: %w", errors.ErrInterrupted, context.Cause(ps.ctx))
			return types.Sample{}, false, ps.err
		}
		ps.cur, ps.pos, ps.err = c.samples, 0, c.err
	}

	s := ps.cur[ps.pos]
	ps.pos++
	return s, true, nil
}
