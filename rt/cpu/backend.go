// Package cpu runs the rain pipeline on the host: the update kernel is dispatched as
// goroutine workgroups and the instanced draws produce geometry instead of pixels.
// It backs headless runs and the orchestrator tests.
package cpu

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
	"golang.org/x/sync/errgroup"
)

// ErrBarrierMissing is returned when a draw reads buffers that a dispatch is still writing.
var ErrBarrierMissing = errors.New("draw issued before barrier following dispatch")

var errForeignBuffers = errors.New("buffers were not allocated by the cpu backend")

// Buffers is host memory standing in for the two storage buffers.
type Buffers struct {
	Drops    []core.Raindrop
	Splashes []core.Splash
}

func (b *Buffers) Len() int { return len(b.Drops) }

func (b *Buffers) Release() {
	b.Drops = nil
	b.Splashes = nil
}

type Backend struct {
	// MaxWorkers bounds concurrently running workgroups. Zero means GOMAXPROCS.
	MaxWorkers int

	group   *errgroup.Group
	pending bool
	frame   Frame
}

func NewBackend() *Backend {
	return &Backend{}
}

func (c *Backend) Allocate(drops []core.Raindrop, splashes []core.Splash) (particles.Buffers, error) {
	if len(drops) != len(splashes) {
		return nil, particles.ErrCapacityMismatch
	}
	b := &Buffers{
		Drops:    make([]core.Raindrop, len(drops)),
		Splashes: make([]core.Splash, len(splashes)),
	}
	copy(b.Drops, drops)
	copy(b.Splashes, splashes)
	return b, nil
}

func buffersOf(pb particles.Buffers) (*Buffers, error) {
	b, ok := pb.(*Buffers)
	if !ok {
		return nil, errForeignBuffers
	}
	return b, nil
}

// Dispatch starts one task per workgroup of core.WorkgroupSize indices.
// The writes are only guaranteed visible after Barrier.
func (c *Backend) Dispatch(pb particles.Buffers, p core.UpdateParams) error {
	if pb == nil || pb.Len() == 0 {
		return nil
	}
	b, err := buffersOf(pb)
	if err != nil {
		return err
	}
	// Dispatches on one queue execute in submission order.
	if err := c.wait(); err != nil {
		return err
	}

	n := len(b.Drops)
	if int(p.Count) < n {
		n = int(p.Count)
	}
	workers := c.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	groups := core.Workgroups(n)
	for wg := uint32(0); wg < groups; wg++ {
		start := int(wg) * core.WorkgroupSize
		end := start + core.WorkgroupSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				core.StepRaindrop(uint32(i), &b.Drops[i], &b.Splashes[i], p)
			}
			return nil
		})
	}
	c.group = g
	c.pending = true
	c.frame.Dispatches++
	c.frame.Workgroups += int(groups)
	return nil
}

func (c *Backend) wait() error {
	if c.group == nil {
		return nil
	}
	err := c.group.Wait()
	c.group = nil
	c.pending = false
	return err
}

// Barrier blocks until every workgroup of the last dispatch has finished.
func (c *Backend) Barrier(pb particles.Buffers) error {
	c.frame.Barriers++
	if err := c.wait(); err != nil {
		return fmt.Errorf("rain update: %w", err)
	}
	return nil
}

func (c *Backend) ReadBack(pb particles.Buffers, drops []core.Raindrop, splashes []core.Splash) error {
	b, err := buffersOf(pb)
	if err != nil {
		return err
	}
	if err := c.wait(); err != nil {
		return err
	}
	copy(drops, b.Drops)
	copy(splashes, b.Splashes)
	return nil
}

// LastFrame returns what was recorded since the last ResetFrame.
func (c *Backend) LastFrame() *Frame { return &c.frame }

func (c *Backend) ResetFrame() { c.frame = Frame{} }
