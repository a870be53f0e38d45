package particles

import (
	"errors"
	"fmt"

	"github.com/gekko3d/rainfx/rt/core"
)

// ErrCapacityMismatch is returned when the splash and raindrop arrays (or their
// backend buffers) disagree on capacity.
var ErrCapacityMismatch = errors.New("splash capacity must equal raindrop count")

// Buffers are the backend-side storage for one allocation.
type Buffers interface {
	Len() int
	Release()
}

// Allocator creates backend storage initialized from the given arrays.
type Allocator interface {
	Allocate(drops []core.Raindrop, splashes []core.Splash) (Buffers, error)
}

// Reader copies backend storage back into host arrays.
type Reader interface {
	ReadBack(b Buffers, drops []core.Raindrop, splashes []core.Splash) error
}

// Store owns the CPU mirrors and the backend buffers of the two particle arrays.
// The zero value is an empty, inert store.
type Store struct {
	drops    []core.Raindrop
	splashes []core.Splash
	buffers  Buffers
}

func NewStore() *Store {
	return &Store{}
}

// Initialize releases any prior allocation, samples count drops from the emitter and
// allocates exactly count slots. count <= 0 leaves the store empty.
func (s *Store) Initialize(count int, e core.Emitter, rng core.RandSource, alloc Allocator) error {
	s.Teardown()
	if count <= 0 {
		return nil
	}

	drops := make([]core.Raindrop, count)
	splashes := make([]core.Splash, count)
	for i := range drops {
		drops[i] = core.NewRaindrop(rng, e)
		splashes[i] = core.InactiveSplash()
	}

	bufs, err := alloc.Allocate(drops, splashes)
	if err != nil {
		return fmt.Errorf("allocate %d rain slots: %w", count, err)
	}
	if bufs == nil || bufs.Len() != count {
		if bufs != nil {
			bufs.Release()
		}
		return fmt.Errorf("allocate %d rain slots: %w", count, ErrCapacityMismatch)
	}

	s.drops = drops
	s.splashes = splashes
	s.buffers = bufs
	return nil
}

// Teardown releases all buffers and clears the mirrors. Safe to call on an empty store.
func (s *Store) Teardown() {
	if s.buffers != nil {
		s.buffers.Release()
		s.buffers = nil
	}
	s.drops = nil
	s.splashes = nil
}

func (s *Store) Initialized() bool { return s.buffers != nil && len(s.drops) > 0 }

func (s *Store) Len() int { return len(s.drops) }

func (s *Store) Buffers() Buffers { return s.buffers }

// Raindrops returns the CPU mirror. It holds the initial values until Sync is called.
func (s *Store) Raindrops() []core.Raindrop { return s.drops }

func (s *Store) Splashes() []core.Splash { return s.splashes }

// Sync refreshes the CPU mirrors from the backend.
func (s *Store) Sync(r Reader) error {
	if !s.Initialized() {
		return nil
	}
	return r.ReadBack(s.buffers, s.drops, s.splashes)
}
