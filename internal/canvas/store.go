package canvas

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds the ordered shape list drawn on the canvas.
//
// Order is insertion order and doubles as z-order. At most one shape is
// unplaced at any time; Spawn enforces this by discarding the previous
// unplaced shape before appending. Placed shapes are never modified.
//
// A single RWMutex guards every operation. The dispatch loop is the only
// writer; renderers and viewers call Snapshot.
type Store struct {
	mu        sync.RWMutex
	shapes    []Shape
	version   uint64
	maxPlaced int

	hub     *Hub
	metrics *Metrics
	newID   func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxPlaced bounds the number of placed shapes. When placing a shape
// pushes the count above n the oldest placed shape is dropped. Zero keeps
// every shape forever.
func WithMaxPlaced(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxPlaced = n
		}
	}
}

// WithMetrics reports shape counts to the given metrics.
func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithIDGenerator overrides how shape IDs are assigned.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates an empty shape store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		hub:   NewHub(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentUnplaced returns the most recently inserted unplaced shape.
func (s *Store) CurrentUnplaced() (Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.unplacedIndex()
	if idx < 0 {
		return Shape{}, false
	}
	return s.shapes[idx], true
}

// Spawn discards the current unplaced shape, if any, and appends a new
// tentative shape at pos.
func (s *Store) Spawn(pos Point, color RGB) Shape {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.shapes[:0]
	for _, shape := range s.shapes {
		if shape.Placed {
			kept = append(kept, shape)
		}
	}
	// Clear the tail so discarded entries do not linger in the backing array.
	for i := len(kept); i < len(s.shapes); i++ {
		s.shapes[i] = Shape{}
	}
	s.shapes = kept

	shape := Shape{
		ID:       s.newID(),
		Position: pos,
		Color:    color,
		Opacity:  OpacityUnplaced,
		Placed:   false,
	}
	s.shapes = append(s.shapes, shape)
	s.changedLocked()
	return shape
}

// Relocate moves the unplaced shape to pos. It reports false and leaves the
// store untouched when there is no unplaced shape.
func (s *Store) Relocate(pos Point) (Shape, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.unplacedIndex()
	if idx < 0 {
		return Shape{}, false
	}
	s.shapes[idx].Position = pos
	s.changedLocked()
	return s.shapes[idx], true
}

// Place commits the unplaced shape. It reports false and leaves the store
// untouched when there is no unplaced shape.
func (s *Store) Place() (Shape, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.unplacedIndex()
	if idx < 0 {
		return Shape{}, false
	}
	s.shapes[idx].Opacity = OpacityPlaced
	s.shapes[idx].Placed = true
	placed := s.shapes[idx]
	s.evictLocked()
	s.changedLocked()
	return placed, true
}

// Snapshot returns a copy of the shape list in draw order.
func (s *Store) Snapshot() []Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// Len returns the number of shapes in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}

// Version increases by one on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe returns a channel that receives the store version after each
// mutation. Slow subscribers miss intermediate versions, never the channel
// itself blocking the writer.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	return s.hub.Subscribe()
}

func (s *Store) unplacedIndex() int {
	for i := len(s.shapes) - 1; i >= 0; i-- {
		if !s.shapes[i].Placed {
			return i
		}
	}
	return -1
}

func (s *Store) evictLocked() {
	if s.maxPlaced <= 0 {
		return
	}
	placed := 0
	for _, shape := range s.shapes {
		if shape.Placed {
			placed++
		}
	}
	for placed > s.maxPlaced {
		for i, shape := range s.shapes {
			if shape.Placed {
				s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
				break
			}
		}
		placed--
	}
}

func (s *Store) changedLocked() {
	s.version++
	if s.metrics != nil {
		placed, unplaced := 0, 0
		for _, shape := range s.shapes {
			if shape.Placed {
				placed++
			} else {
				unplaced++
			}
		}
		s.metrics.SetShapes(placed, unplaced)
	}
	s.hub.Broadcast(s.version)
}
