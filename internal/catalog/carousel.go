package catalog

import (
	"fmt"
	"sync"
	"time"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
)

// Carousel is the selection index of one visitor. It is UI state only and
// is never persisted.
type Carousel struct {
	mu      sync.Mutex
	catalog *Catalog
	index   int
}

func NewCarousel(c *Catalog) *Carousel {
	return &Carousel{catalog: c}
}

// Next advances to the following product, wrapping to the first.
func (c *Carousel) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = (c.index + 1) % c.catalog.Len()
	return c.index
}

// Prev goes back one product, wrapping to the last.
func (c *Carousel) Prev() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.catalog.Len()
	c.index = (c.index - 1 + n) % n
	return c.index
}

// Select jumps to index i. Returns ErrInvalidIndex outside [0, N).
func (c *Carousel) Select(i int) error {
	if i < 0 || i >= c.catalog.Len() {
		return fmt.Errorf("%w: %d not in [0, %d)", carterrors.ErrInvalidIndex, i, c.catalog.Len())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = i
	return nil
}

func (c *Carousel) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns the centered product.
func (c *Carousel) Current() Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.At(c.index)
}

// Carousels keeps one Carousel per session until it is evicted as idle.
type Carousels struct {
	mu      sync.Mutex
	catalog *Catalog
	bySess  map[string]*tracked
	now     func() time.Time
}

type tracked struct {
	carousel *Carousel
	lastUsed time.Time
}

func NewCarousels(c *Catalog) *Carousels {
	return &Carousels{catalog: c, bySess: make(map[string]*tracked), now: time.Now}
}

// For returns the carousel of a session, creating it at index 0.
func (cs *Carousels) For(sessionID string) *Carousel {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	t, ok := cs.bySess[sessionID]
	if !ok {
		t = &tracked{carousel: NewCarousel(cs.catalog)}
		cs.bySess[sessionID] = t
	}
	t.lastUsed = cs.now()
	return t.carousel
}

// Evict forgets carousels unused for idle. An evicted session starts again
// at index 0.
func (cs *Carousels) Evict(idle time.Duration) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cutoff := cs.now().Add(-idle)
	evicted := 0
	for id, t := range cs.bySess {
		if t.lastUsed.Before(cutoff) {
			delete(cs.bySess, id)
			evicted++
		}
	}
	return evicted
}
