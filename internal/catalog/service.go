package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
	carterrors "github.com/abgdnv/bathifarms/internal/errors"
)

// CarouselService exposes the catalog and the carousel of each session.
type CarouselService interface {
	// Products returns the catalog in carousel order.
	Products() []Product

	// State returns the current carousel position of a session.
	State(sessionID string) State

	// Next and Prev move the carousel by one position with wrap-around.
	Next(sessionID string) State
	Prev(sessionID string) State

	// Select centers the product at index.
	// Returns ErrInvalidIndex if index is outside the catalog.
	Select(sessionID string, index int) (State, error)

	// AddCurrent adds quantity units of the centered product to the session cart.
	// Returns ErrInvalidLineItem for quantity < 1 and ErrStorageUnavailable if the cart cannot be saved.
	AddCurrent(ctx context.Context, sessionID string, quantity int64) (*AddResult, error)

	// AddProduct adds quantity units of the catalog product id to the session cart.
	// Name, price and image always come from the catalog.
	// Returns ErrInvalidLineItem for an unknown id or a quantity out of range.
	AddProduct(ctx context.Context, sessionID, id string, quantity int64) (*AddResult, error)
}

// State is the carousel position as seen by the browser.
type State struct {
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Product Product `json:"product"`
}

type AddResult struct {
	Added Product   `json:"added"`
	Cart  cart.View `json:"cart"`
}

var _ CarouselService = (*Service)(nil)

type Service struct {
	catalog   *Catalog
	carousels *Carousels
	carts     *cart.Registry
}

func NewService(c *Catalog, carts *cart.Registry) *Service {
	return &Service{catalog: c, carousels: NewCarousels(c), carts: carts}
}

func (s *Service) Products() []Product {
	return s.catalog.Products()
}

func (s *Service) State(sessionID string) State {
	return s.state(s.carousels.For(sessionID))
}

func (s *Service) Next(sessionID string) State {
	c := s.carousels.For(sessionID)
	c.Next()
	return s.state(c)
}

func (s *Service) Prev(sessionID string) State {
	c := s.carousels.For(sessionID)
	c.Prev()
	return s.state(c)
}

func (s *Service) Select(sessionID string, index int) (State, error) {
	c := s.carousels.For(sessionID)
	if err := c.Select(index); err != nil {
		return State{}, err
	}
	return s.state(c), nil
}

func (s *Service) AddCurrent(ctx context.Context, sessionID string, quantity int64) (*AddResult, error) {
	return s.add(ctx, sessionID, s.carousels.For(sessionID).Current(), quantity)
}

func (s *Service) AddProduct(ctx context.Context, sessionID, id string, quantity int64) (*AddResult, error) {
	product, ok := s.catalog.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown product %q", carterrors.ErrInvalidLineItem, id)
	}
	return s.add(ctx, sessionID, product, quantity)
}

// Evict forgets carousels unused for idle.
func (s *Service) Evict(idle time.Duration) int {
	return s.carousels.Evict(idle)
}

func (s *Service) add(ctx context.Context, sessionID string, product Product, quantity int64) (*AddResult, error) {
	store, err := s.carts.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	err = store.Add(ctx, cart.LineItem{
		ID:       product.ID,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: quantity,
		Image:    product.Image,
	})
	if err != nil {
		return nil, err
	}
	return &AddResult{Added: product, Cart: store.View()}, nil
}

func (s *Service) state(c *Carousel) State {
	i := c.Index()
	return State{Index: i, Total: s.catalog.Len(), Product: s.catalog.At(i)}
}
