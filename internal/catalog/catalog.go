// Package catalog holds the fixed product list and the per-session carousel
// selection over it.
package catalog

import (
	"fmt"

	"github.com/abgdnv/bathifarms/internal/cart"
)

type Product struct {
	ID    string `koanf:"id" json:"id"`
	Name  string `koanf:"name" json:"name"`
	Price int64  `koanf:"price" json:"price"`
	Image string `koanf:"image" json:"image"`
}

// DefaultProducts is the farm's standard range, in carousel order.
func DefaultProducts() []Product {
	return []Product{
		{ID: "sheep", Name: "Premium Sheep", Price: 28999, Image: "/images/sheep.jpg"},
		{ID: "chicken", Name: "Free-Range Chickens", Price: 1999, Image: "/images/chicken.jpg"},
		{ID: "eggs", Name: "Fresh Eggs", Price: 650, Image: "/images/eggs.jpg"},
		{ID: "milk", Name: "Fresh Milk", Price: 420, Image: "/images/milk.jpg"},
	}
}

// Catalog is an immutable, ordered product list.
type Catalog struct {
	products []Product
}

// New validates products and builds a catalog. An empty list falls back to DefaultProducts.
func New(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		products = DefaultProducts()
	}
	if err := Validate(products); err != nil {
		return nil, err
	}
	return &Catalog{products: append([]Product(nil), products...)}, nil
}

// Validate rejects incomplete products, prices outside [0, cart.MaxPrice] and duplicate ids.
func Validate(products []Product) error {
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if p.ID == "" {
			return fmt.Errorf("catalog product #%d has no id", i)
		}
		if p.Name == "" {
			return fmt.Errorf("catalog product %q has no name", p.ID)
		}
		if p.Price < 0 {
			return fmt.Errorf("catalog product %q has a negative price", p.ID)
		}
		if p.Price > cart.MaxPrice {
			return fmt.Errorf("catalog product %q is priced above %d", p.ID, cart.MaxPrice)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("catalog product %q is listed twice", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// At returns the product at position i. The caller keeps i in range.
func (c *Catalog) At(i int) Product {
	return c.products[i]
}

// Find looks up a product by id.
func (c *Catalog) Find(id string) (Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
