package memory

import (
	"context"
	"sync"

	"github.com/acp-commerce/api/internal/domain"
)

// Catalog is an in-memory product catalog.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewCatalog constructs a catalog seeded with the supplied products.
func NewCatalog(products ...domain.Product) *Catalog {
	catalog := &Catalog{products: make(map[string]domain.Product, len(products))}
	for _, product := range products {
		catalog.products[product.ID] = product
	}
	return catalog
}

// GetProducts returns the subset of requested products that exist. Callers
// treat absent ids as unavailable stock.
func (c *Catalog) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := c.products[id]; ok {
			out[id] = product
		}
	}
	return out, nil
}

// Upsert adds or replaces a product.
func (c *Catalog) Upsert(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID] = product
}
