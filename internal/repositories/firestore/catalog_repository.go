package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/acp-commerce/api/internal/domain"
	platform "github.com/acp-commerce/api/internal/platform/firestore"
)

const defaultProductCollection = "products"

// Catalog reads product documents used for pricing and stock checks.
type Catalog struct {
	provider   *platform.Provider
	collection string
}

// NewCatalog constructs a Firestore-backed catalog repository.
func NewCatalog(provider *platform.Provider, collection string) (*Catalog, error) {
	if provider == nil {
		return nil, errors.New("firestore catalog: provider is required")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultProductCollection
	}
	return &Catalog{provider: provider, collection: collection}, nil
}

// GetProducts fetches the requested product documents in one batch. Missing
// ids are omitted from the result rather than treated as errors.
func (c *Catalog) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, platform.WrapError("products.get", err)
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, client.Collection(c.collection).Doc(id))
	}

	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return out, nil
		}
		return nil, platform.WrapError("products.get", err)
	}

	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("products.get: decode %s: %w", snap.Ref.ID, err)
		}
		product := doc.toDomain()
		if product.ID == "" {
			product.ID = snap.Ref.ID
		}
		out[product.ID] = product
	}
	return out, nil
}

type productDocument struct {
	ID        string `firestore:"id"`
	Title     string `firestore:"title"`
	BasePrice int64  `firestore:"base_price"`
	Currency  string `firestore:"currency"`
	Stock     int64  `firestore:"stock"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product(d)
}
