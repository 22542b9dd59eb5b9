package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// Product is the catalog entry at products/{shopId}/{productId}.
type Product struct {
	ID          string           `json:"-"`
	Name        string           `json:"name"`
	Price       *types.FlexFloat `json:"price"`
	InStock     *bool            `json:"inStock,omitempty"`
	ServiceType string           `json:"serviceType,omitempty"`
	Category    string           `json:"category,omitempty"`
}

// Available treats a missing inStock flag as in stock.
func (p *Product) Available() bool {
	return p.InStock == nil || *p.InStock
}

type productReader struct {
	store store.Store
}

func (r productReader) find(ctx context.Context, shopID, productID string) (*Product, error) {
	if !store.ValidKey(shopID) || !store.ValidKey(productID) {
		return nil, store.ErrNotFound
	}
	snap, err := r.store.Get(ctx, store.Join("products", shopID, productID))
	if err != nil {
		return nil, fmt.Errorf("load product %s/%s: %w", shopID, productID, err)
	}
	var product Product
	if err := snap.Decode(&product); err != nil {
		return nil, err
	}
	product.ID = productID
	return &product, nil
}
