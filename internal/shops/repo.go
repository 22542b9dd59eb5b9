package shops

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

// Repository reads shop records from the document store.
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Path returns the store path of a shop record.
func Path(shopID string) string {
	return store.Join("shops", shopID)
}

// FindByID loads a shop. Missing shops return store.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, shopID string) (*Profile, error) {
	if !store.ValidKey(shopID) {
		return nil, store.ErrNotFound
	}
	snap, err := r.store.Get(ctx, Path(shopID))
	if err != nil {
		return nil, fmt.Errorf("load shop %s: %w", shopID, err)
	}
	var profile Profile
	if err := snap.Decode(&profile); err != nil {
		return nil, err
	}
	profile.ID = shopID
	return &profile, nil
}
