package users

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

// Repository reads user profiles from the document store.
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

func Path(uid string) string {
	return store.Join("users", uid)
}

// FindByID loads a user profile. Missing users return store.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, uid string) (*DeliveryProfile, error) {
	if !store.ValidKey(uid) {
		return nil, store.ErrNotFound
	}
	snap, err := r.store.Get(ctx, Path(uid))
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uid, err)
	}
	var profile DeliveryProfile
	if err := snap.Decode(&profile); err != nil {
		return nil, err
	}
	profile.UID = uid
	return &profile, nil
}

// PushToken returns the stored Expo token, empty when none is registered.
func (r *Repository) PushToken(ctx context.Context, uid string) (string, error) {
	if !store.ValidKey(uid) {
		return "", nil
	}
	snap, err := r.store.Get(ctx, store.Join(Path(uid), "expoPushToken"))
	if err != nil {
		return "", fmt.Errorf("load push token %s: %w", uid, err)
	}
	token, _ := snap.Value().(string)
	return token, nil
}
