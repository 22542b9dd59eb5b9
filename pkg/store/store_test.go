package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/angelmondragon/swiftcart-backend/pkg/db"
	"github.com/angelmondragon/swiftcart-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type cartLine struct {
	ProductName string  `json:"productname"`
	Price       float64 `json:"price"`
	Qty         int     `json:"qty"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.StoreNode{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormStore, err := NewGorm(db.NewFromConn(conn))
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemory(),
		"gorm":   gormStore,
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "carts/u1/shop_1", map[string]any{
				"shopname": "Tandoor",
				"p1":       cartLine{ProductName: "Naan", Price: 40, Qty: 2},
			}))

			snap, err := s.Get(ctx, "carts/u1/shop_1")
			require.NoError(t, err)
			require.True(t, snap.Exists())
			assert.Equal(t, "shop_1", snap.Key())
			assert.Equal(t, "Tandoor", snap.Child("shopname").Value())

			var line cartLine
			require.NoError(t, snap.Child("p1").Decode(&line))
			assert.Equal(t, cartLine{ProductName: "Naan", Price: 40, Qty: 2}, line)

			leaf, err := s.Get(ctx, "carts/u1/shop_1/p1/qty")
			require.NoError(t, err)
			assert.Equal(t, float64(2), leaf.Value())
		})
	}
}

func TestSetReplacesSubtree(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"name": "A", "phone": "1"}))
			require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"name": "B"}))

			snap, err := s.Get(ctx, "users/u1")
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"name": "B"}, snap.Value())
		})
	}
}

func TestSetOverScalarAncestor(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "admin_data/general", "legacy"))
			require.NoError(t, s.Set(ctx, "admin_data/general/deliveryChargePerKm", 7))

			snap, err := s.Get(ctx, "admin_data/general")
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"deliveryChargePerKm": float64(7)}, snap.Value())
		})
	}
}

func TestRemoveAndMissingPaths(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "carts/u1/s1/p1/qty", 1))
			require.NoError(t, s.Set(ctx, "carts/u1/updatedAt", 10))

			require.NoError(t, s.Remove(ctx, "carts/u1/s1"))

			gone, err := s.Get(ctx, "carts/u1/s1")
			require.NoError(t, err)
			assert.False(t, gone.Exists())

			kept, err := s.Get(ctx, "carts/u1/updatedAt")
			require.NoError(t, err)
			assert.Equal(t, float64(10), kept.Value())

			require.NoError(t, s.Remove(ctx, "carts/nobody"))
			var dest map[string]any
			assert.ErrorIs(t, gone.Decode(&dest), ErrNotFound)
		})
	}
}

func TestPrefixDoesNotMatchSiblings(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "orders/u1/o1/total", 10))
			require.NoError(t, s.Set(ctx, "orders/u10/o2/total", 20))
			require.NoError(t, s.Set(ctx, "orders/u1_x/o3/total", 30))

			snap, err := s.Get(ctx, "orders/u1")
			require.NoError(t, err)
			children := snap.Children()
			require.Len(t, children, 1)
			assert.Equal(t, "o1", children[0].Key())

			require.NoError(t, s.Remove(ctx, "orders/u1"))
			other, err := s.Get(ctx, "orders/u10/o2/total")
			require.NoError(t, err)
			assert.Equal(t, float64(20), other.Value())
		})
	}
}

func TestChildKeysPagesWithoutValues(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"o3", "o1", "o2"} {
				require.NoError(t, s.Set(ctx, "cart_cleanups/"+id, map[string]any{"userId": "u1", "shopId": "s1"}))
			}
			require.NoError(t, s.Set(ctx, "cart_cleanups_other/o0/userId", "u2"))

			keys, err := s.ChildKeys(ctx, "cart_cleanups", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"o1", "o2"}, keys)

			all, err := s.ChildKeys(ctx, "cart_cleanups", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"o1", "o2", "o3"}, all)

			none, err := s.ChildKeys(ctx, "cart_cleanups/o1/userId", 5)
			require.NoError(t, err)
			assert.Empty(t, none)

			missing, err := s.ChildKeys(ctx, "nothing", 5)
			require.NoError(t, err)
			assert.Empty(t, missing)
		})
	}
}

func TestUpdateIsMultiPath(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "carts/u1/s1/p1", cartLine{ProductName: "Tea", Price: 20, Qty: 1}))

			require.NoError(t, s.Update(ctx, map[string]any{
				"orders/u1/o1": map[string]any{"total": 50, "status": "pending"},
				"carts/u1/s1":  nil,
			}))

			order, err := s.Get(ctx, "orders/u1/o1/status")
			require.NoError(t, err)
			assert.Equal(t, "pending", order.Value())

			cart, err := s.Get(ctx, "carts/u1")
			require.NoError(t, err)
			assert.False(t, cart.Exists())
		})
	}
}

func TestUpdateRejectsOverlapAndInvalidKeys(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.Update(ctx, map[string]any{
				"orders/u1":    map[string]any{"x": 1},
				"orders/u1/o1": map[string]any{"y": 2},
			})
			assert.ErrorIs(t, err, ErrOverlappingPaths)

			assert.ErrorIs(t, s.Set(ctx, "coupons/s1/SAVE.10", 10), ErrInvalidPath)
			assert.ErrorIs(t, s.Set(ctx, "users/u1", map[string]any{"a$b": 1}), ErrInvalidPath)
			assert.ErrorIs(t, s.Set(ctx, "", 1), ErrInvalidPath)

			_, err = s.Get(ctx, "admin_data/general/coupons/s1/[x]")
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestNewIDIsOrdered(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, err := s.NewID(ctx, "orders/u1")
			require.NoError(t, err)
			second, err := s.NewID(ctx, "orders/u1")
			require.NoError(t, err)
			assert.NotEqual(t, first, second)
			assert.True(t, ValidKey(first))
			assert.LessOrEqual(t, first[:13], second[:13])
		})
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	_, err := m.Get(ctx, "users/u1")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(m.Set(ctx, "users/u1/name", "x"), context.Canceled))
}

func TestMemoryGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "shops/s1", map[string]any{"name": "A"}))

	snap, err := m.Get(ctx, "shops/s1")
	require.NoError(t, err)
	snap.Value().(map[string]any)["name"] = "mutated"

	again, err := m.Get(ctx, "shops/s1/name")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Value())
}

func TestJoinAndValidKey(t *testing.T) {
	assert.Equal(t, "carts/u1/s1", Join("carts", "/u1/", "", "s1"))
	assert.True(t, ValidKey("SAVE10"))
	for _, bad := range []string{"", " ", "a/b", "a.b", "a#b", "a$b", "a[b", "a]b"} {
		assert.False(t, ValidKey(bad), bad)
	}
}
