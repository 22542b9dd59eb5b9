package checkout

import (
	"context"
	stdErrors "errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/swiftcart-backend/internal/admin"
	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/coupons"
	"github.com/angelmondragon/swiftcart-backend/internal/shops"
	"github.com/angelmondragon/swiftcart-backend/internal/users"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

var (
	errInjected = stdErrors.New("injected store failure")
	testNow     = time.Date(2026, 3, 3, 18, 30, 0, 0, time.UTC)
)

// faultStore wraps the memory store and fails selected operations.
type faultStore struct {
	*store.Memory

	mu         sync.Mutex
	failGet    string
	failSet    string
	failRemove string
	failUpdate bool
	writes     int
}

func (f *faultStore) Get(ctx context.Context, path string) (store.Snapshot, error) {
	if f.failGet != "" && strings.HasPrefix(path, f.failGet) {
		return store.Snapshot{}, errInjected
	}
	return f.Memory.Get(ctx, path)
}

func (f *faultStore) Set(ctx context.Context, path string, value any) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	if f.failSet != "" && strings.HasPrefix(path, f.failSet) {
		return errInjected
	}
	return f.Memory.Set(ctx, path, value)
}

func (f *faultStore) Update(ctx context.Context, values map[string]any) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	if f.failUpdate {
		return errInjected
	}
	return f.Memory.Update(ctx, values)
}

func (f *faultStore) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	if f.failRemove != "" && strings.HasPrefix(path, f.failRemove) {
		return errInjected
	}
	return f.Memory.Remove(ctx, path)
}

func (f *faultStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type recordingMetrics struct {
	mu         sync.Mutex
	committed  map[string]int
	partial    int
	rejections map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{committed: map[string]int{}, rejections: map[string]int{}}
}

func (m *recordingMetrics) IncCommitted(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed[source]++
}

func (m *recordingMetrics) IncPartialCommit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partial++
}

func (m *recordingMetrics) IncRejection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[reason]++
}

type fixture struct {
	store     *faultStore
	loader    *Loader
	resolver  coupons.Resolver
	committer *Committer
	metrics   *recordingMetrics
	logg      *logger.Logger
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	atomic bool
	seed   map[string]any
}

func withAtomic() fixtureOption {
	return func(c *fixtureConfig) { c.atomic = true }
}

func withSeed(path string, value any) fixtureOption {
	return func(c *fixtureConfig) { c.seed[path] = value }
}

func withoutSeed(path string) fixtureOption {
	return func(c *fixtureConfig) { delete(c.seed, path) }
}

// defaultSeed places the customer roughly 1 km from the shop.
func defaultSeed() map[string]any {
	return map[string]any{
		"shops/s1": map[string]any{
			"name":              "Spice Route",
			"image":             "s1.png",
			"location":          map[string]any{"lat": 12.9716, "lng": 77.5946},
			"commissionPercent": 20,
		},
		"users/u1": map[string]any{
			"name":          "Asha Rao",
			"phone":         "9845000000",
			"email":         "asha@example.com",
			"mainAddressId": "home",
			"addresses": map[string]any{
				"home": map[string]any{"formattedAddress": "12 MG Road", "lat": 12.9806, "lng": 77.5946},
				"far":  map[string]any{"formattedAddress": "Airport", "lat": 13.1986, "lng": 77.7066},
			},
		},
		"carts/u1/s1": map[string]any{
			"shopname":  "Spice Route",
			"shopimage": "s1.png",
			"p1":        map[string]any{"productname": "Biryani", "price": 200, "qty": 2},
			"p2":        map[string]any{"productname": "Raita", "price": "50", "qty": 1},
		},
		"carts/u1/updatedAt":                      1700000000000,
		"admin_data/general/deliveryChargePerKm":  5,
		"admin_data/general/coupons/s1/SAVE50":    50,
		"admin_data/general/coupons/s2/OTHERSHOP": 75,
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := &fixtureConfig{seed: defaultSeed()}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()
	mem := store.NewMemory()
	for path, value := range cfg.seed {
		if err := mem.Set(ctx, path, value); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}
	fs := &faultStore{Memory: mem}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	loader, err := NewLoader(
		shops.NewRepository(fs),
		users.NewRepository(fs),
		cart.NewRepository(fs),
		admin.NewRepository(fs),
		pricing.NewCalculator(pricing.DefaultPolicy()),
		logg,
	)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	loader.now = func() time.Time { return testNow }

	resolver, err := coupons.NewResolver(fs, logg)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	m := newRecordingMetrics()
	committer, err := NewCommitter(fs, logg, WithAtomicCommit(cfg.atomic), WithCommitMetrics(m))
	if err != nil {
		t.Fatalf("new committer: %v", err)
	}
	committer.now = func() time.Time { return testNow }

	return &fixture{store: fs, loader: loader, resolver: resolver, committer: committer, metrics: m, logg: logg}
}

func (f *fixture) session(uid string) *Session {
	return NewSession(f.loader, f.resolver, f.committer, uid, "")
}

func (f *fixture) orderCount(t *testing.T, uid string) int {
	t.Helper()
	snap, err := f.store.Memory.Get(context.Background(), "orders/"+uid)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return len(snap.Children())
}

func (f *fixture) cartLines(t *testing.T, uid, shopID string) int {
	t.Helper()
	c, err := cart.NewRepository(f.store.Memory).Get(context.Background(), uid, shopID)
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}
	return len(c.Lines)
}
