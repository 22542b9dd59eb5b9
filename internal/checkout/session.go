package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/swiftcart-backend/internal/coupons"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/metrics"
	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

// State is the lifecycle position of a checkout session.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateEmpty      State = "empty"
	StateSubmitting State = "submitting"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

// Session drives one user's checkout for one shop. It is safe for
// concurrent use; a second Submit while one is in flight is rejected.
type Session struct {
	mu sync.Mutex

	loader    *Loader
	coupons   coupons.Resolver
	committer *Committer

	userID        string
	email         string
	state         State
	snapshot      *Snapshot
	discount      float64
	couponCode    string
	paymentMode   enums.PaymentMode
	transactionID string
	result        *CommitResult
}

func NewSession(loader *Loader, resolver coupons.Resolver, committer *Committer, userID, email string) *Session {
	return &Session{
		loader:    loader,
		coupons:   resolver,
		committer: committer,
		userID:    userID,
		email:     email,
		state:     StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the currently loaded snapshot, nil before Load.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Result returns the committed order, nil until Submit succeeds.
func (s *Session) Result() *CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Load reads the checkout data. Reloading replaces the previous snapshot;
// the applied coupon is kept only when the shop is unchanged.
func (s *Session) Load(ctx context.Context, in LoadInput) (*Snapshot, error) {
	s.mu.Lock()
	if s.state == StateSubmitting || s.state == StateCommitted {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	}
	prev := s.state
	s.state = StateLoading
	s.mu.Unlock()

	in.UserID = s.userID
	snap, err := s.loader.Load(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = prev
		return nil, err
	}
	if s.snapshot != nil && s.snapshot.Shop.ID != snap.Shop.ID {
		s.discount, s.couponCode = 0, ""
	}
	s.snapshot = snap
	if snap.Cart.IsEmpty() {
		s.state = StateEmpty
	} else {
		s.state = StateReady
	}
	return snap, nil
}

// ApplyCoupon resolves code against the loaded shop and prices with it.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (pricing.Result, error) {
	s.mu.Lock()
	if err := s.requireLoadedLocked(); err != nil {
		s.mu.Unlock()
		return pricing.Result{}, err
	}
	shopID := s.snapshot.Shop.ID
	s.mu.Unlock()

	code = strings.TrimSpace(code)
	amount, ok, err := s.coupons.Resolve(ctx, shopID, code)
	if err != nil {
		return pricing.Result{}, err
	}
	if !ok {
		return pricing.Result{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoadedLocked(); err != nil {
		return pricing.Result{}, err
	}
	s.discount, s.couponCode = amount, code
	return s.snapshot.Quote(s.discount), nil
}

// RemoveCoupon drops an applied coupon.
func (s *Session) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discount, s.couponCode = 0, ""
}

// SelectAddress switches the delivery address to a saved address.
func (s *Session) SelectAddress(addressID string) (pricing.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoadedLocked(); err != nil {
		return pricing.Result{}, err
	}
	addr, ok := s.snapshot.User.Address(addressID)
	if !ok {
		return pricing.Result{}, pkgerrors.New(pkgerrors.CodeValidation, "address not found")
	}
	s.snapshot = s.snapshot.WithAddress(addr)
	return s.snapshot.Quote(s.discount), nil
}

// SetPayment records the payment mode and, for online payments, the
// transaction reference.
func (s *Session) SetPayment(mode enums.PaymentMode, transactionID string) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "select a payment mode")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting || s.state == StateCommitted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	}
	s.paymentMode = mode
	s.transactionID = strings.TrimSpace(transactionID)
	return nil
}

// Quote prices the loaded snapshot with the applied coupon.
func (s *Session) Quote() (pricing.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoadedLocked(); err != nil {
		return pricing.Result{}, err
	}
	return s.snapshot.Quote(s.discount), nil
}

// CouponCode returns the applied coupon, empty when none.
func (s *Session) CouponCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.couponCode
}

// Submit commits the order once. A failed commit may be retried; a
// committed or in-flight session rejects further submits.
func (s *Session) Submit(ctx context.Context) (*CommitResult, error) {
	s.mu.Lock()
	in, err := s.submitInputLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	result, err := s.committer.Commit(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	s.state = StateCommitted
	s.result = result
	return result, nil
}

func (s *Session) submitInputLocked() (CommitInput, error) {
	switch s.state {
	case StateSubmitting, StateCommitted:
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	case StateEmpty:
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	case StateReady, StateFailed:
	default:
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not loaded")
	}
	if !store.ValidKey(s.userID) {
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	snap := s.snapshot
	if snap == nil || snap.Shop == nil {
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "shop not loaded")
	}
	if snap.Cart.IsEmpty() {
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if snap.Address == nil {
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "select a delivery address")
	}
	if !s.paymentMode.IsValid() {
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "select a payment mode")
	}
	if s.paymentMode.RequiresTransactionID() && s.transactionID == "" {
		return CommitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "enter transaction ID")
	}
	return CommitInput{
		Snapshot:      snap,
		Discount:      s.discount,
		CouponCode:    s.couponCode,
		PaymentMode:   s.paymentMode,
		TransactionID: s.transactionID,
		CustomerEmail: s.email,
		Source:        metrics.SourceClient,
	}, nil
}

func (s *Session) requireLoadedLocked() error {
	switch s.state {
	case StateReady, StateEmpty, StateFailed:
		if s.snapshot == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not loaded")
		}
		return nil
	case StateSubmitting, StateCommitted:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not loaded")
	}
}
