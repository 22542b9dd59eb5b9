// Package pricing computes delivery fees, platform fees, commission splits and
// order totals. It is the single pricing implementation shared by the checkout
// session and the order placement service.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Input carries the raw numbers a quote is computed from.
type Input struct {
	Subtotal float64
	Discount float64
	// DistanceKm is nil when either the shop or the delivery location is unknown.
	DistanceKm          *float64
	DeliveryChargePerKm float64
	CommissionPercent   float64
}

// Result is a priced order. All money fields are whole currency units.
type Result struct {
	Subtotal           int64    `json:"subtotal"`
	Discount           int64    `json:"discount"`
	DeliveryFee        int64    `json:"deliveryFee"`
	PlatformFee        int64    `json:"platformFee"`
	Total              int64    `json:"total"`
	PlatformCommission int64    `json:"platformCommission"`
	NetShopPayout      int64    `json:"netShopPayout"`
	CommissionPercent  float64  `json:"commissionPercent"`
	IsPremiumOrder     bool     `json:"isPremiumOrder"`
	DistanceKm         *float64 `json:"distanceKm,omitempty"`
}

// MaxAmount is the largest money value a quote accepts. Anything above it is
// treated as malformed, which keeps every sum inside int64 and inside the
// range where float64 holds whole units exactly.
const MaxAmount = 1_000_000_000_000_000

var maxAmount = decimal.NewFromInt(MaxAmount)

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

func (c *Calculator) Policy() Policy {
	return c.policy
}

// Quote prices a single order. It never fails: malformed numbers zero out the
// component they feed instead of leaking into the total.
func (c *Calculator) Quote(in Input) Result {
	subtotal := money(in.Subtotal)
	subtotalCeil := subtotal.Ceil()

	premium := subtotal.GreaterThan(decimal.NewFromInt(c.policy.PremiumThreshold))
	premiumCharge := bounded(subtotal.Mul(rate(c.policy.PremiumRate)).Ceil())

	platformFee := bounded(decimal.NewFromInt(c.policy.PlatformFee))
	if premium {
		platformFee = premiumCharge
	}

	deliveryFee := decimal.Zero
	var distance *float64
	if in.DistanceKm != nil && finite(*in.DistanceKm) && *in.DistanceKm >= 0 {
		d := *in.DistanceKm
		distance = &d
		if !premium && finite(in.DeliveryChargePerKm) && in.DeliveryChargePerKm >= 0 {
			deliveryFee = bounded(decimal.NewFromInt(c.policy.BaseDeliveryFee).
				Add(decimal.NewFromFloat(d).
					Mul(rate(c.policy.DistanceMultiplier)).
					Mul(decimal.NewFromFloat(in.DeliveryChargePerKm))).
				Ceil())
		}
	}

	percent := clampPercent(in.CommissionPercent)
	commission := subtotal.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100)).Ceil()
	if premium {
		commission = premiumCharge
	}
	commission = decimal.Min(commission, subtotalCeil)

	discount := decimal.Min(money(in.Discount).Ceil(), subtotalCeil)

	total := subtotalCeil.Sub(discount).Add(deliveryFee).Add(platformFee)

	return Result{
		Subtotal:           subtotalCeil.IntPart(),
		Discount:           discount.IntPart(),
		DeliveryFee:        deliveryFee.IntPart(),
		PlatformFee:        platformFee.IntPart(),
		Total:              total.IntPart(),
		PlatformCommission: commission.IntPart(),
		NetShopPayout:      subtotalCeil.Sub(commission).IntPart(),
		CommissionPercent:  percent,
		IsPremiumOrder:     premium,
		DistanceKm:         distance,
	}
}

// Subtotal sums price*qty over the given lines, skipping malformed entries.
// A line above MaxAmount counts as malformed. Quote zeroes a sum above it.
func Subtotal[L interface{ Amount() (float64, int) }](lines []L) float64 {
	sum := decimal.Zero
	for _, line := range lines {
		price, qty := line.Amount()
		if !finite(price) || price < 0 || qty <= 0 {
			continue
		}
		amount := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
		if amount.GreaterThan(maxAmount) {
			continue
		}
		sum = sum.Add(amount)
	}
	out, _ := sum.Float64()
	return out
}

// money converts a float to a non-negative decimal, mapping NaN, Inf,
// negative and out-of-range values to zero.
func money(v float64) decimal.Decimal {
	if !finite(v) || v <= 0 {
		return decimal.Zero
	}
	return bounded(decimal.NewFromFloat(v))
}

func bounded(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return decimal.Zero
	}
	return d
}

func rate(v float64) decimal.Decimal {
	if !finite(v) || v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func clampPercent(p float64) float64 {
	if !finite(p) || p < 0 {
		return 0
	}
	return math.Min(p, 100)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
