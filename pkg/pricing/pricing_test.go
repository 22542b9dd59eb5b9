package pricing

import (
	"math"
	"testing"
)

func km(v float64) *float64 { return &v }

func TestQuoteScenarios(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())

	tests := []struct {
		name  string
		input Input
		want  Result
	}{
		{
			name:  "regular order with distance",
			input: Input{Subtotal: 450, DistanceKm: km(3.2), DeliveryChargePerKm: 5, CommissionPercent: 15},
			want: Result{
				Subtotal: 450, DeliveryFee: 41, PlatformFee: 10, Total: 501,
				PlatformCommission: 68, NetShopPayout: 382, CommissionPercent: 15,
			},
		},
		{
			name:  "premium order",
			input: Input{Subtotal: 12000, DistanceKm: km(8), DeliveryChargePerKm: 5, CommissionPercent: 15},
			want: Result{
				Subtotal: 12000, DeliveryFee: 0, PlatformFee: 1, Total: 12001,
				PlatformCommission: 1, NetShopPayout: 11999, CommissionPercent: 15, IsPremiumOrder: true,
			},
		},
		{
			name:  "twenty percent commission",
			input: Input{Subtotal: 1000, CommissionPercent: 20},
			want: Result{
				Subtotal: 1000, PlatformFee: 10, Total: 1010,
				PlatformCommission: 200, NetShopPayout: 800, CommissionPercent: 20,
			},
		},
		{
			name:  "threshold is exclusive",
			input: Input{Subtotal: 10000, CommissionPercent: 15},
			want: Result{
				Subtotal: 10000, PlatformFee: 10, Total: 10010,
				PlatformCommission: 1500, NetShopPayout: 8500, CommissionPercent: 15,
			},
		},
		{
			name:  "fractional inputs are ceiled",
			input: Input{Subtotal: 99.2, Discount: 10.1, DistanceKm: km(0), DeliveryChargePerKm: 5, CommissionPercent: 15},
			want: Result{
				Subtotal: 100, Discount: 11, DeliveryFee: 20, PlatformFee: 10, Total: 119,
				PlatformCommission: 15, NetShopPayout: 85, CommissionPercent: 15,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Quote(tt.input)
			got.DistanceKm = nil
			if got != tt.want {
				t.Fatalf("expected %+v got %+v", tt.want, got)
			}
		})
	}
}

func TestQuotePlatformFeeProperty(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	for _, subtotal := range []float64{0, 1, 9999.99, 10000, 10000.01, 25000, 150000, 1e7} {
		got := calc.Quote(Input{Subtotal: subtotal, DistanceKm: km(5), DeliveryChargePerKm: 5})
		if subtotal > 10000 {
			want := int64(math.Ceil(subtotal * 0.00001))
			if got.PlatformFee != want {
				t.Fatalf("subtotal %v expected premium platform fee %d got %d", subtotal, want, got.PlatformFee)
			}
			if got.DeliveryFee != 0 {
				t.Fatalf("subtotal %v expected free delivery got %d", subtotal, got.DeliveryFee)
			}
		} else if got.PlatformFee != 10 {
			t.Fatalf("subtotal %v expected platform fee 10 got %d", subtotal, got.PlatformFee)
		}
	}
}

func TestQuoteTotalIdentity(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	inputs := []Input{
		{Subtotal: 450, Discount: 50, DistanceKm: km(3.2), DeliveryChargePerKm: 5, CommissionPercent: 15},
		{Subtotal: 12000.5, Discount: 100, DistanceKm: km(3.2), DeliveryChargePerKm: 5},
		{Subtotal: 80, Discount: 500, DistanceKm: km(12.75), DeliveryChargePerKm: 7.5, CommissionPercent: 10},
		{Subtotal: 0, Discount: 0},
	}
	for _, in := range inputs {
		r := calc.Quote(in)
		if r.Total != r.Subtotal-r.Discount+r.DeliveryFee+r.PlatformFee {
			t.Fatalf("total identity broken for %+v: %+v", in, r)
		}
		if r.Total < 0 || r.Discount < 0 || r.NetShopPayout < 0 {
			t.Fatalf("negative output for %+v: %+v", in, r)
		}
	}
}

func TestQuoteDegradesMalformedNumbers(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())

	r := calc.Quote(Input{Subtotal: math.NaN(), DistanceKm: km(2), DeliveryChargePerKm: 5})
	if r.Subtotal != 0 || r.Total != r.DeliveryFee+r.PlatformFee {
		t.Fatalf("NaN subtotal should degrade to 0, got %+v", r)
	}

	r = calc.Quote(Input{Subtotal: 200, DistanceKm: km(math.NaN()), DeliveryChargePerKm: 5})
	if r.DeliveryFee != 0 || r.DistanceKm != nil {
		t.Fatalf("NaN distance should drop delivery fee, got %+v", r)
	}

	r = calc.Quote(Input{Subtotal: 200, DistanceKm: km(2), DeliveryChargePerKm: math.NaN()})
	if r.DeliveryFee != 0 {
		t.Fatalf("NaN rate should drop delivery fee, got %+v", r)
	}

	r = calc.Quote(Input{Subtotal: 200, Discount: math.Inf(1), CommissionPercent: math.NaN()})
	if r.Discount != 0 || r.PlatformCommission != 0 {
		t.Fatalf("unexpected degrade result %+v", r)
	}
	if r.Total != 210 {
		t.Fatalf("expected total 210 got %d", r.Total)
	}
}

func TestQuoteRejectsOutOfRangeAmounts(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	inputs := []Input{
		{Subtotal: 1e19, DistanceKm: km(3), DeliveryChargePerKm: 5, CommissionPercent: 10},
		{Subtotal: 200, Discount: 1e30, DistanceKm: km(3), DeliveryChargePerKm: 1e19},
		{Subtotal: MaxAmount + 1, DistanceKm: km(1e300), DeliveryChargePerKm: 1e300},
	}
	for _, in := range inputs {
		r := calc.Quote(in)
		if r.Subtotal < 0 || r.Total < 0 || r.NetShopPayout < 0 || r.DeliveryFee < 0 || r.PlatformCommission < 0 {
			t.Fatalf("negative output for %+v: %+v", in, r)
		}
		if r.Total != r.Subtotal-r.Discount+r.DeliveryFee+r.PlatformFee {
			t.Fatalf("total identity broken for %+v: %+v", in, r)
		}
	}

	r := calc.Quote(Input{Subtotal: 1e19})
	if r.Subtotal != 0 || r.IsPremiumOrder {
		t.Fatalf("out-of-range subtotal should degrade to 0, got %+v", r)
	}
	r = calc.Quote(Input{Subtotal: 200, DistanceKm: km(3), DeliveryChargePerKm: 1e19})
	if r.DeliveryFee != 0 {
		t.Fatalf("out-of-range delivery fee should degrade to 0, got %+v", r)
	}
	r = calc.Quote(Input{Subtotal: MaxAmount})
	if r.Subtotal != MaxAmount {
		t.Fatalf("MaxAmount itself is valid, got %+v", r)
	}
}

func TestQuoteMissingLocationHasNoDeliveryFee(t *testing.T) {
	r := NewCalculator(DefaultPolicy()).Quote(Input{Subtotal: 300, DeliveryChargePerKm: 5, CommissionPercent: 15})
	if r.DeliveryFee != 0 {
		t.Fatalf("expected no delivery fee without distance, got %d", r.DeliveryFee)
	}
}

func TestQuoteDistanceMultiplierSwitch(t *testing.T) {
	policy := DefaultPolicy()
	policy.DistanceMultiplier = 1
	r := NewCalculator(policy).Quote(Input{Subtotal: 450, DistanceKm: km(3.2), DeliveryChargePerKm: 5})
	if r.DeliveryFee != 36 {
		t.Fatalf("expected ceil(20+16)=36 got %d", r.DeliveryFee)
	}
}

func TestQuoteIsDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	in := Input{Subtotal: 733.3, Discount: 25, DistanceKm: km(4.81), DeliveryChargePerKm: 6, CommissionPercent: 12.5}
	first := calc.Quote(in)
	second := calc.Quote(in)
	if *first.DistanceKm != *second.DistanceKm {
		t.Fatalf("distance differs")
	}
	first.DistanceKm, second.DistanceKm = nil, nil
	if first != second {
		t.Fatalf("expected identical quotes, got %+v and %+v", first, second)
	}
}

func TestPolicyDefaults(t *testing.T) {
	policy := DefaultPolicy()
	zero := 0.0
	seven := 7.0
	if got := policy.DeliveryRate(nil); got != 5 {
		t.Fatalf("expected default rate 5 got %v", got)
	}
	if got := policy.DeliveryRate(&zero); got != 5 {
		t.Fatalf("zero rate should fall back to default, got %v", got)
	}
	if got := policy.DeliveryRate(&seven); got != 7 {
		t.Fatalf("expected configured rate 7 got %v", got)
	}
	if got := policy.CommissionPercent(nil); got != 15 {
		t.Fatalf("expected default commission 15 got %v", got)
	}
}

type testLine struct {
	price float64
	qty   int
}

func (l testLine) Amount() (float64, int) { return l.price, l.qty }

func TestSubtotal(t *testing.T) {
	lines := []testLine{{price: 120.5, qty: 2}, {price: 0.1, qty: 3}, {price: math.NaN(), qty: 1}, {price: 50, qty: 0}}
	if got := Subtotal(lines); got != 241.3 {
		t.Fatalf("expected 241.3 got %v", got)
	}

	lines = append(lines, testLine{price: 1e19, qty: 1})
	if got := Subtotal(lines); got != 241.3 {
		t.Fatalf("out-of-range line should be skipped, got %v", got)
	}
}
