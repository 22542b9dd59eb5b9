package cart

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// Metadata keys stored next to product lines under carts/{uid}/{shopId}.
const (
	KeyShopName  = "shopname"
	KeyShopImage = "shopimage"
	KeyUpdatedAt = "updatedAt"
)

// IsMetadataKey reports whether key names shop metadata rather than a product line.
func IsMetadataKey(key string) bool {
	return key == KeyShopName || key == KeyShopImage
}

// Line is one product in a cart.
type Line struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"price"`
	Quantity    int     `json:"qty"`
	ServiceType string  `json:"serviceType,omitempty"`
}

// MarshalJSON writes an unusable price as null instead of failing on NaN.
func (l Line) MarshalJSON() ([]byte, error) {
	type plain Line
	out := struct {
		plain
		Price *float64 `json:"price"`
	}{plain: plain(l)}
	if !math.IsNaN(l.UnitPrice) && !math.IsInf(l.UnitPrice, 0) {
		out.Price = &l.UnitPrice
	}
	return json.Marshal(out)
}

// Amount satisfies pricing.Subtotal.
func (l Line) Amount() (float64, int) {
	return l.UnitPrice, l.Quantity
}

// Cart is a single-shop cart for one user.
type Cart struct {
	UserID    string          `json:"-"`
	ShopID    string          `json:"shopId"`
	ShopName  string          `json:"shopName,omitempty"`
	ShopImage string          `json:"shopImage,omitempty"`
	Lines     map[string]Line `json:"items"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// SortedLines returns lines ordered by product id.
func (c *Cart) SortedLines() []Line {
	if c == nil {
		return nil
	}
	lines := make([]Line, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

func (c *Cart) Subtotal() float64 {
	return pricing.Subtotal(c.SortedLines())
}

// Clone returns a deep copy whose lines are detached from the receiver.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Lines = make(map[string]Line, len(c.Lines))
	for id, line := range c.Lines {
		out.Lines[id] = line
	}
	if c.UpdatedAt != nil {
		at := *c.UpdatedAt
		out.UpdatedAt = &at
	}
	return &out
}

type storedLine struct {
	ProductName string           `json:"productname"`
	Price       *types.FlexFloat `json:"price"`
	Qty         *types.FlexFloat `json:"qty"`
	ServiceType *string          `json:"serviceType"`
}

// parseShopCart builds a cart from the carts/{uid}/{shopId} subtree. Only
// object-valued children that are not metadata keys are product lines; lines
// with a non-positive quantity are dropped.
func parseShopCart(uid, shopID string, snap store.Snapshot) *Cart {
	c := &Cart{UserID: uid, ShopID: shopID, Lines: map[string]Line{}}
	if name, ok := snap.Child(KeyShopName).Value().(string); ok {
		c.ShopName = name
	}
	if image, ok := snap.Child(KeyShopImage).Value().(string); ok {
		c.ShopImage = image
	}
	for _, child := range snap.Children() {
		if IsMetadataKey(child.Key()) {
			continue
		}
		if _, ok := child.Value().(map[string]any); !ok {
			continue
		}
		var raw storedLine
		if err := child.Decode(&raw); err != nil {
			continue
		}
		qty := 0
		if raw.Qty != nil && !math.IsNaN(raw.Qty.Float64()) && raw.Qty.Float64() < math.MaxInt32 {
			qty = int(raw.Qty.Float64())
		}
		if qty <= 0 {
			continue
		}
		price := math.NaN()
		if raw.Price != nil {
			price = raw.Price.Float64()
		}
		line := Line{ProductID: child.Key(), ProductName: raw.ProductName, UnitPrice: price, Quantity: qty}
		if raw.ServiceType != nil {
			line.ServiceType = *raw.ServiceType
		}
		c.Lines[child.Key()] = line
	}
	return c
}

func lineValue(line Line) map[string]any {
	value := map[string]any{
		"productname": line.ProductName,
		"price":       line.UnitPrice,
		"qty":         line.Quantity,
	}
	if line.ServiceType != "" {
		value["serviceType"] = line.ServiceType
	}
	return value
}

func millisToTime(v any) *time.Time {
	ms, ok := v.(float64)
	if !ok || ms <= 0 || math.IsInf(ms, 0) {
		return nil
	}
	at := time.UnixMilli(int64(ms)).UTC()
	return &at
}
