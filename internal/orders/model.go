package orders

import (
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// NoAddress is recorded when an order is placed without a formatted address.
const NoAddress = "No address selected"

// Item is a frozen copy of a cart line.
type Item struct {
	Price       float64 `json:"price"`
	Qty         int     `json:"qty"`
	ProductName string  `json:"productname"`
	ServiceType string  `json:"serviceType,omitempty"`
}

// RestaurantPayout is the shop's share of an order.
type RestaurantPayout struct {
	Subtotal           int64   `json:"subtotal"`
	PlatformCommission int64   `json:"platformCommission"`
	NetPayout          int64   `json:"netPayout"`
	CommissionPercent  float64 `json:"commissionPercent"`
}

// CalculationMetadata records the inputs the totals were computed from.
type CalculationMetadata struct {
	DeliveryChargePerKm float64            `json:"deliveryChargePerKm"`
	BaseDeliveryFee     int64              `json:"baseDeliveryFee"`
	PlatformFee         int64              `json:"platformFee"`
	DistanceMultiplier  float64            `json:"distanceMultiplier"`
	DistanceKm          *float64           `json:"distanceKm,omitempty"`
	IsPremiumOrder      bool               `json:"isPremiumOrder"`
	UserLocation        *types.Address     `json:"userLocation,omitempty"`
	ShopLocation        *types.Coordinates `json:"shopLocation,omitempty"`
	CalculatedAt        int64              `json:"calculatedAt"`
	Source              string             `json:"source"`
}

// Order is the immutable record stored at orders/{uid}/{orderId}. Only
// Status changes after placement.
type Order struct {
	ID                  string              `json:"id,omitempty"`
	UserID              string              `json:"userId"`
	ShopID              string              `json:"shopId"`
	ShopName            string              `json:"shopname"`
	ShopImage           string              `json:"shopimage"`
	Items               map[string]Item     `json:"items"`
	Subtotal            int64               `json:"subtotal"`
	Discount            int64               `json:"discount"`
	CouponCode          string              `json:"couponCode,omitempty"`
	DeliveryFee         int64               `json:"deliveryFee"`
	PlatformFee         int64               `json:"platformFee"`
	Total               int64               `json:"total"`
	PaymentMode         enums.PaymentMode   `json:"paymentMode"`
	TransactionID       *string             `json:"transactionId"`
	Address             string              `json:"address"`
	CustomerName        string              `json:"customerName"`
	CustomerPhone       string              `json:"customerPhone"`
	CustomerEmail       string              `json:"customerEmail"`
	Status              enums.OrderStatus   `json:"status"`
	CreatedAt           int64               `json:"createdAt"`
	StatusUpdatedAt     int64               `json:"statusUpdatedAt,omitempty"`
	RestaurantPayout    RestaurantPayout    `json:"restaurantPayout"`
	DriverPayout        int64               `json:"driverPayout"`
	CalculationMetadata CalculationMetadata `json:"calculationMetadata"`
}

// Value returns the document written to the store. The id is the record key
// and is not duplicated inside it.
func (o *Order) Value() map[string]any {
	items := make(map[string]any, len(o.Items))
	for id, item := range o.Items {
		value := map[string]any{
			"price":       item.Price,
			"qty":         item.Qty,
			"productname": item.ProductName,
		}
		if item.ServiceType != "" {
			value["serviceType"] = item.ServiceType
		}
		items[id] = value
	}
	doc := map[string]any{
		"userId":        o.UserID,
		"shopId":        o.ShopID,
		"shopname":      o.ShopName,
		"shopimage":     o.ShopImage,
		"items":         items,
		"subtotal":      o.Subtotal,
		"discount":      o.Discount,
		"deliveryFee":   o.DeliveryFee,
		"platformFee":   o.PlatformFee,
		"total":         o.Total,
		"paymentMode":   string(o.PaymentMode),
		"address":       o.Address,
		"customerName":  o.CustomerName,
		"customerPhone": o.CustomerPhone,
		"customerEmail": o.CustomerEmail,
		"status":        string(o.Status),
		"createdAt":     o.CreatedAt,
		"restaurantPayout": map[string]any{
			"subtotal":           o.RestaurantPayout.Subtotal,
			"platformCommission": o.RestaurantPayout.PlatformCommission,
			"netPayout":          o.RestaurantPayout.NetPayout,
			"commissionPercent":  o.RestaurantPayout.CommissionPercent,
		},
		"driverPayout":        o.DriverPayout,
		"calculationMetadata": o.CalculationMetadata,
	}
	if o.CouponCode != "" {
		doc["couponCode"] = o.CouponCode
	}
	if o.TransactionID != nil {
		doc["transactionId"] = *o.TransactionID
	}
	return doc
}
