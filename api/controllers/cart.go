package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/swiftcart-backend/api/middleware"
	"github.com/angelmondragon/swiftcart-backend/api/responses"
	"github.com/angelmondragon/swiftcart-backend/api/validators"
	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
)

type cartResponse struct {
	ShopID    string      `json:"shopId,omitempty"`
	ShopName  string      `json:"shopName,omitempty"`
	ShopImage string      `json:"shopImage,omitempty"`
	Items     []cart.Line `json:"items"`
	ItemCount int         `json:"itemCount"`
	Subtotal  float64     `json:"subtotal"`
}

func newCartResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{Items: []cart.Line{}}
	if c == nil {
		return resp
	}
	resp.ShopID = c.ShopID
	resp.ShopName = c.ShopName
	resp.ShopImage = c.ShopImage
	resp.Items = c.SortedLines()
	for _, line := range resp.Items {
		resp.ItemCount += line.Quantity
	}
	resp.Subtotal = c.Subtotal()
	return resp
}

// CartFetch returns the caller's active cart, or an empty one.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// CartAddItem adds one unit of a product.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input cart.AddItemInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func CartDecrement(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, productID, err := cartLineParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Decrement(r.Context(), middleware.UserIDFromContext(r.Context()), shopID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, productID, err := cartLineParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Remove(r.Context(), middleware.UserIDFromContext(r.Context()), shopID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Clear(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(nil))
	}
}

// cartLineParams reads the product from the path and the shop from the
// shopId query parameter.
func cartLineParams(r *http.Request) (string, string, error) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	shopID := strings.TrimSpace(r.URL.Query().Get("shopId"))
	if productID == "" || shopID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "shopId and productId are required")
	}
	return shopID, productID, nil
}
