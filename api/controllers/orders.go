package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/swiftcart-backend/api/middleware"
	"github.com/angelmondragon/swiftcart-backend/api/responses"
	"github.com/angelmondragon/swiftcart-backend/api/validators"
	"github.com/angelmondragon/swiftcart-backend/internal/orders"
	"github.com/angelmondragon/swiftcart-backend/internal/placeorder"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
)

// OrderList returns the caller's orders, newest first. ?active=true hides
// delivered orders; ?limit and ?cursor page through the history.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), orders.ListInput{
			UserID:     middleware.UserIDFromContext(r.Context()),
			ActiveOnly: activeOnly,
			Page:       page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Orders == nil {
			result.Orders = []orders.Order{}
		}
		responses.WriteSuccess(w, result)
	}
}

func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// PlaceOrder is the server-side order authority. The caller identity comes
// from the token; the body userId must match it.
func PlaceOrder(svc placeorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeorder.Request
		if err := validators.DecodeLenientJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req.CouponCode = validators.SanitizeString(req.CouponCode, maxCouponLen)
		req.TransactionID = validators.SanitizeString(req.TransactionID, maxTransactionIDLen)

		result, err := svc.PlaceOrder(r.Context(), middleware.UserIDFromContext(r.Context()), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessWithWarnings(w, http.StatusCreated, result, result.Warning)
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminOrderStatus moves an order along its lifecycle for shop staff and admins.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status"))
			return
		}

		ctx := r.Context()
		order, err := svc.UpdateStatus(ctx, orders.StatusUpdateInput{
			UserID:      chi.URLParam(r, "userId"),
			OrderID:     chi.URLParam(r, "orderId"),
			Status:      status,
			ActorRole:   middleware.RoleFromContext(ctx),
			ActorShopID: middleware.ShopIDFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
