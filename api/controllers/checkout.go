package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/swiftcart-backend/api/middleware"
	"github.com/angelmondragon/swiftcart-backend/api/responses"
	"github.com/angelmondragon/swiftcart-backend/api/validators"
	"github.com/angelmondragon/swiftcart-backend/internal/checkout"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
)

const (
	maxCouponLen        = 64
	maxTransactionIDLen = 128
)

// CheckoutQuote loads the cart for a shop and prices it.
func CheckoutQuote(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input checkout.QuoteInput
		if err := validators.DecodeOptionalJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ShopID = chi.URLParam(r, "shopId")
		input.CouponCode = validators.SanitizeString(input.CouponCode, maxCouponLen)

		quote, err := svc.Quote(r.Context(), middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

// CheckoutApplyCoupon resolves a coupon for the shop without touching the cart.
func CheckoutApplyCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ApplyCoupon(
			r.Context(),
			middleware.UserIDFromContext(r.Context()),
			chi.URLParam(r, "shopId"),
			validators.SanitizeString(payload.Code, maxCouponLen),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutSubmit commits the caller's cart as an order. A cart cleanup
// failure still answers 201 and carries the partial commit as a warning.
func CheckoutSubmit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input checkout.SubmitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ShopID = chi.URLParam(r, "shopId")
		input.CouponCode = validators.SanitizeString(input.CouponCode, maxCouponLen)
		input.TransactionID = validators.SanitizeString(input.TransactionID, maxTransactionIDLen)

		ctx := r.Context()
		result, err := svc.Submit(ctx, middleware.UserIDFromContext(ctx), middleware.EmailFromContext(ctx), input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessWithWarnings(w, http.StatusCreated, result, result.Warning)
	}
}
