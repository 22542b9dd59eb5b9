package middleware

import (
	"context"

	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxShopID contextKey = "shop_id"
	ctxEmail  contextKey = "email"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxUserID) }

func ShopIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxShopID) }

func EmailFromContext(ctx context.Context) string { return stringValue(ctx, ctxEmail) }

func RoleFromContext(ctx context.Context) enums.ActorRole {
	return enums.ActorRole(stringValue(ctx, ctxRole))
}

// WithIdentity seeds the caller identity. Auth uses it for verified tokens;
// tests use it to skip token minting.
func WithIdentity(ctx context.Context, userID string, role enums.ActorRole, shopID, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, string(role))
	if shopID != "" {
		ctx = context.WithValue(ctx, ctxShopID, shopID)
	}
	if email != "" {
		ctx = context.WithValue(ctx, ctxEmail, email)
	}
	return ctx
}
