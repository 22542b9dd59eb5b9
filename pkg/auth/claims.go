package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload is what the caller knows about the actor at mint time.
type AccessTokenPayload struct {
	UserID string
	Email  string
	Role   enums.ActorRole
	// ShopID scopes shop staff tokens to the shop they operate.
	ShopID string
	JTI    string
}

func (p AccessTokenPayload) validate() error {
	return checkIdentity(p.UserID, p.Role, p.ShopID)
}

// AccessTokenClaims is the token body carried by every authenticated call.
type AccessTokenClaims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email,omitempty"`
	Role   enums.ActorRole `json:"role"`
	ShopID string          `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) validate() error {
	return checkIdentity(c.UserID, c.Role, c.ShopID)
}

func checkIdentity(userID string, role enums.ActorRole, shopID string) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return errors.New("user id is required")
	case !role.IsValid():
		return fmt.Errorf("invalid actor role %q", role)
	case role == enums.ActorRoleShop && strings.TrimSpace(shopID) == "":
		return errors.New("shop tokens require a shop id")
	}
	return nil
}
