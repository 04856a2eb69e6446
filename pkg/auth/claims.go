package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/meshbazaar/marketplace-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT minted by the external identity service.
// The settlement core only consumes it: user id plus role is all the context
// an order or wallet mutation needs.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
