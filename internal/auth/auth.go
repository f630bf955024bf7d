package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles known to the platform. Live position sharing is a staff concern;
// the pickup_drop sub-role marks the field worker who drives it.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"

	SubRolePickupDrop = "pickup_drop"
)

type Claims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	SubRole string `json:"sub_role,omitempty"`
	jwt.RegisteredClaims
}

// Sign mints a bearer token for the given identity. Account management
// lives in a separate service; this backend only verifies and, for tests
// and tooling, issues tokens.
func Sign(secret, userID, role, subRole string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:  userID,
		Role:    role,
		SubRole: subRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
