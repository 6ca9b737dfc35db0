package middlewares

import (
	"campusmarket/src/types"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken signs an HS256 token for userID. Production tokens come from
// the campus identity service; this is used by the CLI and tests.
func GenerateToken(secret []byte, userID uint, email string, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := types.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
