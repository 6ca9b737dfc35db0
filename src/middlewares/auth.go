package middlewares

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// AuthMiddleware resolves the bearer token to a user and stores the
// principal under "id", "email" and "name".
func AuthMiddleware(db *gorm.DB, secret []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		reqToken, ok := strings.CutPrefix(bearerToken, "Bearer ")
		if !ok || strings.TrimSpace(reqToken) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tkn.Valid {
			if err != nil {
				log.Printf("[auth] token error: %s\n", err.Error())
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || uid == 0 {
			log.Printf("[auth] invalid subject %q\n", claims.Subject)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		var user models.User
		err = db.
			WithContext(ctx.Request.Context()).
			Select("id", "email", "name").
			First(&user, uint(uid)).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		if err != nil {
			log.Printf("[auth] Error loading user [%d]: %s\n", uid, err.Error())
			ctx.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		ctx.Set("id", user.ID)
		ctx.Set("email", user.Email)
		ctx.Set("name", user.Name)
		ctx.Next()
	}
}

// Principal returns the authenticated user set by AuthMiddleware.
func Principal(ctx *gin.Context) types.Principal {
	return types.Principal{
		ID:    ctx.GetUint("id"),
		Email: ctx.GetString("email"),
		Name:  ctx.GetString("name"),
	}
}
