package httpgin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "user_id"
	ctxStaff  = "is_staff"
)

// Authenticate validates a Bearer JWT (HS256) and stores the subject user id
// and the staff claim on the context. Token issuance belongs to the external
// identity service; this middleware only verifies.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid claims"})
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing subject"})
			return
		}

		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid subject"})
			return
		}

		staff, _ := claims["staff"].(bool)

		c.Set(ctxUserID, userID)
		c.Set(ctxStaff, staff)

		c.Next()
	}
}

// RequireStaff rejects requests whose token lacks the staff claim.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxStaff) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "staff privileges required"})
			return
		}

		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
