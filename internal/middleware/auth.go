package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
	"github.com/bloomcart/storefront-api/internal/service"
)

// adminCookieName is where the dashboard keeps the session token; the
// Authorization header is accepted as an alternative for API clients.
const adminCookieName = "admin_token"

// AdminAuth authenticates staff via our own JWT. The admin record is loaded
// on every request so a deactivated account loses access immediately.
func AdminAuth(secret string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw, _ = c.Cookie(adminCookieName)
		}
		if raw == "" {
			abortUnauthorized(c, "unauthorized")
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid claims")
			return
		}
		sub, _ := claims["sub"].(string)
		adminID, err := uuid.Parse(sub)
		if err != nil {
			abortUnauthorized(c, "invalid admin id")
			return
		}

		admin, err := adminRepo.GetByID(c.Request.Context(), adminID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"success": false, "error": "internal error"})
			return
		}
		if admin == nil || !admin.IsActive {
			abortUnauthorized(c, "unauthorized")
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminRole", admin.Role)
		c.Next()
	}
}

// UserAuth authenticates storefront customers: the bearer token is verified
// against the identity provider and the identity is mirrored into the local
// user table.
func UserAuth(identity gateway.IdentityClient, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortUnauthorized(c, "unauthorized")
			return
		}

		ident, err := identity.VerifyToken(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, gateway.ErrTokenInvalid) {
				abortUnauthorized(c, "invalid token")
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"success": false, "error": "identity provider unavailable"})
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), ident)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"success": false, "error": "internal error"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("externalID", user.ExternalID)
		c.Next()
	}
}

func SuperAdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAdminRole(c) != model.AdminRoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				gin.H{"success": false, "error": "super admin only"})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return header[7:]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}

func GetUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get("userID")
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetAdminID(c *gin.Context) uuid.UUID {
	id, _ := c.Get("adminID")
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetAdminRole(c *gin.Context) string {
	role, _ := c.Get("adminRole")
	r, _ := role.(string)
	return r
}
