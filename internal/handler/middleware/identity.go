package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity arrives from the gateway in trusted headers; this service sits
// behind it and never sees end-user credentials.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	ctxTenantIDKey = "tenant_id"
	ctxUserIDKey   = "user_id"
	ctxUserRoleKey = "user_role"
)

// Role is the gateway-asserted role of the calling user within its tenant.
type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

var roleHierarchy = map[Role]int{
	RoleMember: 1,
	RoleStaff:  2,
	RoleAdmin:  3,
}

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(HeaderTenantID))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Tenant identity required",
			})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(c.GetHeader(HeaderUserID))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User identity required",
			})
			c.Abort()
			return
		}

		// The role header is optional; a caller without one is a member.
		role := RoleMember
		if v := c.GetHeader(HeaderUserRole); v != "" {
			role = Role(v)
			if _, known := roleHierarchy[role]; !known {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Unknown user role",
				})
				c.Abort()
				return
			}
		}

		c.Set(ctxTenantIDKey, tenantID)
		c.Set(ctxUserIDKey, userID)
		c.Set(ctxUserRoleKey, role)
		c.Next()
	}
}

func RequireRoleAtLeast(minRole Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			// Unexpected error: should be used after RequireIdentity()
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			c.Abort()
			return
		}

		if !HasMinimumRole(role, minRole) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func HasMinimumRole(userRole, minRole Role) bool {
	userLevel, userExists := roleHierarchy[userRole]
	minLevel, minExists := roleHierarchy[minRole]
	return userExists && minExists && userLevel >= minLevel
}

func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxTenantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func GetUserRole(c *gin.Context) (Role, bool) {
	v, exists := c.Get(ctxUserRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(Role)
	return role, ok
}
