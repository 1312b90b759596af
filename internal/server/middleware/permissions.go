package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

var userPermissions = []string{
	"user.view:self",
	"user.update:self",
}

var adminPermissions = append(slices.Clone(userPermissions),
	"graph.create",
	"graph.update",
	"graph.delete",
	"graph.upload",
	"graph.view:all",
	"user.create",
	"user.view",
	"user.update",
	"user.block",
	"user.delete",
)

// PermissionsFor returns the permissions granted to role.
func PermissionsFor(role string) []string {
	if role == RoleAdmin {
		return adminPermissions
	}
	return userPermissions
}

func HasPermission(user *AppUser, permission string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

func IsAdmin(user *AppUser) bool {
	if user == nil {
		return false
	}
	return user.Role == RoleAdmin
}

func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			}

			if !HasPermission(user, permission) {
				return c.JSON(http.StatusForbidden, map[string]string{"message": "Forbidden: missing permission " + permission})
			}

			return next(c)
		}
	}
}
