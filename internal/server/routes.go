package server

import (
	"net/http"

	"github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	"github.com/OFFIS-RIT/graphvis/internal/server/routes"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes mounts the API. authRate limits sign-up and login requests
// per client IP; zero disables the limit.
func RegisterRoutes(e *echo.Echo, authRate rate.Limit) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Public routes
	publicRoutes := e.Group("/api")
	publicRoutes.GET("/graphs", routes.GetGraphsHandler)
	publicRoutes.GET("/graphs/:id", routes.GetGraphHandler)

	var authLimit []echo.MiddlewareFunc
	if authRate > 0 {
		authLimit = append(authLimit, echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(authRate)))
	}
	authRoutes := e.Group("/api/auth", authLimit...)
	authRoutes.POST("/signup", routes.SignUpHandler)
	authRoutes.POST("/login", routes.LoginHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph routes
	apiRoutes.GET("/graphs/all", routes.GetAllGraphsHandler, middleware.RequirePermission("graph.view:all"))
	apiRoutes.POST("/graphs", routes.CreateGraphHandler, middleware.RequirePermission("graph.create"))
	apiRoutes.POST("/graphs/:id", routes.UploadGraphHandler, middleware.RequirePermission("graph.upload"))
	apiRoutes.PUT("/graphs/:id", routes.UpdateGraphHandler, middleware.RequirePermission("graph.update"))
	apiRoutes.DELETE("/graphs/:id", routes.DeleteGraphHandler, middleware.RequirePermission("graph.delete"))
	apiRoutes.DELETE("/graphs", routes.DeleteGraphsHandler, middleware.RequirePermission("graph.delete"))
	apiRoutes.GET("/graphs/:id/uploads", routes.GetGraphUploadsHandler, middleware.RequirePermission("graph.upload"))

	// User routes
	apiRoutes.GET("/users/current", routes.GetCurrentUserHandler, middleware.RequirePermission("user.view:self"))
	apiRoutes.PUT("/users", routes.UpdateCurrentUserHandler, middleware.RequirePermission("user.update:self"))
	apiRoutes.PUT("/users/password", routes.UpdatePasswordHandler, middleware.RequirePermission("user.update:self"))
	apiRoutes.POST("/users", routes.CreateUserHandler, middleware.RequirePermission("user.create"))
	apiRoutes.GET("/users", routes.GetUsersHandler, middleware.RequirePermission("user.view"))
	apiRoutes.GET("/users/:id", routes.GetUserHandler, middleware.RequirePermission("user.view"))
	apiRoutes.PUT("/users/:id", routes.UpdateUserHandler, middleware.RequirePermission("user.update"))
	apiRoutes.PUT("/users/block/:id", routes.BlockUserHandler, middleware.RequirePermission("user.block"))
	apiRoutes.DELETE("/users", routes.DeleteUsersHandler, middleware.RequirePermission("user.delete"))
}
