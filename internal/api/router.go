package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "muralhub/internal/api/context"
	"muralhub/internal/api/handlers"
	"muralhub/internal/api/middleware"
	"muralhub/internal/pkg/errors"
	"muralhub/internal/platform/audit"
	"muralhub/internal/platform/models"
)

type Dependencies struct {
	AuthHandler    *handlers.AuthHandler
	ClaimsHandler  *handlers.ClaimsHandler
	OrgHandler     *handlers.OrgHandler
	UserHandler    *handlers.UserHandler
	AuditHandler   *handlers.AuditHandler
	HealthHandler  *handlers.HealthHandler
	MetricsHandler *handlers.MetricsHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware
	limiter := deps.RateLimiter
	rt := &routes{clientIP: limiter.ClientIP}

	router.GET("/health", rt.wrap(deps.HealthHandler.Check))
	router.GET("/metrics", rt.wrap(deps.MetricsHandler.Export))

	// Authentication routes
	router.POST("/api/v1/auth/signup",
		rt.chain(deps.AuthHandler.Signup, limiter.Limit(middleware.LimitSignup)))
	router.POST("/api/v1/auth/login", rt.wrap(deps.AuthHandler.Login))
	router.POST("/api/v1/auth/refresh", rt.wrap(deps.AuthHandler.Refresh))

	// Claim checks
	router.POST("/api/v1/organizations/check",
		rt.chain(deps.ClaimsHandler.Check, limiter.Limit(middleware.LimitCheck)))
	router.GET("/api/v1/organization-names/check",
		rt.chain(deps.ClaimsHandler.CheckName, limiter.Limit(middleware.LimitCheck), authMid.Handle))

	// Organization management
	router.GET("/api/v1/organizations/:slug", rt.wrap(deps.OrgHandler.Get))
	router.PATCH("/api/v1/organizations/:slug",
		rt.chain(deps.OrgHandler.Update, authMid.Handle))
	router.GET("/api/v1/organizations/:slug/audit",
		rt.chain(deps.AuditHandler.List, authMid.Handle, requireRole(models.RoleAdmin)))

	// User management
	router.DELETE("/api/v1/users/me",
		rt.chain(deps.UserHandler.DeleteMe, authMid.Handle))

	return router
}

// routes resolves client addresses the same way the rate limiter does, so
// audit rows record the address requests were limited on.
type routes struct {
	clientIP func(*http.Request) string
}

// Helper function to chain middlewares
func (rt *routes) chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return rt.wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func (rt *routes) wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		ctx = audit.WithRequest(ctx, audit.Request{
			IPAddress: rt.clientIP(r),
			UserAgent: r.UserAgent(),
		})
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := middleware.ClaimsFromContext(r.Context())

			allowed := false
			for _, role := range roles {
				if claims != nil && claims.HasRole(role) {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
