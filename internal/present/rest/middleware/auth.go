package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edustake/edustake-core/internal/domain"
	"github.com/edustake/edustake-core/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyRequester resolves a bearer session token to a uid and puts
// it on the request context. Requests without a valid token pass
// through unauthenticated; handlers that need an identity reject them.
func (m *AuthMiddleware) IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyRequester")
		defer span.End()

		if uid, ok := m.resolve(c, span); ok {
			ctx = context.WithValue(ctx, domain.RequesterIDCtxKey, uid)
			span.SetAttributes(attribute.String("RequesterId", uid))
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (m *AuthMiddleware) resolve(c echo.Context, span trace.Span) (string, bool) {

	authHeader := c.Request().Header.Get("authorization")
	if authHeader == "" {
		return "", false
	}

	split := strings.Split(authHeader, " ")
	if len(split) != 2 || split[0] != "Bearer" {
		span.AddEvent("invalid authentication header")
		return "", false
	}

	uid, ok := m.auth.Authenticate(split[1])
	if !ok {
		span.AddEvent("unknown or expired token")
		return "", false
	}
	return uid, true
}

// RequesterID extracts the authenticated uid from a request context.
func RequesterID(ctx context.Context) string {
	uid, _ := ctx.Value(domain.RequesterIDCtxKey).(string)
	return uid
}
