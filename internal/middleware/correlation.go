package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// HeaderCorrelationID carries the correlation identifier on requests and responses.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted when a caller sends no HeaderCorrelationID.
	HeaderRequestID = "X-Request-ID"

	correlationLocal     = "correlation_id"
	maxCorrelationLength = 64
)

type correlationKey struct{}

// CorrelationID binds a correlation identifier to every request, into both
// the fiber locals and the user context handed to services, and echoes it on
// the response. Identifiers end up in submission metadata, so incoming values
// are reduced to at most 64 printable characters. A request without one gets
// a fresh UUID.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := normalizeCorrelation(c.Get(HeaderCorrelationID))
		if id == "" {
			id = normalizeCorrelation(c.Get(HeaderRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

// ContextWithCorrelation attaches a correlation identifier to ctx. A blank
// identifier leaves ctx untouched.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id := normalizeCorrelation(correlationID)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the identifier bound by ContextWithCorrelation.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GetCorrelationID returns the identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

func normalizeCorrelation(raw string) string {
	id := strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' {
			return -1
		}
		return r
	}, raw)
	if len(id) > maxCorrelationLength {
		id = id[:maxCorrelationLength]
	}
	return id
}
