package middleware

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger       *zerolog.Logger
	AllowOrigins []string
}

// Register attaches the middlewares shared by every route. Correlation runs
// first so a recovered panic is logged with the request's identifier.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	origins := "*"
	if len(cfg.AllowOrigins) > 0 {
		origins = strings.Join(cfg.AllowOrigins, ",")
	}

	app.Use(CorrelationID())
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, panicValue interface{}) {
			requestLogger.Error().
				Str("correlation_id", GetCorrelationID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("panic", fmt.Sprint(panicValue)).
				Msg("request handler panicked")
		},
	}))
	app.Use(Observability(requestLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, " + HeaderCorrelationID + ", " + HeaderRequestID,
		AllowMethods:  "GET,POST,OPTIONS",
		ExposeHeaders: HeaderCorrelationID,
	}))
}
