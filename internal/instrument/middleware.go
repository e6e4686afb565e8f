package instrument

import (
	"math/rand"

	"github.com/gofiber/fiber/v2"

	"formcraft/internal/config"
)

// subject is implemented by whatever the auth middleware stores in
// c.Locals("user").
type subject interface {
	Subject() string
}

// Middleware traces each request: it propagates or generates X-Trace-ID,
// opens a root span and puts the tracer into the request context.
func Middleware(cfg config.InstrumentationConfig, buffer *EventBuffer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled || buffer == nil {
			return c.Next()
		}
		if cfg.SamplingRate < 1.0 && rand.Float64() > cfg.SamplingRate {
			return c.Next()
		}

		traceID := c.Get("X-Trace-ID")
		if traceID == "" {
			traceID = newID()
		}

		tracer := NewTracer(buffer)
		ctx := WithInstrumenter(WithTraceID(c.UserContext(), traceID), tracer)
		ctx, span := tracer.StartSpan(ctx, "http", "handler", "request")
		span.SetMetadata("method", c.Method())
		span.SetMetadata("path", c.Path())
		if id := c.Params("id"); id != "" {
			span.SetForm(id)
		}
		c.SetUserContext(ctx)
		c.Set("X-Trace-ID", traceID)

		err := c.Next()

		if u, ok := c.Locals("user").(subject); ok && u != nil {
			span.SetMetadata("user", u.Subject())
		}
		status := c.Response().StatusCode()
		span.SetMetadata("status_code", status)
		if status >= 400 {
			span.SetStatus("error")
		} else {
			span.SetStatus("ok")
		}
		span.End()
		return err
	}
}
