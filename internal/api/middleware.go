package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
	"github.com/signalsfoundry/incident-demo/internal/permissions"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestIDMiddleware ensures a request_id is present on the request
// context, sourcing it from the inbound header if provided, and attaches a
// per-request logger annotated with request_id, method and path.
func requestIDMiddleware(base logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := c.GetHeader(RequestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		id := logging.RequestIDFromContext(ctx)
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// accessLogMiddleware logs one line per request once the handler chain
// completes. Server errors log at warn, everything else at debug.
func accessLogMiddleware(base logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		log := logging.FromContext(ctx, base)
		fields := []logging.Field{
			logging.String("route", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("error", c.Errors.Last().Error()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn(ctx, "http request failed", fields...)
			return
		}
		log.Debug(ctx, "http request", fields...)
	}
}

// tracingMiddleware starts a server span per request, continuing any trace
// propagated in the inbound headers.
func tracingMiddleware() gin.HandlerFunc {
	tracer := observability.Tracer()

	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", c.Request.URL.Path),
			),
		)
		defer span.End()
		if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
			span.SetAttributes(attribute.String("request_id", reqID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// metricsMiddleware records request counts and latency by route template.
func metricsMiddleware(collector *observability.DemoCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		collector.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// RequireRoute aborts with 403 unless the store's current role may open
// route. The response carries the role's fallback landing route.
func RequireRoute(store *permissions.Store, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store.CanAccessRoute(route) {
			c.Next()
			return
		}
		fallback, _ := store.FallbackRoute()
		err := fmt.Errorf("%w: %s may not open %s", ErrRouteForbidden, store.Role(), route)
		_ = c.Error(err)
		status, code := statusFor(err)
		c.AbortWithStatusJSON(status, errorResponse{
			Error:     err.Error(),
			Code:      code,
			RequestID: requestIDFrom(c),
			Fallback:  fallback,
		})
	}
}
