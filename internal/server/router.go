package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AssetHandler describes the component responsible for resolving and serving
// a cached image asset. It allows injecting fake handlers during tests.
type AssetHandler interface {
	Handle(c fiber.Ctx, rawURL string) error
}

// AssetHandlerFunc adapts a function to the AssetHandler interface.
type AssetHandlerFunc func(fiber.Ctx, string) error

// Handle makes AssetHandlerFunc satisfy AssetHandler.
func (f AssetHandlerFunc) Handle(c fiber.Ctx, rawURL string) error {
	return f(c, rawURL)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Assets     AssetHandler
	ListenPort int
}

const contextKeyRequestID = "_imghub_request_id"

// AssetPath is the public route serving cached images, keyed by the url query
// parameter.
const AssetPath = "/i"

// NewApp builds a Fiber application with request-ID middleware and structured
// error handling. Diagnostics routes under /-/ are registered separately and
// fall through the catch-all.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Assets == nil {
		return nil, errors.New("asset handler is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	assetRoute := func(c fiber.Ctx) error {
		rawURL := strings.TrimSpace(c.Query("url"))
		return opts.Assets.Handle(c, rawURL)
	}
	app.Get(AssetPath, assetRoute)
	app.Head(AssetPath, assetRoute)

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		return renderPathUnmapped(c, opts.Logger, opts.ListenPort)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID 并写入响应头，供后续日志关联。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

func renderPathUnmapped(c fiber.Ctx, logger *logrus.Logger, port int) error {
	path := string(c.Request().URI().Path())
	fields := logrus.Fields{
		"action": "path_lookup",
		"path":   path,
		"port":   port,
	}
	logger.WithFields(fields).Warn("path unmapped")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "not_found",
	})
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
