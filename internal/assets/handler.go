package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/imaging"
	"github.com/img-hub/img-hub/internal/loader"
	"github.com/img-hub/img-hub/internal/logging"
	"github.com/img-hub/img-hub/internal/server"
)

// Handler 负责 orchestrate “注册表取加载器 → 限时等待终态 → 编码响应” 的全流程，
// 对外暴露 Fiber handler，内部复用共享的加载器注册表。
type Handler struct {
	registry *loader.Registry
	logger   *logrus.Logger
	waitFor  time.Duration
}

var errUpstreamFailed = errors.New("upstream fetch failed")

// NewHandler constructs an asset handler with shared registry/logger. waitFor
// bounds how long a single request blocks on an in-flight load.
func NewHandler(registry *loader.Registry, logger *logrus.Logger, waitFor time.Duration) *Handler {
	if waitFor <= 0 {
		waitFor = 45 * time.Second
	}
	return &Handler{
		registry: registry,
		logger:   logger,
		waitFor:  waitFor,
	}
}

// Handle 执行键校验、加载等待与响应编码，任何阶段出错都会输出结构化日志。
// 等待超时只是本次请求放弃，后台加载继续，后续请求可直接取结果。
func (h *Handler) Handle(c fiber.Ctx, rawURL string) error {
	started := time.Now()
	requestID := server.RequestID(c)

	l := h.registry.Get(rawURL)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, h.waitFor)
	defer cancel()

	snap, err := l.Await(waitCtx)
	switch {
	case errors.Is(err, loader.ErrRejected):
		h.logResult(rawURL, snap, requestID, fiber.StatusBadRequest, started, err)
		return h.writeError(c, fiber.StatusBadRequest, "invalid_url")
	case err != nil:
		h.logPending(rawURL, snap, requestID, started)
		return h.writeError(c, fiber.StatusGatewayTimeout, "fetch_pending")
	}

	if snap.State == loader.StateFailed {
		h.logResult(rawURL, snap, requestID, fiber.StatusBadGateway, started, errUpstreamFailed)
		return h.writeError(c, fiber.StatusBadGateway, "fetch_failed")
	}

	return h.serveAsset(c, rawURL, snap, requestID, started)
}

func (h *Handler) serveAsset(c fiber.Ctx, key string, snap loader.Snapshot, requestID string, started time.Time) error {
	data, err := imaging.Encode(snap.Asset)
	if err != nil {
		h.logResult(key, snap, requestID, fiber.StatusInternalServerError, started, err)
		return h.writeError(c, fiber.StatusInternalServerError, "encode_failed")
	}

	c.Set("Content-Type", snap.Asset.ContentType())
	c.Set("X-Img-Hub-State", snap.State.String())
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Response().Header.SetContentLength(len(data))
	c.Status(fiber.StatusOK)

	if c.Method() == http.MethodHead {
		h.logResult(key, snap, requestID, fiber.StatusOK, started, nil)
		return nil
	}

	_, werr := c.Response().BodyWriter().Write(data)
	h.logResult(key, snap, requestID, fiber.StatusOK, started, werr)
	if werr != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("write response failed: %v", werr))
	}
	return nil
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(key string, snap loader.Snapshot, requestID string, status int, started time.Time, err error) {
	fields := logging.RequestFields(key, snap.State.String(), status)
	fields["action"] = "asset_request"
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if snap.Asset != nil {
		fields["size_bytes"] = snap.Asset.EncodedSize()
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("asset_request_failed")
		return
	}
	h.logger.WithFields(fields).Info("asset_request_complete")
}

func (h *Handler) logPending(key string, snap loader.Snapshot, requestID string, started time.Time) {
	fields := logging.RequestFields(key, snap.State.String(), fiber.StatusGatewayTimeout)
	fields["action"] = "asset_request"
	fields["reason"] = "wait_timeout"
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	h.logger.WithFields(fields).Warn("asset_request_pending")
}
