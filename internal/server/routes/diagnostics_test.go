package routes

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/cache"
	"github.com/img-hub/img-hub/internal/imaging"
	"github.com/img-hub/img-hub/internal/loader"
	"github.com/img-hub/img-hub/internal/tiered"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("fetcher not expected in diagnostics tests")
}

func pngAsset(t *testing.T) *imaging.Asset {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	asset, err := imaging.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return asset
}

func newDiagnosticsHarness(t *testing.T) (*fiber.App, *tiered.Coordinator, *loader.Registry) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	coordinator, err := tiered.New(tiered.Options{
		CostLimit: 1 << 20,
		Disk:      store,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("coordinator error: %v", err)
	}
	t.Cleanup(coordinator.Close)

	registry, err := loader.NewRegistry(loader.RegistryOptions{
		Cache:   coordinator,
		Fetcher: nopFetcher{},
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	app := fiber.New()
	RegisterCacheRoutes(app, CacheRouteOptions{
		Coordinator: coordinator,
		Registry:    registry,
		Logger:      logger,
	})
	return app, coordinator, registry
}

func TestBuildStatsReportsTiers(t *testing.T) {
	_, coordinator, registry := newDiagnosticsHarness(t)

	asset := pngAsset(t)
	coordinator.Store(context.Background(), "https://img.example.com/stats.png", asset)

	stats := buildStats(context.Background(), coordinator, registry)
	if stats.Version == "" {
		t.Fatal("expected version in stats")
	}
	if stats.Memory.UsageBytes != asset.EncodedSize() {
		t.Fatalf("expected usage %d, got %d", asset.EncodedSize(), stats.Memory.UsageBytes)
	}
	if stats.Memory.ResidentEntries != 1 {
		t.Fatalf("expected one resident entry, got %d", stats.Memory.ResidentEntries)
	}
	if stats.Memory.LimitBytes != 1<<20 {
		t.Fatalf("expected limit %d, got %d", 1<<20, stats.Memory.LimitBytes)
	}
	if !stats.Disk.Available {
		t.Fatal("expected disk tier to be available")
	}
	if stats.Disk.UsageBytes != asset.EncodedSize() {
		t.Fatalf("expected disk usage %d, got %d", asset.EncodedSize(), stats.Disk.UsageBytes)
	}
	if stats.Loaders.Registered != 0 {
		t.Fatalf("expected empty registry, got %d", stats.Loaders.Registered)
	}
}

func TestHealthzRoute(t *testing.T) {
	app, _, _ := newDiagnosticsHarness(t)

	resp, err := app.Test(httptest.NewRequest("GET", "http://127.0.0.1/-/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"ok"`)) {
		t.Fatalf("expected ok status, got %s", string(body))
	}
}

func TestCachePurgeClearsMemoryTierOnly(t *testing.T) {
	app, coordinator, _ := newDiagnosticsHarness(t)

	coordinator.Store(context.Background(), "https://img.example.com/p1.png", pngAsset(t))
	coordinator.Store(context.Background(), "https://img.example.com/p2.png", pngAsset(t))

	resp, err := app.Test(httptest.NewRequest("DELETE", "http://127.0.0.1/-/cache", nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"purged_entries":2`)) {
		t.Fatalf("expected two purged entries, got %s", string(body))
	}

	if coordinator.ResidentEntries() != 0 {
		t.Fatalf("expected empty memory tier, got %d", coordinator.ResidentEntries())
	}
	used, err := coordinator.DiskUsage(context.Background())
	if err != nil || used == 0 {
		t.Fatalf("disk tier should survive a purge, usage=%d err=%v", used, err)
	}
}

func TestCacheEvictRemovesBothTiers(t *testing.T) {
	app, coordinator, _ := newDiagnosticsHarness(t)

	key := "https://img.example.com/evict.png"
	coordinator.Store(context.Background(), key, pngAsset(t))

	target := "http://127.0.0.1/-/cache?url=" + url.QueryEscape(key)
	resp, err := app.Test(httptest.NewRequest("DELETE", target, nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"evicted":true`)) {
		t.Fatalf("expected eviction ack, got %s", string(body))
	}

	if coordinator.ResidentEntries() != 0 {
		t.Fatalf("memory entry should be gone, got %d", coordinator.ResidentEntries())
	}
	used, err := coordinator.DiskUsage(context.Background())
	if err != nil {
		t.Fatalf("disk usage error: %v", err)
	}
	if used != 0 {
		t.Fatalf("disk entry should be gone, usage=%d", used)
	}
	if _, ok := coordinator.Lookup(context.Background(), key); ok {
		t.Fatal("evicted key must miss on lookup")
	}
}
