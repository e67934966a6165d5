package integration

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestAssetSizeCapRejectsOversizedImage(t *testing.T) {
	stub := newImgStub(t)
	defer stub.Close()

	payload := pngPayload(t, 30)
	stub.AddImage("/big.png", payload)

	h := newHubHarness(t, harnessOptions{maxAssetSize: 16})

	resp := h.getAsset(t, stub.URL+"/big.png")
	body := readBody(t, resp)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502 for oversized asset, got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"fetch_failed"`)) {
		t.Fatalf("expected fetch_failed error, got %s", string(body))
	}

	if hits := stub.Hits("/big.png"); hits != 1 {
		t.Fatalf("size cap violation must not retry, got %d hits", hits)
	}

	entries, err := filepath.Glob(filepath.Join(h.storageDir, "*.img"))
	if err != nil {
		t.Fatalf("glob storage dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("oversized asset must not be persisted, found %v", entries)
	}
}
