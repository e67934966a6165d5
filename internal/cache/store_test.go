package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreWriteAndRead(t *testing.T) {
	store := newTestStore(t)
	key := "https://img.example.com/photos/cat.png?size=large"

	payload := []byte("payload")
	if err := store.Write(context.Background(), key, payload); err != nil {
		t.Fatalf("write error: %v", err)
	}

	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("cached payload mismatch: %s", string(data))
	}
}

func TestStoreReadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Read(context.Background(), "https://img.example.com/missing.png")
	if err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	key := "https://img.example.com/remove.png"
	if err := store.Write(context.Background(), key, []byte("data")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := store.Read(context.Background(), key); err == nil || err != ErrNotFound {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove of absent entry should succeed, got %v", err)
	}
}

func TestStoreOverwrite(t *testing.T) {
	store := newTestStore(t)
	key := "https://img.example.com/banner.jpg"
	if err := store.Write(context.Background(), key, []byte("old")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := store.Write(context.Background(), key, []byte("new")); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("expected overwritten payload, got %s", string(data))
	}
}

func TestStoreKeyEncodingStaysFlat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	key := "https://img.example.com/../../etc/passwd"
	if err := store.Write(context.Background(), key, []byte("x")); err != nil {
		t.Fatalf("write error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one flat entry, got %d", len(entries))
	}
	name := entries[0].Name()
	if entries[0].IsDir() || strings.ContainsAny(name, "/\\") {
		t.Fatalf("expected flat encoded file, got %s", name)
	}
	if !strings.HasSuffix(name, fileExt) {
		t.Fatalf("expected %s suffix, got %s", fileExt, name)
	}
}

func TestStoreDistinctKeysDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	a := "https://img.example.com/a?x=1"
	b := "https://img.example.com/a?x=2"

	if err := store.Write(context.Background(), a, []byte("first")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := store.Write(context.Background(), b, []byte("second")); err != nil {
		t.Fatalf("write error: %v", err)
	}

	data, err := store.Read(context.Background(), a)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(data) != "first" {
		t.Fatalf("keys collided: %s", string(data))
	}
}

// 超长键写入走随机文件名，之后无法按键找回，但字节仍占用磁盘。
func TestStoreOverlongKeyUnaddressable(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	key := "https://img.example.com/" + strings.Repeat("a", 400)
	if err := store.Write(context.Background(), key, []byte("orphan")); err != nil {
		t.Fatalf("write error: %v", err)
	}

	if _, err := store.Read(context.Background(), key); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for overlong key, got %v", err)
	}

	usage, err := store.Usage(context.Background())
	if err != nil {
		t.Fatalf("usage error: %v", err)
	}
	if usage != int64(len("orphan")) {
		t.Fatalf("expected orphan bytes in usage, got %d", usage)
	}
}

func TestStoreUsageSumsEntries(t *testing.T) {
	store := newTestStore(t)
	if err := store.Write(context.Background(), "k1", bytes.Repeat([]byte("a"), 10)); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := store.Write(context.Background(), "k2", bytes.Repeat([]byte("b"), 32)); err != nil {
		t.Fatalf("write error: %v", err)
	}

	usage, err := store.Usage(context.Background())
	if err != nil {
		t.Fatalf("usage error: %v", err)
	}
	if usage != 42 {
		t.Fatalf("unexpected usage: %d", usage)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	key := "weird"

	fs, ok := store.(*fileStore)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}

	filePath, ok := fs.entryPath(key)
	if !ok {
		t.Fatal("expected addressable path")
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Read(context.Background(), key); err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestStoreRecreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "storage")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("removeall error: %v", err)
	}
	if err := store.Write(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("write after directory loss should recreate it, got %v", err)
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
