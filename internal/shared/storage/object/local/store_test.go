package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	payload := []byte(`{"summary":"ok"}`)

	key, size, err := store.Save(context.Background(), "snapshots", "run.json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	if !strings.HasPrefix(key, "snapshots/") {
		t.Fatalf("expected namespaced key, got %q", key)
	}
	if !strings.HasSuffix(key, "_run.json") {
		t.Fatalf("expected original name in key, got %q", key)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected payload round trip, got %q", got)
	}
}

func TestSaveRejectsTraversalNames(t *testing.T) {
	store := New(t.TempDir())

	if _, _, err := store.Save(context.Background(), "snapshots", "../escape.json", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatalf("expected traversal file name rejected")
	}
	if _, _, err := store.Save(context.Background(), "../ns", "ok.json", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatalf("expected traversal namespace rejected")
	}
}

func TestOpenRejectsBadKeys(t *testing.T) {
	store := New(t.TempDir())

	for _, key := range []string{"../secret", "/etc/passwd"} {
		if _, err := store.Open(context.Background(), key); err == nil {
			t.Fatalf("expected key %q rejected", key)
		}
	}
}
