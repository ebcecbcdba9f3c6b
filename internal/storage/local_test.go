package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	n, err := store.Save(ctx, "ticket/1/file.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != 5 {
		t.Fatalf("byte count mismatch: got %d", n)
	}

	exists, err := store.Exists(ctx, "ticket/1/file.txt")
	if err != nil || !exists {
		t.Fatalf("exists: %v %v", exists, err)
	}

	r, err := store.Open(ctx, "ticket/1/file.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "hello" {
		t.Fatalf("content mismatch: %q", content)
	}

	if err := store.Delete(ctx, "ticket/1/file.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, _ = store.Exists(ctx, "ticket/1/file.txt")
	if exists {
		t.Fatal("file must be gone after delete")
	}
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	if err := store.Delete(context.Background(), "nope/missing.bin"); err != nil {
		t.Fatalf("deleting a missing path must not error: %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, path := range []string{"../escape.txt", "/etc/passwd", "a/../../b"} {
		if _, err := store.Save(ctx, path, strings.NewReader("x")); err == nil {
			t.Fatalf("path %q must be rejected", path)
		}
	}
}
