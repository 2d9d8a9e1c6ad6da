package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backend-catmap/internal/config"
)

func TestMemoryPut(t *testing.T) {
	store := NewMemory("http://cdn.example/", "cat-images")

	url, err := store.Put(context.Background(), "cats/a.jpg", "image/jpeg", []byte("jpeg"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://cdn.example/cat-images/cats/a.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	ct, data, ok := store.Get("cats/a.jpg")
	if !ok || ct != "image/jpeg" || string(data) != "jpeg" {
		t.Fatalf("unexpected stored object")
	}
}

func TestMemoryRejectsDuplicatePath(t *testing.T) {
	store := NewMemory("http://cdn.example", "cat-images")
	if _, err := store.Put(context.Background(), "cats/a.jpg", "image/jpeg", []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := store.Put(context.Background(), "cats/a.jpg", "image/jpeg", []byte("2"))
	if !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if _, data, _ := store.Get("cats/a.jpg"); string(data) != "1" {
		t.Fatalf("duplicate put must not overwrite")
	}
}

func TestMemoryCanceledContext(t *testing.T) {
	store := NewMemory("http://cdn.example", "cat-images")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "cats/a.jpg", "image/jpeg", nil); err == nil {
		t.Fatalf("expected context error")
	}
	if store.Len() != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestNewMinio(t *testing.T) {
	m, err := NewMinio(config.Config{
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "minio",
		S3SecretKey: "minio123",
		S3Bucket:    "cat-images",
		S3PublicURL: "http://localhost:9000",
	})
	if err != nil {
		t.Fatalf("new minio: %v", err)
	}
	if m.bucket != "cat-images" {
		t.Fatalf("unexpected bucket")
	}
}

func TestReadOnlyPolicy(t *testing.T) {
	p := readOnlyPolicy("cat-images")
	if p == "" || !strings.Contains(p, "arn:aws:s3:::cat-images/*") {
		t.Fatalf("unexpected policy %s", p)
	}
}
