package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"backend-catmap/internal/config"

	"github.com/minio/minio-go/v7"
)

// s3Stub answers the handful of S3 calls Put makes. Objects listed in
// existing report as present; headStatus overrides the HEAD reply.
type s3Stub struct {
	mu         sync.Mutex
	existing   map[string]bool
	headStatus int
	puts       map[string]string
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method == http.MethodGet && r.URL.Query().Has("location") {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		return
	}

	switch r.Method {
	case http.MethodHead:
		switch {
		case s.headStatus != 0:
			w.WriteHeader(s.headStatus)
		case s.existing[r.URL.Path]:
			w.Header().Set("Content-Length", "4")
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		s.puts[r.URL.Path] = r.Header.Get("Content-Type")
		s.existing[r.URL.Path] = true
		w.Header().Set("ETag", `"0f343b0931126a20f133d67c2b018a3b"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *s3Stub) uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

func newStubMinio(t *testing.T, stub *s3Stub) *Minio {
	t.Helper()
	if stub.existing == nil {
		stub.existing = map[string]bool{}
	}
	stub.puts = map[string]string{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	m, err := NewMinio(config.Config{
		S3Endpoint:  srv.URL,
		S3AccessKey: "minio",
		S3SecretKey: "minio123",
		S3Bucket:    "cat-images",
		S3PublicURL: "http://cdn.example",
	})
	if err != nil {
		t.Fatalf("new minio: %v", err)
	}
	return m
}

func TestMinioPutUploadsNewObject(t *testing.T) {
	stub := &s3Stub{}
	m := newStubMinio(t, stub)

	url, err := m.Put(context.Background(), "cats/a.jpg", "image/jpeg", []byte("jpeg"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://cdn.example/cat-images/cats/a.jpg" {
		t.Fatalf("unexpected url %q", url)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if ct, ok := stub.puts["/cat-images/cats/a.jpg"]; !ok || ct != "image/jpeg" {
		t.Fatalf("expected one upload with the content type, got %v", stub.puts)
	}
}

func TestMinioPutRejectsExistingObject(t *testing.T) {
	stub := &s3Stub{existing: map[string]bool{"/cat-images/cats/a.jpg": true}}
	m := newStubMinio(t, stub)

	_, err := m.Put(context.Background(), "cats/a.jpg", "image/jpeg", []byte("jpeg"))
	if !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if stub.uploads() != 0 {
		t.Fatalf("existing object must not be overwritten")
	}
}

func TestMinioPutTwiceSamePath(t *testing.T) {
	m := newStubMinio(t, &s3Stub{})

	if _, err := m.Put(context.Background(), "cats/b.png", "image/png", []byte("png")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := m.Put(context.Background(), "cats/b.png", "image/png", []byte("png")); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists on second put, got %v", err)
	}
}

func TestMinioPutStatFailure(t *testing.T) {
	stub := &s3Stub{headStatus: http.StatusForbidden}
	m := newStubMinio(t, stub)

	_, err := m.Put(context.Background(), "cats/a.jpg", "image/jpeg", []byte("jpeg"))
	if err == nil {
		t.Fatalf("expected stat failure to surface")
	}
	if errors.Is(err, ErrObjectExists) {
		t.Fatalf("stat failure reported as an existing object: %v", err)
	}
	if code := minio.ToErrorResponse(err).Code; !strings.EqualFold(code, "AccessDenied") {
		t.Fatalf("expected AccessDenied, got %q", code)
	}
	if stub.uploads() != 0 {
		t.Fatalf("nothing should be uploaded after a failed stat")
	}
}
