package post

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"backend-catmap/internal/objectstore"

	"github.com/gofiber/fiber/v2"
)

type recordingPublisher struct {
	rows []Row
}

func (p *recordingPublisher) PublishCreated(_ context.Context, row Row) error {
	p.rows = append(p.rows, row)
	return nil
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

func newTestApp(repo Repository, pub Publisher) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/posts"), WithPublisher(repo, pub), 1024, passThrough)
	return app
}

func multipartBody(t *testing.T, fields map[string]string, contentType string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="cat.jpg"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(image)
	}
	_ = w.Close()
	return body, w.FormDataContentType()
}

func TestHandlersCreateAndList(t *testing.T) {
	repo := NewMemoryStore(objectstore.NewMemory("http://img", "cat-images"), 1024)
	pub := &recordingPublisher{}
	app := newTestApp(repo, pub)

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	var empty []Post
	_ = json.NewDecoder(resp.Body).Decode(&empty)
	if resp.StatusCode != http.StatusOK || empty == nil {
		t.Fatalf("expected empty json array, status %d", resp.StatusCode)
	}

	body, ct := multipartBody(t, map[string]string{"lat": "35.68", "lng": "139.76", "comment": "sleepy\ncat"}, "image/jpeg", []byte{0xff, 0xd8, 0xff})
	req = httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", ct)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created Post
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Comment != "sleepy cat" {
		t.Fatalf("newlines should collapse, got %q", created.Comment)
	}
	if len(pub.rows) != 1 || pub.rows[0].ID != created.ID {
		t.Fatalf("expected created row to be published")
	}

	req = httptest.NewRequest(http.MethodGet, "/posts/nearby?lat=35.68&lng=139.76&radius_km=1", nil)
	resp, _ = app.Test(req)
	var near []Post
	_ = json.NewDecoder(resp.Body).Decode(&near)
	if len(near) != 1 {
		t.Fatalf("expected post nearby, got %d", len(near))
	}

	req = httptest.NewRequest(http.MethodGet, "/posts/nearby?lat=0&lng=0&radius_km=1", nil)
	resp, _ = app.Test(req)
	near = nil
	_ = json.NewDecoder(resp.Body).Decode(&near)
	if len(near) != 0 {
		t.Fatalf("expected nothing near null island")
	}
}

func TestHandlersCreateRejects(t *testing.T) {
	repo := NewMemoryStore(objectstore.NewMemory("http://img", "cat-images"), 1024)
	pub := &recordingPublisher{}
	app := newTestApp(repo, pub)

	cases := []struct {
		name   string
		fields map[string]string
		ct     string
		image  []byte
	}{
		{"no image", map[string]string{"lat": "1", "lng": "1", "comment": "x"}, "", nil},
		{"bad lat", map[string]string{"lat": "north", "lng": "1", "comment": "x"}, "image/png", []byte{1}},
		{"gif", map[string]string{"lat": "1", "lng": "1", "comment": "x"}, "image/gif", []byte{1}},
		{"too big", map[string]string{"lat": "1", "lng": "1", "comment": "x"}, "image/png", make([]byte, 4096)},
	}
	for _, tc := range cases {
		body, ct := multipartBody(t, tc.fields, tc.ct, tc.image)
		req := httptest.NewRequest(http.MethodPost, "/posts", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: request error: %v", tc.name, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
	}
	if len(pub.rows) != 0 {
		t.Fatalf("rejected posts must not be published")
	}
}

func TestHandlersCreateReportsMalformedForm(t *testing.T) {
	repo := NewMemoryStore(objectstore.NewMemory("http://img", "cat-images"), 1024)
	app := newTestApp(repo, nil)

	cases := []struct {
		name string
		ct   string
		body string
	}{
		{"truncated part", "multipart/form-data; boundary=cat", "--cat\r\nContent-Disposition: form-data; name=\"lat\"\r\n\r\n1"},
		{"boundary mismatch", "multipart/form-data; boundary=cat", "--dog\r\n\r\n--dog--\r\n"},
		{"not multipart", "application/json", `{"lat":1,"lng":1}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", tc.ct)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: request error: %v", tc.name, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
		msg, _ := io.ReadAll(resp.Body)
		if !strings.HasPrefix(string(msg), "invalid multipart form: ") {
			t.Fatalf("%s: expected the parse error, got %q", tc.name, msg)
		}
		if strings.Contains(string(msg), ErrMissingImage.Error()) {
			t.Fatalf("%s: parse failure reported as a missing image: %q", tc.name, msg)
		}
	}
}

func TestHandlersNearbyBadQuery(t *testing.T) {
	app := newTestApp(NewMemoryStore(nil, 0), nil)
	for _, q := range []string{"", "?lat=1", "?lat=1&lng=1&radius_km=-2", "?lat=100&lng=1"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/nearby"+q, nil))
		if err != nil {
			t.Fatalf("request error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}
