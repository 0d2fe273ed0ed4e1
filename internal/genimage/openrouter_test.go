package genimage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"slideimage/pkg/httputil"
)

func testImagenBackend(server *httptest.Server) *ImagenBackend {
	b := NewImagenBackend("or-key", "google/imagen-4")
	b.baseURL = server.URL
	b.httpClient = httputil.NewRetryClient(server.Client(), httputil.DefaultRetryConfig())
	return b
}

func TestImagenGenerateURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer or-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var body imagenRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Model != "google/imagen-4" || body.Size != "1024x768" {
			t.Errorf("body = %+v", body)
		}
		_, _ = w.Write([]byte(`{"data":[{"url":"https://hosted/img.png"}]}`))
	}))
	defer server.Close()

	img, err := testImagenBackend(server).Generate(context.Background(), "p", 1024, 768)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.URL != "https://hosted/img.png" || img.Data != nil {
		t.Errorf("image = %+v", img)
	}
}

func TestImagenGenerateInlineBytes(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	encoded := base64.StdEncoding.EncodeToString(raw)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + encoded + `"}]}`))
	}))
	defer server.Close()

	img, err := testImagenBackend(server).Generate(context.Background(), "p", 1024, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img.Data) != string(raw) || img.MediaType != "image/png" {
		t.Errorf("image = %+v", img)
	}
}

func TestImagenGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer server.Close()

	if _, err := testImagenBackend(server).Generate(context.Background(), "p", 1024, 1024); err == nil {
		t.Fatal("expected error")
	}
}

func TestImagenGenerateEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if _, err := testImagenBackend(server).Generate(context.Background(), "p", 1024, 1024); err == nil {
		t.Fatal("expected error for empty data")
	}
}
