package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDecodeDataURI(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	encoded := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		src     string
		want    []byte
		wantErr bool
	}{
		{
			name: "png data uri",
			src:  "data:image/png;base64," + encoded,
			want: payload,
		},
		{
			name: "jpeg data uri",
			src:  "data:image/jpeg;base64," + encoded,
			want: payload,
		},
		{
			name:    "http url",
			src:     "https://example.com/captcha.png",
			wantErr: true,
		},
		{
			name:    "missing payload",
			src:     "data:image/png;base64",
			wantErr: true,
		},
		{
			name:    "empty payload",
			src:     "data:image/png;base64,",
			wantErr: true,
		},
		{
			name:    "invalid base64",
			src:     "data:image/png;base64,!!not-base64!!",
			wantErr: true,
		},
		{
			name:    "empty src",
			src:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURI(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("DecodeDataURI() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDataURI() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("DecodeDataURI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPSolverSolve(t *testing.T) {
	image := []byte("captcha-image-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			http.NotFound(w, r)
			return
		}
		var req ocrRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || !bytes.Equal(decoded, image) {
			http.Error(w, "unexpected image", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(ocrResponse{Text: " AB12 "})
	}))
	defer server.Close()

	solver := NewHTTPSolver(Config{BaseURL: server.URL})

	text, err := solver.Solve(context.Background(), image)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if text != "AB12" {
		t.Errorf("Solve() = %q, want %q (trimmed)", text, "AB12")
	}
}

func TestHTTPSolverUnrecognizedIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ocrResponse{Text: ""})
	}))
	defer server.Close()

	solver := NewHTTPSolver(Config{BaseURL: server.URL})

	text, err := solver.Solve(context.Background(), []byte("blurry"))
	if err != nil {
		t.Fatalf("Solve() error = %v, want nil for unrecognized image", err)
	}
	if text != "" {
		t.Errorf("Solve() = %q, want empty", text)
	}
}

func TestHTTPSolverServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ocrResponse{Error: "model not loaded"})
	}))
	defer server.Close()

	solver := NewHTTPSolver(Config{BaseURL: server.URL})

	if _, err := solver.Solve(context.Background(), []byte("x")); err == nil {
		t.Fatal("Solve() error = nil, want service error")
	}
}

func TestHTTPSolverBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	solver := NewHTTPSolver(Config{BaseURL: server.URL})

	if _, err := solver.Solve(context.Background(), []byte("x")); err == nil {
		t.Fatal("Solve() error = nil, want status error")
	}
}

func TestHTTPSolverAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ocrResponse{Text: "ZZ99"})
	}))
	defer server.Close()

	solver := NewHTTPSolver(Config{BaseURL: server.URL, APIKey: "secret-key"})

	if _, err := solver.Solve(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestHTTPSolverIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	solver := NewHTTPSolver(Config{BaseURL: server.URL})
	if !solver.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false, want true")
	}

	down := NewHTTPSolver(Config{BaseURL: "http://127.0.0.1:1", Timeout: 1})
	if down.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = true for unreachable service, want false")
	}
}
