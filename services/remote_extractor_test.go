package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteExtractorSuccess(t *testing.T) {
	var gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing multipart file field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file.Close()
		gotFilename = header.Filename

		json.NewEncoder(w).Encode(remoteExtractResponse{
			Success:       true,
			Filename:      header.Filename,
			Pages:         2,
			TextLength:    20,
			ExtractedText: "Text aus dem Dienst.",
		})
	}))
	defer server.Close()

	client := NewRemoteExtractor(server.URL, 2*time.Second)
	text, err := client.Extract(context.Background(), []byte("%PDF-1.4"), "rechnung.pdf")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if text != "Text aus dem Dienst." {
		t.Fatalf("unexpected text: %q", text)
	}
	if gotFilename != "rechnung.pdf" {
		t.Fatalf("filename not transmitted: %q", gotFilename)
	}
}

func TestRemoteExtractorReportedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteExtractResponse{
			Success: false,
			Error:   "encrypted document",
		})
	}))
	defer server.Close()

	client := NewRemoteExtractor(server.URL, 2*time.Second)
	if _, err := client.Extract(context.Background(), []byte("%PDF-1.4"), "a.pdf"); err == nil {
		t.Fatalf("expected error for reported failure")
	}
}

func TestRemoteExtractorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewRemoteExtractor(server.URL, 2*time.Second)
	if _, err := client.Extract(context.Background(), []byte("%PDF-1.4"), "a.pdf"); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestRemoteExtractorBreakerOpens(t *testing.T) {
	// The default breaker opens after consecutive failures, so a dead
	// service stops being called at all.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRemoteExtractor(server.URL, 2*time.Second)
	for i := 0; i < 10; i++ {
		client.Extract(context.Background(), []byte("x"), "a.pdf")
	}
	if calls >= 10 {
		t.Fatalf("breaker never opened, %d upstream calls", calls)
	}
}

func TestRemoteExtractorHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewRemoteExtractor(server.URL, 2*time.Second)
	healthy, err := client.IsHealthy(context.Background())
	if err != nil || !healthy {
		t.Fatalf("expected healthy, got %v %v", healthy, err)
	}
}
