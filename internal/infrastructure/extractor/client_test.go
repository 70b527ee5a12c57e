package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	domain "mediagrab/internal/domain/download"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, zap.NewNop())
	c.pollInterval = time.Millisecond
	return c
}

func TestProbe_Online(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "version": "1.0.0"})
	}))
	defer srv.Close()

	info, err := newTestClient(srv.URL).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Version != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %q", info.Version)
	}
}

func TestProbe_ApplicationFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Probe(context.Background())
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected extraction error for 500 health, got %v", err)
	}
}

func TestProbe_TransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).Probe(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var ee *domain.ExtractionError
	if errors.As(err, &ee) {
		t.Fatalf("transport fault must not read as application fault: %v", err)
	}
}

func TestExecute_FollowsProgressToCompletion(t *testing.T) {
	var mu sync.Mutex
	polls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["url"] == "" || body["platform"] != "youtube" {
			t.Fatalf("unexpected payload: %+v", body)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "d1"})
	})
	mux.HandleFunc("/api/progress/d1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		n := polls
		mu.Unlock()

		switch {
		case n == 1:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "downloading", "percent": 45})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "finished",
				"result": map[string]interface{}{
					"filename":     "abc.mp4",
					"file_size":    2048,
					"duration":     225,
					"download_url": "/downloads/abc.mp4",
					"title":        "Test Video",
					"uploader":     "tester",
				},
			})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var reported []int
	result, err := newTestClient(srv.URL).Execute(context.Background(), domain.DownloadRequest{
		URL:       "https://youtube.com/watch?v=abc",
		Platform:  domain.PlatformYouTube,
		Quality:   "720p",
		AudioType: "mp3",
	}, func(p int) { reported = append(reported, p) })
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.FileName != "abc.mp4" || result.FileSizeBytes != 2048 || result.DownloadURI != "/downloads/abc.mp4" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(reported) < 2 || reported[0] != 45 || reported[len(reported)-1] != 100 {
		t.Fatalf("unexpected progress reports: %v", reported)
	}
}

func TestExecute_MapsRemoteFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "d2"})
	})
	mux.HandleFunc("/api/progress/d2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "error",
			"error":  "this video is private",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Execute(context.Background(), domain.DownloadRequest{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: domain.PlatformYouTube,
	}, nil)

	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if ee.Kind != domain.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %s", ee.Kind)
	}
}

func TestExecute_RejectedSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unsupported URL"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Execute(context.Background(), domain.DownloadRequest{
		URL:      "https://youtube.com/watch?v=abc",
		Platform: domain.PlatformYouTube,
	}, nil)

	var ee *domain.ExtractionError
	if !errors.As(err, &ee) || ee.Kind != domain.UnsupportedContent {
		t.Fatalf("expected UnsupportedContent, got %v", err)
	}
}

func TestInfo_FetchesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/info" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("url") != "https://youtu.be/abc" {
			t.Fatalf("unexpected url param %q", r.URL.Query().Get("url"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"title": "Test Video", "duration": 225, "uploader": "tester",
		})
	}))
	defer srv.Close()

	info, err := newTestClient(srv.URL).Info(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Title != "Test Video" || info.Duration != 225 {
		t.Fatalf("unexpected info: %+v", info)
	}
}
