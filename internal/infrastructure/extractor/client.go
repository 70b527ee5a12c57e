// Package extractor adapts the external media-extraction service (the
// yt-dlp wrapper API) to the application's gateway port.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	app "mediagrab/internal/application/download"
	domain "mediagrab/internal/domain/download"
)

const defaultPollInterval = time.Second

// Client talks to the extraction service over HTTP. Downloads are started
// with one request and followed by polling the progress endpoint until the
// service reports a terminal outcome.
type Client struct {
	baseURL      string
	http         *http.Client
	logger       *zap.Logger
	pollInterval time.Duration
}

// NewClient creates an extraction gateway adapter.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:         &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Probe checks service liveness. A transport fault returns a plain error;
// a response that is not healthy returns an ExtractionError so the caller
// can tell "offline" from "reachable but broken".
func (c *Client) Probe(ctx context.Context) (app.ProbeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return app.ProbeInfo{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return app.ProbeInfo{}, fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return app.ProbeInfo{}, &domain.ExtractionError{
			Kind:    domain.InternalError,
			Message: fmt.Sprintf("health endpoint returned %d", resp.StatusCode),
		}
	}

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return app.ProbeInfo{Version: body.Version}, nil
}

// Execute starts a remote download and follows it to a terminal outcome,
// reporting progress along the way.
func (c *Client) Execute(ctx context.Context, req domain.DownloadRequest, onProgress func(int)) (domain.Result, error) {
	id, err := c.startDownload(ctx, req)
	if err != nil {
		return domain.Result{}, err
	}
	c.logger.Debug("remote download started", zap.String("remote_id", id), zap.String("url", req.URL))

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.Result{}, fmt.Errorf("download abandoned: %w", ctx.Err())
		case <-ticker.C:
		}

		progress, err := c.fetchProgress(ctx, id)
		if err != nil {
			return domain.Result{}, err
		}

		switch progress.Status {
		case "finished":
			if onProgress != nil {
				onProgress(100)
			}
			return domain.Result{
				FileName:        progress.Result.Filename,
				FileSizeBytes:   progress.Result.FileSize,
				DurationSeconds: progress.Result.Duration,
				DownloadURI:     progress.Result.DownloadURL,
				Title:           progress.Result.Title,
				Uploader:        progress.Result.Uploader,
			}, nil
		case "error":
			return domain.Result{}, &domain.ExtractionError{
				Kind:    mapErrorKind(progress.ErrorKind, progress.Error),
				Message: progress.Error,
			}
		default:
			if onProgress != nil {
				onProgress(int(progress.Percent))
			}
		}
	}
}

// Info fetches remote media metadata without downloading.
func (c *Client) Info(ctx context.Context, rawURL string) (domain.VideoInfo, error) {
	endpoint := c.baseURL + "/api/info?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.VideoInfo{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.VideoInfo{}, fmt.Errorf("info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.VideoInfo{}, c.responseError(resp)
	}

	var body struct {
		Title       string `json:"title"`
		Duration    int64  `json:"duration"`
		Uploader    string `json:"uploader"`
		ViewCount   int64  `json:"view_count"`
		Description string `json:"description"`
		Thumbnail   string `json:"thumbnail"`
		UploadDate  string `json:"upload_date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.VideoInfo{}, fmt.Errorf("decode info: %w", err)
	}
	return domain.VideoInfo{
		Title:       body.Title,
		Duration:    body.Duration,
		Uploader:    body.Uploader,
		ViewCount:   body.ViewCount,
		Description: body.Description,
		Thumbnail:   body.Thumbnail,
		UploadDate:  body.UploadDate,
	}, nil
}

func (c *Client) startDownload(ctx context.Context, req domain.DownloadRequest) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"url":       req.URL,
		"platform":  string(req.Platform),
		"quality":   req.Quality,
		"audioType": req.AudioType,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/download", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("start download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", c.responseError(resp)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.ID == "" {
		return "", &domain.ExtractionError{Kind: domain.InternalError, Message: "extraction service returned no download id"}
	}
	return body.ID, nil
}

type progressResponse struct {
	Status    string  `json:"status"`
	Percent   float64 `json:"percent"`
	Error     string  `json:"error"`
	ErrorKind string  `json:"error_kind"`
	Result    struct {
		Title       string `json:"title"`
		Uploader    string `json:"uploader"`
		Duration    int64  `json:"duration"`
		Filename    string `json:"filename"`
		FileSize    int64  `json:"file_size"`
		DownloadURL string `json:"download_url"`
	} `json:"result"`
}

func (c *Client) fetchProgress(ctx context.Context, id string) (progressResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/progress/"+url.PathEscape(id), nil)
	if err != nil {
		return progressResponse{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return progressResponse{}, fmt.Errorf("poll progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return progressResponse{}, c.responseError(resp)
	}

	var body progressResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return progressResponse{}, fmt.Errorf("decode progress: %w", err)
	}
	return body, nil
}

// responseError turns a non-2xx response into a structured extraction error.
func (c *Client) responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body struct {
		Error     string `json:"error"`
		ErrorKind string `json:"error_kind"`
		Detail    string `json:"detail"`
	}
	_ = json.Unmarshal(data, &body)

	message := body.Error
	if message == "" {
		message = body.Detail
	}
	if message == "" {
		message = fmt.Sprintf("extraction service returned %d", resp.StatusCode)
	}
	return &domain.ExtractionError{Kind: mapErrorKind(body.ErrorKind, message), Message: message}
}

// mapErrorKind normalizes the service's error taxonomy. When the service
// does not tag the failure, the message text is the only signal left.
func mapErrorKind(kind, message string) domain.ErrorKind {
	switch kind {
	case "NetworkFailure":
		return domain.NetworkFailure
	case "UnsupportedContent":
		return domain.UnsupportedContent
	case "PermissionDenied":
		return domain.PermissionDenied
	case "InternalError":
		return domain.InternalError
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "unsupported"), strings.Contains(lower, "no video"):
		return domain.UnsupportedContent
	case strings.Contains(lower, "private"), strings.Contains(lower, "login"), strings.Contains(lower, "permission"), strings.Contains(lower, "age"):
		return domain.PermissionDenied
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "connection"), strings.Contains(lower, "network"):
		return domain.NetworkFailure
	default:
		return domain.InternalError
	}
}
