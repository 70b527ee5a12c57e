package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"mediagrab/internal/application/status"
	domain "mediagrab/internal/domain/download"
)

const maxListLimit = 100

type downloadUseCases interface {
	Submit(ctx context.Context, raw domain.RawRequest) (domain.Job, error)
	Job(id string) (domain.Job, error)
	ListJobs(cursor string, limit int) ([]domain.Job, string, error)
	VideoInfo(ctx context.Context, url string) (domain.VideoInfo, error)
}

type statusUseCases interface {
	Snapshot(ctx context.Context) status.Snapshot
}

type Handler struct {
	downloads downloadUseCases
	status    statusUseCases
	version   string
	started   time.Time
}

// NewHandler wires HTTP handlers with application use cases.
func NewHandler(downloadService downloadUseCases, statusService statusUseCases, version string) *Handler {
	return &Handler{
		downloads: downloadService,
		status:    statusService,
		version:   version,
		started:   time.Now(),
	}
}

// SubmitDownload handles POST /api/downloads.
func (h *Handler) SubmitDownload(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL       string `json:"url"`
		Platform  string `json:"platform"`
		Quality   string `json:"quality"`
		AudioType string `json:"audioType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody", "request body must be JSON")
		return
	}

	job, err := h.downloads.Submit(r.Context(), domain.RawRequest{
		URL:       body.URL,
		Platform:  body.Platform,
		Quality:   body.Quality,
		AudioType: body.AudioType,
	})
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, string(ve.Kind), ve.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "InternalError", "submission failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobId": job.ID,
		"state": string(job.State),
	})
}

// GetDownload handles GET /api/downloads/{id}.
func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.downloads.Job(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NotFound", "unknown job id")
			return
		}
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobJSON(job))
}

// ListDownloads handles GET /api/downloads.
func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	jobs, next, err := h.downloads.ListJobs(r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}

	items := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, jobJSON(job))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":       items,
		"nextCursor": next,
	})
}

// GetStatus handles GET /api/status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Snapshot(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gateway": map[string]interface{}{
			"status":       string(snap.Gateway.Reachability),
			"responseTime": snap.Gateway.LatencyMs,
			"version":      snap.Gateway.Version,
		},
		"downloads": map[string]interface{}{
			"active":     snap.Jobs.Active,
			"queued":     snap.Jobs.Queued,
			"running":    snap.Jobs.Running,
			"completed":  snap.Jobs.Completed,
			"failed":     snap.Jobs.Failed,
			"totalBytes": snap.Jobs.CompletedBytes,
		},
		"system": map[string]interface{}{
			"heapAllocBytes": snap.Resources.HeapAllocBytes,
			"heapSysBytes":   snap.Resources.HeapSysBytes,
			"goroutines":     snap.Resources.Goroutines,
			"cpuCores":       snap.Resources.CPUCores,
			"diskTotalBytes": snap.Resources.DiskTotalBytes,
			"diskFreeBytes":  snap.Resources.DiskFreeBytes,
			"uptimeSeconds":  snap.Resources.UptimeSeconds,
		},
		"lastUpdate": snap.GeneratedAt.Format(time.RFC3339),
	})
}

// GetInfo handles GET /api/info.
func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "MissingField", "url query parameter is required")
		return
	}

	info, err := h.downloads.VideoInfo(r.Context(), rawURL)
	if err != nil {
		kind, message := domain.FailureKind(err)
		writeError(w, http.StatusBadGateway, string(kind), message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":       info.Title,
		"duration":    info.Duration,
		"uploader":    info.Uploader,
		"viewCount":   info.ViewCount,
		"description": info.Description,
		"thumbnail":   info.Thumbnail,
		"uploadDate":  info.UploadDate,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"version":       h.version,
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
	})
}

func jobJSON(job domain.Job) map[string]interface{} {
	out := map[string]interface{}{
		"id":        job.ID,
		"url":       job.Request.URL,
		"platform":  string(job.Request.Platform),
		"state":     string(job.State),
		"progress":  job.Progress,
		"createdAt": job.CreatedAt.Format(time.RFC3339),
		"updatedAt": job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Request.Platform == domain.PlatformYouTube {
		out["quality"] = job.Request.Quality
		out["audioType"] = job.Request.AudioType
	}
	if job.Result != nil {
		if job.State == domain.StateFailed {
			out["result"] = map[string]interface{}{
				"errorKind": string(job.Result.ErrorKind),
				"message":   job.Result.Message,
			}
		} else {
			out["result"] = map[string]interface{}{
				"fileName":        job.Result.FileName,
				"fileSizeBytes":   job.Result.FileSizeBytes,
				"durationSeconds": job.Result.DurationSeconds,
				"downloadUri":     job.Result.DownloadURI,
				"title":           job.Result.Title,
				"uploader":        job.Result.Uploader,
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, map[string]interface{}{
		"errorKind": kind,
		"message":   message,
	})
}
