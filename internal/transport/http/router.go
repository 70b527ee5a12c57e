package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter configures HTTP routes and the metrics endpoint.
func NewRouter(handler *Handler, metrics *Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/api/downloads", handler.SubmitDownload).Methods("POST")
	r.HandleFunc("/api/downloads", handler.ListDownloads).Methods("GET")
	r.HandleFunc("/api/downloads/{id}", handler.GetDownload).Methods("GET")
	r.HandleFunc("/api/status", handler.GetStatus).Methods("GET")
	r.HandleFunc("/api/info", handler.GetInfo).Methods("GET")
	r.HandleFunc("/health", handler.Health).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")

	return r
}

func muxCurrentRoute(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return template
}
