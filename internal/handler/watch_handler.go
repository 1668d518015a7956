// Package handler provides the read-only ops HTTP surface of the watcher.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medios/pricewatch/internal/repository"
)

const defaultNotificationLimit = 50

// CycleInfo reports scheduler state for the status endpoint.
type CycleInfo interface {
	GetNextRunTime() time.Time
	IsRunning() bool
	RunNow()
}

// ProxyInfo reports proxy pool state for the status endpoint.
type ProxyInfo interface {
	Size() int
}

// WatchHandler serves product and notification state.
type WatchHandler struct {
	products      repository.ProductRepository
	notifications repository.NotificationLogRepository
	cycles        CycleInfo
	proxies       ProxyInfo
}

// NewWatchHandler creates the ops handler. cycles and proxies may be nil
// when the watcher runs without a scheduler or proxy pool.
func NewWatchHandler(
	products repository.ProductRepository,
	notifications repository.NotificationLogRepository,
	cycles CycleInfo,
	proxies ProxyInfo,
) *WatchHandler {
	return &WatchHandler{
		products:      products,
		notifications: notifications,
		cycles:        cycles,
		proxies:       proxies,
	}
}

// RegisterRoutes mounts the ops endpoints on the router.
func (h *WatchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/notifications", h.ListNotifications)
	r.Get("/status", h.Status)
	r.Post("/cycles", h.TriggerCycle)
}

// ListProducts returns every watched product, most recently updated first.
func (h *WatchHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	records, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// ListNotifications returns the most recently dispatched alerts.
func (h *WatchHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.notifications.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	ProductCount     int        `json:"productCount"`
	HealthyProxies   int        `json:"healthyProxies"`
	SchedulerRunning bool       `json:"schedulerRunning"`
	NextCycleAt      *time.Time `json:"nextCycleAt,omitempty"`
}

// Status reports watcher state: product count, proxy pool size and the
// next scheduled cycle.
func (h *WatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.products.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	resp := StatusResponse{ProductCount: count}
	if h.proxies != nil {
		resp.HealthyProxies = h.proxies.Size()
	}
	if h.cycles != nil {
		resp.SchedulerRunning = h.cycles.IsRunning()
		if next := h.cycles.GetNextRunTime(); !next.IsZero() {
			resp.NextCycleAt = &next
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// TriggerCycle kicks off a watch cycle outside the schedule.
func (h *WatchHandler) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	if h.cycles == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler is not running")
		return
	}
	h.cycles.RunNow()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "cycle started"})
}
