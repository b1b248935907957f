// Package handlers provides HTTP request handlers for the matcher API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/generics"
	"github.com/giygas/mfds-matcher/interfaces"
	"github.com/giygas/mfds-matcher/logging"
	"github.com/giygas/mfds-matcher/normalize"
	"github.com/giygas/mfds-matcher/pipeline"
	"github.com/giygas/mfds-matcher/validation"
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	processor     *pipeline.Processor
	defaults      catalog.Options
	routes        chi.Router
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies. defaults are the
// matching options used when a request does not override them.
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker, processor *pipeline.Processor, defaults catalog.Options) interfaces.HTTPHandler {
	h := &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		processor:     processor,
		defaults:      defaults.WithDefaults(),
	}

	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/match", h.MatchV1)
		r.Get("/generics/{ingredient}", h.ServeGenericsV1)
		r.Get("/catalog/{itemCode}", h.ServeCatalogItemV1)
	})
	h.routes = r

	return h
}

// ServeHTTP dispatches to the API routes
func (h *HTTPHandlerImpl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.routes.ServeHTTP(w, r)
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// MatchRequest is the body of POST /v1/match. Source is an array of flat objects with the same
// column handling as a JSON source file. Options fields left out keep the server defaults.
type MatchRequest struct {
	Source   json.RawMessage        `json:"source"`
	Mappings []catalog.MappingEntry `json:"mappings"`
	Options  json.RawMessage        `json:"options"`
}

// MatchV1 links a source list against the loaded catalog
func (h *HTTPHandlerImpl) MatchV1(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Source) == 0 {
		h.RespondWithError(w, http.StatusBadRequest, "Missing source list")
		return
	}

	opts := h.defaults
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, "Invalid options: "+err.Error())
			return
		}
	}

	table, err := catalog.Parse("source.json", bytes.NewReader(req.Source))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := catalog.SourceRows(table)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.processor.RunWithIndex(r.Context(), h.dataStore.GetIndex(),
		catalog.SourcesFromRows(rows), req.Mappings, opts)
	if err != nil {
		code := statusForRunError(err)
		if code >= http.StatusInternalServerError {
			logging.Error("Matching run failed", "error", err)
		}
		h.RespondWithError(w, code, err.Error())
		return
	}

	h.RespondWithJSON(w, http.StatusOK, res)
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, validation.ErrEmptySource), errors.Is(err, validation.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, validation.ErrEmptyCatalog):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GenericsResponse lists the generics of one ingredient base
type GenericsResponse struct {
	IngredientBase string          `json:"ingredientBase"`
	DosageForm     string          `json:"dosageForm,omitempty"`
	Options        catalog.Options `json:"options"`
	Counts         generics.Counts `json:"counts"`
	Items          []generics.Item `json:"items"`
}

// ServeGenericsV1 itemizes the generics of an ingredient. Query parameters: form, basis
// (base, base_form) and cancel (active_only, all).
func (h *HTTPHandlerImpl) ServeGenericsV1(w http.ResponseWriter, r *http.Request) {
	ingredient := chi.URLParam(r, "ingredient")
	if err := h.validator.ValidateInput(ingredient); err != nil {
		logging.Warn("Unusual user input", "ingredient", ingredient)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	form := strings.TrimSpace(query.Get("form"))
	opts := h.defaults
	if basis := query.Get("basis"); basis != "" {
		opts.GenericCountBasis = catalog.GenericCountBasis(basis)
	}
	if cancel := query.Get("cancel"); cancel != "" {
		opts.CancelFilter = catalog.CancelFilter(cancel)
	}
	if err := validation.ValidateOptions(opts); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.UseBaseForm() && form == "" {
		h.RespondWithError(w, http.StatusBadRequest, "The form parameter is required with basis=base_form")
		return
	}

	base := normalize.IngredientBaseKey(ingredient)
	if base == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Ingredient has no usable base")
		return
	}

	agg := generics.NewAggregator(h.dataStore.GetIndex(), opts)
	counts := agg.Counts(base, form)
	if counts.TotalBase == 0 {
		h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("No catalog entry for ingredient %q", base))
		return
	}

	h.RespondWithJSON(w, http.StatusOK, GenericsResponse{
		IngredientBase: base,
		DosageForm:     form,
		Options:        opts,
		Counts:         counts,
		Items:          agg.Items(base, form, "", ""),
	})
}

// CatalogItemResponse is a catalog record with its derived fields
type CatalogItemResponse struct {
	catalog.ReferenceRecord
	IngredientBase string `json:"ingredientBase"`
	Active         bool   `json:"active"`
}

// ServeCatalogItemV1 returns every catalog record with the given item code
func (h *HTTPHandlerImpl) ServeCatalogItemV1(w http.ResponseWriter, r *http.Request) {
	code, err := h.validator.ValidateItemCode(chi.URLParam(r, "itemCode"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	idx := h.dataStore.GetIndex()
	positions := idx.ItemCode[code]
	if len(positions) == 0 {
		h.RespondWithError(w, http.StatusNotFound, "Item code not found")
		return
	}

	items := make([]CatalogItemResponse, 0, len(positions))
	for _, p := range positions {
		rec := idx.Record(p)
		items = append(items, CatalogItemResponse{
			ReferenceRecord: *rec,
			IngredientBase:  rec.IngredientBase,
			Active:          rec.Active,
		})
	}
	h.RespondWithJSON(w, http.StatusOK, items)
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.healthChecker.HealthCheck()

	uptime := time.Duration(0)
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	h.RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Uptime: formatUptimeHuman(uptime),
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
