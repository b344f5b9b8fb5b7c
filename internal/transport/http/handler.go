// Package httptransport is the thin HTTP layer. Handlers parse a query
// context and delegate to the series service; no business logic lives
// here.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/query"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/service"
	pkgerrors "github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/errors"
	"github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/requestcontext"
)

// statusClientClosedRequest is the nginx convention for a caller that
// went away mid-request; net/http defines no constant for it.
const statusClientClosedRequest = 499

// Handler wires series endpoints to the service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: svc, logger: logger}
}

// Register mounts the series endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/datasets/{id}", h.handleDataset)
	r.Get("/datasets/{id}/data", h.handleDatasetData)
	r.Get("/datasets/data", h.handleBulkData)
}

func (h *Handler) handleDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	var result any
	if q.Expanded {
		result, err = h.service.AssembleExpanded(ctx, id, q)
	} else {
		result, err = h.service.AssembleCondensed(ctx, id, q)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) handleDatasetData(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	collection, err := h.service.GetData(r.Context(), []string{id}, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, collection[id])
}

func (h *Handler) handleBulkData(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ids := splitParam(r.URL.Query().Get("datasets"))
	collection, err := h.service.GetData(r.Context(), ids, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, collection)
}

// parseQuery builds the immutable query context from request params.
func parseQuery(r *http.Request) (*query.Query, error) {
	params := r.URL.Query()
	q := query.Defaults()
	q.Locale = requestcontext.Locale(r.Context())

	if span := params.Get("timespan"); span != "" {
		parts := strings.SplitN(span, "/", 2)
		if len(parts) != 2 {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidFilter, "invalid timespan %q", span)
		}
		start, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidFilter, "invalid timespan start %q", parts[0])
		}
		end, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidFilter, "invalid timespan end %q", parts[1])
		}
		q = q.WithTimespan(start, end)
	}

	switch params.Get("resultTimes") {
	case "", "latest":
		q.ResultTimeMode = query.ResultTimeLatest
	case "all":
		q.ResultTimeMode = query.ResultTimeAll
	default:
		q.ResultTimeMode = query.ResultTimeExplicit
		for _, raw := range splitParam(params.Get("resultTimes")) {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, pkgerrors.Newf(pkgerrors.CodeInvalidFilter, "invalid result time %q", raw)
			}
			q.ResultTimes = append(q.ResultTimes, t)
		}
	}

	q.Expanded = params.Get("expanded") == "true"
	q.ShowTimeIntervals = params.Get("showTimeIntervals") == "true"
	q.FreeText = params.Get("search")
	return q, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("write response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInvalidFilter:
		status = http.StatusBadRequest
	case pkgerrors.CodeNotFound:
		status = http.StatusNotFound
	case pkgerrors.CodeDeadline:
		status = http.StatusGatewayTimeout
	case pkgerrors.CodeCanceled:
		status = statusClientClosedRequest
	case pkgerrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	h.logger.ErrorContext(r.Context(), "request failed",
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
