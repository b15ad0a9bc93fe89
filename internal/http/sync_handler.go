package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/application"
)

type syncService interface {
	ApplyBatch(ctx context.Context, req application.BatchRequest) (application.BatchResult, error)
	ListPending(ctx context.Context, principal application.Principal) ([]application.PendingChange, error)
	Resolve(ctx context.Context, req application.ResolveRequest) (application.ResolveResult, error)
}

type snapshotService interface {
	Snapshot(ctx context.Context, principal application.Principal, lastSync *time.Time) (application.Snapshot, error)
}

// SyncHandler serves the offline sync endpoints.
type SyncHandler struct {
	sync      syncService
	snapshots snapshotService
	responder responder
	logger    *slog.Logger
}

// NewSyncHandler wires the sync endpoints to their services.
func NewSyncHandler(sync syncService, snapshots snapshotService, logger *slog.Logger) *SyncHandler {
	logger = defaultLogger(logger)
	return &SyncHandler{sync: sync, snapshots: snapshots, responder: newResponder(logger), logger: logger}
}

// Sync handles POST /sync. Per-change failures are reported in the body of a
// 200 response.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sync == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.sync.ApplyBatch(r.Context(), req.toBatch(principal))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "SyncHandler", "Sync", "device_id", req.DeviceID).
		DebugContext(r.Context(), "sync batch handled", "total", result.Summary.Total, "failed", result.Summary.Failed)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSyncResponse(result))
}

// Pending handles GET /sync/pending.
func (h *SyncHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sync == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	changes, err := h.sync.ListPending(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := pendingResponse{PendingChanges: make([]pendingChangeDTO, 0, len(changes)), Count: len(changes)}
	for _, change := range changes {
		resp.PendingChanges = append(resp.PendingChanges, pendingChangeDTO{
			ChangeID:  change.ChangeID,
			Type:      change.Type,
			Action:    change.Action,
			DeviceID:  change.DeviceID,
			Data:      rawOrNull(change.Data),
			Conflicts: toConflictDTOs(change.Conflicts),
			CreatedAt: formatTime(change.CreatedAt),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Resolve handles POST /sync/resolve.
func (h *SyncHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sync == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.sync.Resolve(r.Context(), application.ResolveRequest{
		Principal:    principal,
		ChangeID:     req.ChangeID,
		Decision:     req.Resolution,
		ModifiedData: req.ModifiedData,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := resolveResponse{
		ChangeID:   result.ChangeID,
		Resolution: string(result.Decision),
		Outcome:    result.Outcome,
	}
	if result.Exam != nil {
		dto := toExamDTO(*result.Exam)
		resp.Exam = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Snapshot handles GET /sync/snapshot.
func (h *SyncHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.snapshots == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var lastSync *time.Time
	if value := strings.TrimSpace(r.URL.Query().Get("lastSync")); value != "" {
		parsed, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLastSync)
			return
		}
		lastSync = &parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	snap, err := h.snapshots.Snapshot(r.Context(), principal, lastSync)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshotResponse{
		Timestamp: formatTime(snap.Timestamp),
		Version:   snap.Version,
		Data:      rawOrNull(snap.Payload),
	})
}

type changeDTO struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type syncRequest struct {
	Changes  []changeDTO `json:"changes"`
	DeviceID string      `json:"deviceId"`
	LastSync string      `json:"lastSync,omitempty"`
}

func (r syncRequest) toBatch(principal application.Principal) application.BatchRequest {
	changes := make([]application.RawChange, 0, len(r.Changes))
	for _, change := range r.Changes {
		changes = append(changes, application.RawChange{
			ID:        change.ID,
			Type:      change.Type,
			Action:    change.Action,
			Data:      change.Data,
			Timestamp: change.Timestamp,
		})
	}
	return application.BatchRequest{Principal: principal, DeviceID: r.DeviceID, Changes: changes}
}

type syncSummaryDTO struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}

type syncSuccessDTO struct {
	ChangeID  string        `json:"changeId"`
	Type      string        `json:"type"`
	Action    string        `json:"action"`
	Exam      *examDTO      `json:"exam,omitempty"`
	Conflicts []conflictDTO `json:"conflicts,omitempty"`
}

type syncFailureDTO struct {
	ChangeID  string `json:"changeId"`
	Type      string `json:"type"`
	Action    string `json:"action"`
	ErrorKind string `json:"errorKind"`
	Error     string `json:"error"`
}

type syncResponse struct {
	Summary    syncSummaryDTO   `json:"summary"`
	Successful []syncSuccessDTO `json:"successful"`
	Failed     []syncFailureDTO `json:"failed"`
	Conflicts  []syncSuccessDTO `json:"conflicts"`
}

func toSyncResponse(result application.BatchResult) syncResponse {
	resp := syncResponse{
		Summary: syncSummaryDTO{
			Total:      result.Summary.Total,
			Processed:  result.Summary.Processed,
			Successful: result.Summary.Successful,
			Failed:     result.Summary.Failed,
			Pending:    result.Summary.Pending,
		},
		Successful: make([]syncSuccessDTO, 0, len(result.Successful)),
		Failed:     make([]syncFailureDTO, 0, len(result.Failed)),
		Conflicts:  make([]syncSuccessDTO, 0, len(result.Conflicts)),
	}
	for _, item := range result.Successful {
		resp.Successful = append(resp.Successful, toSyncSuccessDTO(item))
	}
	for _, item := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, toSyncSuccessDTO(item))
	}
	for _, item := range result.Failed {
		resp.Failed = append(resp.Failed, syncFailureDTO{
			ChangeID:  item.ChangeID,
			Type:      item.Type,
			Action:    item.Action,
			ErrorKind: item.ErrorKind,
			Error:     item.Error,
		})
	}
	return resp
}

// toSyncSuccessDTO reports the outcome in the action field.
func toSyncSuccessDTO(item application.BatchItem) syncSuccessDTO {
	dto := syncSuccessDTO{ChangeID: item.ChangeID, Type: item.Type, Action: item.Outcome}
	if item.Exam != nil {
		exam := toExamDTO(*item.Exam)
		dto.Exam = &exam
	}
	if len(item.Conflicts) > 0 {
		dto.Conflicts = toConflictDTOs(item.Conflicts)
	}
	return dto
}

type pendingChangeDTO struct {
	ChangeID  string          `json:"changeId"`
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	DeviceID  string          `json:"deviceId"`
	Data      json.RawMessage `json:"data"`
	Conflicts []conflictDTO   `json:"conflicts"`
	CreatedAt string          `json:"createdAt"`
}

type pendingResponse struct {
	PendingChanges []pendingChangeDTO `json:"pendingChanges"`
	Count          int                `json:"count"`
}

type resolveRequest struct {
	ChangeID     string          `json:"changeId"`
	Resolution   string          `json:"resolution"`
	ModifiedData json.RawMessage `json:"modifiedData,omitempty"`
}

type resolveResponse struct {
	ChangeID   string   `json:"changeId"`
	Resolution string   `json:"resolution"`
	Outcome    string   `json:"outcome"`
	Exam       *examDTO `json:"exam,omitempty"`
}

type snapshotResponse struct {
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version"`
	Data      json.RawMessage `json:"data"`
}

func rawOrNull(data json.RawMessage) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage("null")
	}
	return data
}
