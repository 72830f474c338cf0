package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/audit"
	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/service"
	"github.com/sykkeldel/locker-server/internal/util"
)

// defaultSyncLookback applies when the controller asks for codes without a
// since parameter.
const defaultSyncLookback = 24 * time.Hour

// ControllerHandler serves the endpoints polled by the locker controller.
type ControllerHandler struct {
	doorQueue    *service.DoorQueue
	orderActions *service.OrderActionService
	issuer       *service.AccessIssuer
	loc          *time.Location
	now          func() time.Time
}

func NewControllerHandler(
	doorQueue *service.DoorQueue,
	orderActions *service.OrderActionService,
	issuer *service.AccessIssuer,
	loc *time.Location,
) *ControllerHandler {
	return &ControllerHandler{
		doorQueue:    doorQueue,
		orderActions: orderActions,
		issuer:       issuer,
		loc:          loc,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *ControllerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/door-requests", h.PollDoorRequests)
	r.Post("/door-requests/executed", h.MarkExecuted)
	r.Post("/orders/{orderID}/actions", h.RecordAction)
	r.Get("/access-codes", h.ListAccessCodes)

	return r
}

type doorRequest struct {
	ID         int64  `json:"id"`
	DoorNumber int    `json:"door_number"`
	Command    string `json:"command"`
	Timestamp  string `json:"timestamp"`
}

// PollDoorRequests returns the pending open commands, oldest first.
func (h *ControllerHandler) PollDoorRequests(w http.ResponseWriter, r *http.Request) {
	cmds, err := h.doorQueue.PollPending(r.Context(), h.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to poll door requests")
		httputil.WriteError(w, err)
		return
	}

	out := make([]doorRequest, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, doorRequest{
			ID:         c.ID,
			DoorNumber: c.DoorNumber,
			Command:    c.Command,
			Timestamp:  c.CreatedAt.In(h.loc).Format(controllerTimeLayout),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *ControllerHandler) MarkExecuted(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r, "request_id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	id, ok := util.ParseDigits(fields["request_id"])
	if !ok {
		httputil.WriteError(w, apperrors.NotDigits("request_id"))
		return
	}

	if err := h.doorQueue.Acknowledge(r.Context(), id); err != nil {
		log.Warn().Err(err).Int64("commandId", id).Msg("failed to acknowledge door command")
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventDoorAck,
		Details: map[string]interface{}{"commandId": id},
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// RecordAction stores a pickup or return time reported by the controller.
// action_time is optional and defaults to now.
func (h *ControllerHandler) RecordAction(w http.ResponseWriter, r *http.Request) {
	orderID, ok := util.ParsePositiveID(chi.URLParam(r, "orderID"))
	if !ok {
		httputil.WriteError(w, apperrors.InvalidIdentifier("order_id"))
		return
	}

	fields, err := decodeFields(r, "action", "action_time")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var at *time.Time
	if raw := fields["action_time"]; raw != "" {
		t, ok := parseTimestamp(raw, h.loc)
		if !ok {
			httputil.WriteError(w, apperrors.InvalidTime("action_time"))
			return
		}
		at = &t
	}

	oa, err := h.orderActions.RecordAction(r.Context(), orderID, fields["action"], at)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	log.Info().
		Int64("orderId", oa.OrderID).
		Str("action", string(oa.Action)).
		Time("at", oa.ActionAt).
		Msg("order action recorded")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"order_id":  oa.OrderID,
		"action":    oa.Action,
		"timestamp": oa.ActionAt.In(h.loc).Format(controllerTimeLayout),
	})
}

// ListAccessCodes lets the controller sync codes issued since a point in
// time, opening windows included.
func (h *ControllerHandler) ListAccessCodes(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-defaultSyncLookback)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, ok := parseTimestamp(raw, h.loc)
		if !ok {
			httputil.WriteError(w, apperrors.InvalidTime("since"))
			return
		}
		since = t
	}

	codes, err := h.issuer.ListIssuedSince(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("failed to list access codes")
		httputil.WriteError(w, err)
		return
	}
	if codes == nil {
		codes = []model.IssuedCode{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": codes,
		"total": len(codes),
	})
}
