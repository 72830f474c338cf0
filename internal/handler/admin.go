package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/audit"
	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/middleware"
	"github.com/sykkeldel/locker-server/internal/service"
	"github.com/sykkeldel/locker-server/internal/util"
)

// AdminHandler serves the operator API: login, opening doors and watching
// the door command log.
type AdminHandler struct {
	adminService      *service.AdminService
	doorQueue         *service.DoorQueue
	events            http.Handler
	sessionMiddleware func(http.Handler) http.Handler
	loginRateLimiter  func(http.Handler) http.Handler
	isProduction      bool
}

func NewAdminHandler(
	adminService *service.AdminService,
	doorQueue *service.DoorQueue,
	events http.Handler,
	sessionMiddleware func(http.Handler) http.Handler,
	loginRateLimiter func(http.Handler) http.Handler,
	isProduction bool,
) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		doorQueue:         doorQueue,
		events:            events,
		sessionMiddleware: sessionMiddleware,
		loginRateLimiter:  loginRateLimiter,
		isProduction:      isProduction,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginRateLimiter).Post("/api/login", h.Login)
	r.Post("/api/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Get("/api/session", h.Session)
		r.Post("/api/doors/open", h.OpenDoor)
		r.Get("/api/doors/commands", h.ListCommands)
		r.Get("/api/events", h.events.ServeHTTP)
	})

	return r
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.adminService.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{
			Error: "Operator access not configured",
			Code:  apperrors.ErrCodeInternal,
		})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		httputil.WriteError(w, apperrors.MissingRequired("password"))
		return
	}

	token, err := h.adminService.Login(r.Context(), req.Password, audit.ClientIP(r))
	if err != nil {
		log.Error().Err(err).Msg("admin login error")
		httputil.WriteError(w, apperrors.Internal("Login failed").WithCause(err))
		return
	}

	if token == "" {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginFailure})
		httputil.WriteError(w, apperrors.Unauthorized("Invalid password"))
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess})
	middleware.SetSessionCookie(w, token, h.isProduction)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.AdminSessionCookie)
	if err == nil && cookie.Value != "" {
		if err := h.adminService.Logout(r.Context(), cookie.Value); err != nil {
			log.Warn().Err(err).Msg("failed to delete admin session")
		}
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLogout})
	}

	middleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// OpenDoor queues an open command. The door arrives as JSON {"door": ...} or
// as a form value and must be written with digits only.
func (h *AdminHandler) OpenDoor(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r, "door")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	raw := fields["door"]
	if raw == "" {
		httputil.WriteError(w, apperrors.MissingRequired("door"))
		return
	}
	if !util.IsDigits(raw) {
		httputil.WriteError(w, apperrors.NotDigits("door"))
		return
	}
	door, ok := util.ParseDigits(raw)
	if !ok {
		// Digits, but too long for an int64: certainly not a door.
		door = -1
	}

	cmd, err := h.doorQueue.Enqueue(r.Context(), int(door))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event := audit.Event{
		Type:    audit.EventDoorOpen,
		Details: map[string]interface{}{"door": cmd.DoorNumber, "commandId": cmd.ID},
	}
	if session := middleware.GetAdminSession(r.Context()); session != nil {
		event.SessionID = session.ID
		if err := h.adminService.RecordDoorOpened(r.Context(), session.ID, cmd.DoorNumber); err != nil {
			log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to record door on operator session")
		}
	}
	audit.LogFromRequest(r, event)

	writeJSON(w, http.StatusCreated, cmd)
}

// Session describes the calling operator's session, including the last door
// it opened.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetAdminSession(r.Context())
	if session == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AdminHandler) ListCommands(w http.ResponseWriter, r *http.Request) {
	views, err := h.doorQueue.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("failed to list door commands")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      views,
		"total":      len(views),
		"ttlSeconds": int(h.doorQueue.TTL().Seconds()),
	})
}
