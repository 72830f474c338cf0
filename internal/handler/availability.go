package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/service"
	"github.com/sykkeldel/locker-server/internal/util"
)

type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

func (h *AvailabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.SameDay)
	return r
}

// GET /api/availability?staff_id=&service_id=
func (h *AvailabilityHandler) SameDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	staffID, okStaff := util.ParsePositiveID(q.Get("staff_id"))
	serviceID, okService := util.ParsePositiveID(q.Get("service_id"))
	if !okStaff || !okService {
		httputil.WriteError(w, apperrors.InvalidIdentifier("staff_id", "service_id"))
		return
	}

	result, err := h.availability.SameDay(r.Context(), staffID, serviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
