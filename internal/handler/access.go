package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sykkeldel/locker-server/internal/audit"
	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/service"
	"github.com/sykkeldel/locker-server/internal/util"
)

// AccessHandler issues locker codes for shop orders.
type AccessHandler struct {
	issuer *service.AccessIssuer
	now    func() time.Time
}

func NewAccessHandler(issuer *service.AccessIssuer) *AccessHandler {
	return &AccessHandler{
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/orders/{orderID}/access", h.Issue)
	return r
}

// Issue mints a pickup, return or opening code for the order. Opening codes
// need the booking's service and staff.
func (h *AccessHandler) Issue(w http.ResponseWriter, r *http.Request) {
	orderID, ok := util.ParsePositiveID(chi.URLParam(r, "orderID"))
	if !ok {
		httputil.WriteError(w, apperrors.InvalidIdentifier("orderId"))
		return
	}

	fields, err := decodeFields(r, "kind", "serviceId", "staffId")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var issued *service.IssuedAccess
	kind := model.CodeKind(fields["kind"])
	switch kind {
	case model.CodeKindPickup:
		issued, err = h.issuer.IssuePickupAccess(r.Context(), orderID)
	case model.CodeKindReturn:
		issued, err = h.issuer.IssueReturnAccess(r.Context(), orderID)
	case model.CodeKindOpening:
		if fields["serviceId"] == "" || fields["staffId"] == "" {
			httputil.WriteError(w, apperrors.MissingBookingReference())
			return
		}
		serviceID, okService := util.ParsePositiveID(fields["serviceId"])
		staffID, okStaff := util.ParsePositiveID(fields["staffId"])
		if !okService || !okStaff {
			httputil.WriteError(w, apperrors.InvalidIdentifier("serviceId", "staffId"))
			return
		}
		issued, err = h.issuer.IssueOpeningAccess(r.Context(), orderID, serviceID, staffID, h.now())
	default:
		httputil.WriteError(w, apperrors.UnknownKind())
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventCodeIssue,
		OrderID: orderID,
		Details: map[string]interface{}{
			"kind":    string(kind),
			"code":    util.MaskCode(issued.Code.Code),
			"shifted": issued.Shifted,
		},
	})

	writeJSON(w, http.StatusCreated, issued)
}
