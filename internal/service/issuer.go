package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

// maxMintAttempts bounds retries when a freshly generated code is taken by
// a concurrent issuance between generation and insert.
const maxMintAttempts = 20

// IssuedAccess is the result of a successful issuance.
type IssuedAccess struct {
	Code    model.AccessCode    `json:"code"`
	Window  *model.AccessWindow `json:"window,omitempty"`
	Shifted bool                `json:"shifted"`
	QRURL   string              `json:"qrUrl"`
}

type IssuerConfig struct {
	DefaultWindow time.Duration
	QRBaseURL     string
}

// AccessIssuer mints access codes for orders and records opening windows.
type AccessIssuer struct {
	codes    repository.AccessCodeRepository
	appts    repository.AppointmentRepository
	resolver *BookingResolver
	gen      *CodeGenerator
	notifier Notifier
	cfg      IssuerConfig
	now      func() time.Time
}

func NewAccessIssuer(
	codes repository.AccessCodeRepository,
	appts repository.AppointmentRepository,
	resolver *BookingResolver,
	gen *CodeGenerator,
	notifier Notifier,
	cfg IssuerConfig,
) *AccessIssuer {
	return &AccessIssuer{
		codes:    codes,
		appts:    appts,
		resolver: resolver,
		gen:      gen,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IssueOpeningAccess mints an opening code for a booking order together with
// the window it is valid in.
func (s *AccessIssuer) IssueOpeningAccess(ctx context.Context, orderID, serviceID, staffID int64, now time.Time) (*IssuedAccess, error) {
	if orderID < 1 || serviceID < 1 || staffID < 1 {
		return nil, apperrors.InvalidIdentifier("orderId", "serviceId", "staffId")
	}
	if err := s.ensureNotIssued(ctx, orderID, model.CodeKindOpening); err != nil {
		return nil, err
	}

	start, end, shifted, err := s.resolveWindow(ctx, orderID, serviceID, staffID, now)
	if err != nil {
		return nil, err
	}

	window := model.CreateAccessWindowParams{OrderID: orderID, StartAt: start, EndAt: end}
	var (
		code *model.AccessCode
		win  *model.AccessWindow
	)
	err = s.mint(ctx, orderID, model.CodeKindOpening, now, func(params model.CreateAccessCodeParams) error {
		var err error
		code, win, err = s.codes.CreateOpening(ctx, params, window)
		return err
	})
	if err != nil {
		return nil, err
	}

	issued := &IssuedAccess{Code: *code, Window: win, Shifted: shifted, QRURL: QRCodeURL(s.cfg.QRBaseURL, code.Code)}
	s.notify(ctx, issued)
	return issued, nil
}

// IssuePickupAccess mints a pickup code. Pickup has no time window.
func (s *AccessIssuer) IssuePickupAccess(ctx context.Context, orderID int64) (*IssuedAccess, error) {
	return s.issueSimple(ctx, orderID, model.CodeKindPickup)
}

// IssueReturnAccess mints the code used to drop rented goods back off.
func (s *AccessIssuer) IssueReturnAccess(ctx context.Context, orderID int64) (*IssuedAccess, error) {
	return s.issueSimple(ctx, orderID, model.CodeKindReturn)
}

// ListIssuedSince returns codes issued at or after since, with their windows.
func (s *AccessIssuer) ListIssuedSince(ctx context.Context, since time.Time) ([]model.IssuedCode, error) {
	codes, err := s.codes.ListIssuedSince(ctx, since)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

func (s *AccessIssuer) issueSimple(ctx context.Context, orderID int64, kind model.CodeKind) (*IssuedAccess, error) {
	if orderID < 1 {
		return nil, apperrors.InvalidIdentifier("orderId")
	}
	if err := s.ensureNotIssued(ctx, orderID, kind); err != nil {
		return nil, err
	}

	now := s.now()
	var code *model.AccessCode
	err := s.mint(ctx, orderID, kind, now, func(params model.CreateAccessCodeParams) error {
		var err error
		code, err = s.codes.Create(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	issued := &IssuedAccess{Code: *code, QRURL: QRCodeURL(s.cfg.QRBaseURL, code.Code)}
	s.notify(ctx, issued)
	return issued, nil
}

func (s *AccessIssuer) ensureNotIssued(ctx context.Context, orderID int64, kind model.CodeKind) error {
	existing, err := s.codes.FindByOrderAndKind(ctx, orderID, kind)
	if err != nil {
		return apperrors.Database(err)
	}
	if existing != nil {
		return alreadyIssued(orderID, kind)
	}
	return nil
}

func alreadyIssued(orderID int64, kind model.CodeKind) *apperrors.AppError {
	return apperrors.CodeAlreadyIssued(orderID, string(kind))
}

func (s *AccessIssuer) resolveWindow(ctx context.Context, orderID, serviceID, staffID int64, now time.Time) (time.Time, time.Time, bool, error) {
	appt, err := s.appts.FindLatest(ctx, serviceID, staffID)
	if err != nil {
		return time.Time{}, time.Time{}, false, apperrors.Database(err)
	}
	if appt == nil {
		log.Info().
			Int64("orderId", orderID).
			Int64("serviceId", serviceID).
			Int64("staffId", staffID).
			Dur("window", s.cfg.DefaultWindow).
			Msg("no appointment found, using default opening window")
		return now, now.Add(s.cfg.DefaultWindow), false, nil
	}

	siblings, err := s.appts.FindSiblings(ctx, serviceID, staffID, appt.ID)
	if err != nil {
		log.Error().Err(err).Int64("orderId", orderID).Msg("failed to load sibling appointments, keeping booked window")
		return appt.StartAt, appt.EndAt, false, nil
	}

	res := s.resolver.ResolveWindow(ctx, orderID, *appt, siblings, now)
	return res.Start, res.End, res.Shifted, nil
}

// mint generates codes until insert succeeds. Codes that collided during
// this call are excluded from later candidates.
func (s *AccessIssuer) mint(
	ctx context.Context,
	orderID int64,
	kind model.CodeKind,
	now time.Time,
	insert func(model.CreateAccessCodeParams) error,
) error {
	collided := NewStringSet()
	for attempt := 1; attempt <= maxMintAttempts; attempt++ {
		code, err := s.gen.Generate(collided)
		if err != nil {
			return apperrors.Internal("generate access code").WithCause(err)
		}

		err = insert(model.CreateAccessCodeParams{OrderID: orderID, Kind: kind, Code: code, IssuedAt: now})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateCode):
			collided.Add(code)
			log.Debug().Int64("orderId", orderID).Int("attempt", attempt).Msg("access code collision, regenerating")
		case errors.Is(err, repository.ErrDuplicateOrderKind):
			return alreadyIssued(orderID, kind)
		default:
			return apperrors.Database(err)
		}
	}
	return apperrors.Internal("could not allocate a unique access code")
}

func (s *AccessIssuer) notify(ctx context.Context, issued *IssuedAccess) {
	n := AccessNotification{
		OrderID: issued.Code.OrderID,
		Kind:    issued.Code.Kind,
		Code:    issued.Code.Code,
		QRURL:   issued.QRURL,
	}
	if issued.Window != nil {
		n.WindowStart = &issued.Window.StartAt
		n.WindowEnd = &issued.Window.EndAt
	}
	if err := s.notifier.NotifyAccess(ctx, n); err != nil {
		log.Error().
			Err(err).
			Int64("orderId", n.OrderID).
			Str("kind", string(n.Kind)).
			Msg("failed to notify access code, code remains issued")
	}
}
