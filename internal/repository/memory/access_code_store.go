package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

type orderKind struct {
	orderID int64
	kind    model.CodeKind
}

// AccessCodeStore keeps codes and windows in maps guarded by one mutex, with
// the same uniqueness rules the Postgres indexes enforce.
type AccessCodeStore struct {
	mu      sync.RWMutex
	nextID  int64
	codes   []model.AccessCode
	byCode  map[string]int
	byOrder map[orderKind]int
	windows map[int64]model.AccessWindow
	now     func() time.Time
}

var _ repository.AccessCodeRepository = (*AccessCodeStore)(nil)

func NewAccessCodeStore() *AccessCodeStore {
	return &AccessCodeStore{
		byCode:  make(map[string]int),
		byOrder: make(map[orderKind]int),
		windows: make(map[int64]model.AccessWindow),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccessCodeStore) Create(_ context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(params); err != nil {
		return nil, err
	}
	code := s.insertLocked(params)
	return &code, nil
}

func (s *AccessCodeStore) CreateOpening(
	_ context.Context,
	codeParams model.CreateAccessCodeParams,
	windowParams model.CreateAccessWindowParams,
) (*model.AccessCode, *model.AccessWindow, error) {
	if windowParams.EndAt.Before(windowParams.StartAt) {
		return nil, nil, repository.ErrInvalidWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(codeParams); err != nil {
		return nil, nil, err
	}
	if _, ok := s.windows[windowParams.OrderID]; ok {
		return nil, nil, repository.ErrDuplicateOrderKind
	}

	code := s.insertLocked(codeParams)
	window := model.AccessWindow{
		OrderID:   windowParams.OrderID,
		StartAt:   windowParams.StartAt,
		EndAt:     windowParams.EndAt,
		CreatedAt: s.now(),
	}
	s.windows[window.OrderID] = window
	return &code, &window, nil
}

func (s *AccessCodeStore) checkUniqueLocked(params model.CreateAccessCodeParams) error {
	if _, ok := s.byCode[params.Code]; ok {
		return repository.ErrDuplicateCode
	}
	if _, ok := s.byOrder[orderKind{params.OrderID, params.Kind}]; ok {
		return repository.ErrDuplicateOrderKind
	}
	return nil
}

func (s *AccessCodeStore) insertLocked(params model.CreateAccessCodeParams) model.AccessCode {
	s.nextID++
	issuedAt := params.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	code := model.AccessCode{
		ID:       s.nextID,
		OrderID:  params.OrderID,
		Kind:     params.Kind,
		Code:     params.Code,
		IssuedAt: issuedAt,
	}
	s.codes = append(s.codes, code)
	idx := len(s.codes) - 1
	s.byCode[code.Code] = idx
	s.byOrder[orderKind{code.OrderID, code.Kind}] = idx
	return code
}

func (s *AccessCodeStore) FindByOrderAndKind(_ context.Context, orderID int64, kind model.CodeKind) (*model.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byOrder[orderKind{orderID, kind}]
	if !ok {
		return nil, nil
	}
	code := s.codes[idx]
	return &code, nil
}

func (s *AccessCodeStore) FindByCode(_ context.Context, code string) (*model.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byCode[code]
	if !ok {
		return nil, nil
	}
	ac := s.codes[idx]
	return &ac, nil
}

func (s *AccessCodeStore) ListByOrder(_ context.Context, orderID int64) ([]model.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.AccessCode
	for _, c := range s.codes {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *AccessCodeStore) ListIssuedSince(_ context.Context, since time.Time) ([]model.IssuedCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.IssuedCode
	for _, c := range s.codes {
		if c.IssuedAt.Before(since) {
			continue
		}
		ic := model.IssuedCode{AccessCode: c}
		if c.Kind == model.CodeKindOpening {
			if w, ok := s.windows[c.OrderID]; ok {
				start, end := w.StartAt, w.EndAt
				ic.WindowStart, ic.WindowEnd = &start, &end
			}
		}
		out = append(out, ic)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

func (s *AccessCodeStore) FindWindow(_ context.Context, orderID int64) (*model.AccessWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[orderID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}
