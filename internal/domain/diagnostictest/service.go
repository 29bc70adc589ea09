package diagnostictest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// timePrecision matches the finest resolution both SQL engines keep, so a
// record read back compares equal to the one returned by Create.
const timePrecision = time.Microsecond

type Service struct {
	repo DiagnosticTestRepository
	now  func() time.Time
}

func NewService(repo DiagnosticTestRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock replaces the time source used to default testDate.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateDiagnosticTest assigns a new id, defaults testDate to the current
// time when the candidate has none, and persists the record.
func (s *Service) CreateDiagnosticTest(ctx context.Context, c *Candidate) (*DiagnosticTest, error) {
	d := &DiagnosticTest{
		ID:          uuid.New(),
		PatientName: c.PatientName,
		TestType:    c.TestType,
		Result:      c.Result,
		Notes:       c.Notes,
	}
	if c.TestDate != nil {
		d.TestDate = normalizeTime(*c.TestDate)
	} else {
		d.TestDate = normalizeTime(s.now())
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, storageFailure("create", err)
	}
	return d.clone(), nil
}

func (s *Service) GetDiagnosticTest(ctx context.Context, id string) (*DiagnosticTest, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, &NotFoundError{ID: id}
	}
	d, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, s.mapErr("get", id, err)
	}
	return d, nil
}

func (s *Service) ListDiagnosticTests(ctx context.Context, opts ListOptions) ([]*DiagnosticTest, error) {
	items, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, storageFailure("list", err)
	}
	if items == nil {
		items = []*DiagnosticTest{}
	}
	return items, nil
}

// UpdateDiagnosticTest replaces patientName, testType, result and notes, and
// testDate only when the candidate carries one. Concurrent updates to the
// same id are last-write-wins.
func (s *Service) UpdateDiagnosticTest(ctx context.Context, id string, c *Candidate) (*DiagnosticTest, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, &NotFoundError{ID: id}
	}
	next := *c
	if c.TestDate != nil {
		t := normalizeTime(*c.TestDate)
		next.TestDate = &t
	}
	d, err := s.repo.Update(ctx, uid, &next)
	if err != nil {
		return nil, s.mapErr("update", id, err)
	}
	return d, nil
}

// DeleteDiagnosticTest removes the record permanently and returns its last
// stored state.
func (s *Service) DeleteDiagnosticTest(ctx context.Context, id string) (*DiagnosticTest, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, &NotFoundError{ID: id}
	}
	d, err := s.repo.Delete(ctx, uid)
	if err != nil {
		return nil, s.mapErr("delete", id, err)
	}
	return d, nil
}

// CheckStorage pings the storage engine.
func (s *Service) CheckStorage(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return storageFailure("ping", err)
	}
	return nil
}

func (s *Service) mapErr(op, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return storageFailure(op, err)
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(timePrecision)
}
