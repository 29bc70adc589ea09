package diagnostictest

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type diagnosticTestRepoGorm struct{ db *gorm.DB }

// NewDiagnosticTestRepoGorm returns a repository backed by gorm. It is used
// for the MySQL engine.
func NewDiagnosticTestRepoGorm(db *gorm.DB) DiagnosticTestRepository {
	return &diagnosticTestRepoGorm{db: db}
}

func (r *diagnosticTestRepoGorm) Create(ctx context.Context, d *DiagnosticTest) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *diagnosticTestRepoGorm) GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	return findOne(r.db.WithContext(ctx), id)
}

func (r *diagnosticTestRepoGorm) List(ctx context.Context, opts ListOptions) ([]*DiagnosticTest, error) {
	q := r.db.WithContext(ctx)
	if opts.OrderByTestDateDesc {
		q = q.Order("test_date DESC")
	}
	items := []*DiagnosticTest{}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	for _, d := range items {
		d.TestDate = d.TestDate.UTC()
	}
	return items, nil
}

// Update locks the row, rewrites it and commits. Nothing is written when the
// row is missing.
func (r *diagnosticTestRepoGorm) Update(ctx context.Context, id uuid.UUID, c *Candidate) (*DiagnosticTest, error) {
	var updated *DiagnosticTest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findOne(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{
			"patient_name": c.PatientName,
			"test_type":    c.TestType,
			"result":       c.Result,
			"notes":        c.Notes,
		}
		existing.PatientName = c.PatientName
		existing.TestType = c.TestType
		existing.Result = c.Result
		existing.Notes = c.Notes
		if c.TestDate != nil {
			fields["test_date"] = *c.TestDate
			existing.TestDate = c.TestDate.UTC()
		}
		if err := tx.Model(&DiagnosticTest{}).Where("id = ?", id.String()).Updates(fields).Error; err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *diagnosticTestRepoGorm) Delete(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	var deleted *DiagnosticTest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findOne(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", id.String()).Delete(&DiagnosticTest{}).Error; err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *diagnosticTestRepoGorm) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func findOne(q *gorm.DB, id uuid.UUID) (*DiagnosticTest, error) {
	var rows []*DiagnosticTest
	if err := q.Where("id = ?", id.String()).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	d := rows[0]
	d.TestDate = d.TestDate.UTC()
	return d, nil
}
