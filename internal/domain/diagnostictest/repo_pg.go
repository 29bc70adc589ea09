package diagnostictest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type diagnosticTestRepoPG struct{ pool *pgxpool.Pool }

// NewDiagnosticTestRepoPG returns a repository backed by a pgx pool.
func NewDiagnosticTestRepoPG(pool *pgxpool.Pool) DiagnosticTestRepository {
	return &diagnosticTestRepoPG{pool: pool}
}

func (r *diagnosticTestRepoPG) conn() queryable {
	return r.pool
}

const dtCols = `id, patient_name, test_type, result, test_date, notes`

func (r *diagnosticTestRepoPG) scanRow(row pgx.Row) (*DiagnosticTest, error) {
	var d DiagnosticTest
	err := row.Scan(&d.ID, &d.PatientName, &d.TestType, &d.Result, &d.TestDate, &d.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.TestDate = d.TestDate.UTC()
	return &d, nil
}

func (r *diagnosticTestRepoPG) Create(ctx context.Context, d *DiagnosticTest) error {
	_, err := r.conn().Exec(ctx, `
		INSERT INTO diagnostic_test (id, patient_name, test_type, result, test_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		d.ID, d.PatientName, d.TestType, d.Result, d.TestDate, d.Notes)
	return err
}

func (r *diagnosticTestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	return r.scanRow(r.conn().QueryRow(ctx, `SELECT `+dtCols+` FROM diagnostic_test WHERE id = $1`, id))
}

func (r *diagnosticTestRepoPG) List(ctx context.Context, opts ListOptions) ([]*DiagnosticTest, error) {
	query := `SELECT ` + dtCols + ` FROM diagnostic_test`
	if opts.OrderByTestDateDesc {
		query += ` ORDER BY test_date DESC`
	}
	rows, err := r.conn().Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*DiagnosticTest{}
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites every mutable column in one statement. test_date keeps its
// stored value when the candidate has none.
func (r *diagnosticTestRepoPG) Update(ctx context.Context, id uuid.UUID, c *Candidate) (*DiagnosticTest, error) {
	return r.scanRow(r.conn().QueryRow(ctx, `
		UPDATE diagnostic_test SET patient_name=$2, test_type=$3, result=$4, notes=$5,
			test_date=COALESCE($6::timestamptz, test_date), updated_at=NOW()
		WHERE id = $1
		RETURNING `+dtCols,
		id, c.PatientName, c.TestType, c.Result, c.Notes, c.TestDate))
}

func (r *diagnosticTestRepoPG) Delete(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	return r.scanRow(r.conn().QueryRow(ctx, `DELETE FROM diagnostic_test WHERE id = $1 RETURNING `+dtCols, id))
}

func (r *diagnosticTestRepoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
