package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"reportverify/internal/domain"
	"reportverify/internal/port"
)

const runColumns = `id, design_spec_name, report_name, design_spec_key, report_key,
	expected_version, passed, report, created_at`

type verificationRunRepo struct {
	db *sqlx.DB
}

// NewVerificationRunRepo creates a new PostgreSQL-backed VerificationRunRepository.
func NewVerificationRunRepo(db *sqlx.DB) port.VerificationRunRepository {
	return &verificationRunRepo{db: db}
}

// runRow is the table shape of a run; the result tree is stored as jsonb.
type runRow struct {
	domain.VerificationRun
	ReportJSON []byte `db:"report"`
}

func (r runRow) toDomain() (*domain.VerificationRun, error) {
	run := r.VerificationRun
	if len(r.ReportJSON) > 0 {
		var report domain.Report
		if err := json.Unmarshal(r.ReportJSON, &report); err != nil {
			return nil, fmt.Errorf("decoding report of run %s: %w", run.ID, err)
		}
		run.Report = &report
	}
	return &run, nil
}

func (r *verificationRunRepo) Create(ctx context.Context, run *domain.VerificationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()

	var report []byte
	if run.Report != nil {
		var err error
		if report, err = json.Marshal(run.Report); err != nil {
			return fmt.Errorf("verificationRunRepo.Create encode: %w", err)
		}
	}

	query := `INSERT INTO verification_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.DesignSpecName, run.ReportName, run.DesignSpecKey, run.ReportKey,
		run.ExpectedVersion, run.Passed, report, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("verificationRunRepo.Create: %w", err)
	}
	return nil
}

func (r *verificationRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, "SELECT "+runColumns+" FROM verification_runs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("verificationRunRepo.GetByID: %w", err)
	}
	return row.toDomain()
}

// List returns runs newest first without their result trees.
func (r *verificationRunRepo) List(ctx context.Context, filter domain.RunFilter) ([]domain.VerificationRun, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Passed != nil {
		where = "WHERE passed = $1"
		args = append(args, *filter.Passed)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM verification_runs "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("verificationRunRepo.List count: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, design_spec_name, report_name, design_spec_key, report_key,
		expected_version, passed, created_at
	FROM verification_runs %s
	ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var runs []domain.VerificationRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("verificationRunRepo.List: %w", err)
	}
	return runs, total, nil
}

func (r *verificationRunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM verification_runs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("verificationRunRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
