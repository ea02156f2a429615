package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rmis.udsm.ac.tz/internal/risk"
)

// RiskStore implements risk.Store on Postgres. Supporting units travel as
// a jsonb array; the human-readable code carries a unique constraint.
type RiskStore struct {
	db *sql.DB
}

var _ risk.Store = (*RiskStore)(nil)

const riskColumns = `id, code, title, description, category, owner_id, principal_owner, supporting_units,
		likelihood, impact, score, band, causes, consequences, existing_controls, mitigation,
		workflow, status, quarter, year, created_at, updated_at`

func (s *RiskStore) Create(ctx context.Context, rec *risk.RiskRecord) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	units, err := marshalUnits(rec.SupportingUnits)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into risks (`+riskColumns+`)
		values ($1, nullif($2,''), $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22)
	`,
		rec.ID, rec.Code, rec.Title, rec.Description, string(rec.Category), rec.OwnerID, rec.PrincipalOwner, units,
		rec.Likelihood, rec.Impact, rec.Score, string(rec.Band), rec.Causes, rec.Consequences, rec.ExistingControls, rec.Mitigation,
		string(rec.Workflow), string(rec.Status), rec.Quarter, rec.Year, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return risk.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *RiskStore) Get(ctx context.Context, id string) (risk.RiskRecord, error) {
	if s.db == nil {
		return risk.RiskRecord{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+riskColumns+`
		from risks
		where id = $1
	`, id)
	rec, err := scanRisk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return risk.RiskRecord{}, risk.ErrNotFound
	}
	return rec, err
}

func (s *RiskStore) Update(ctx context.Context, rec *risk.RiskRecord) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	units, err := marshalUnits(rec.SupportingUnits)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update risks set
			code = nullif($2,''), title = $3, description = $4, category = $5,
			principal_owner = $6, supporting_units = $7,
			likelihood = $8, impact = $9, score = $10, band = $11,
			causes = $12, consequences = $13, existing_controls = $14, mitigation = $15,
			status = $16, updated_at = $17
		where id = $1
	`,
		rec.ID, rec.Code, rec.Title, rec.Description, string(rec.Category),
		rec.PrincipalOwner, units,
		rec.Likelihood, rec.Impact, rec.Score, string(rec.Band),
		rec.Causes, rec.Consequences, rec.ExistingControls, rec.Mitigation,
		string(rec.Status), rec.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return risk.ErrDuplicateCode
		}
		return err
	}
	return oneRowOr(res, risk.ErrNotFound)
}

func (s *RiskStore) List(ctx context.Context, f risk.Filter) ([]risk.RiskRecord, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		where []string
		args  []any
		idx   = 1
	)
	if f.OwnerID != "" {
		where = append(where, fmt.Sprintf("owner_id = $%d", idx))
		args = append(args, f.OwnerID)
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(f.Status))
		idx++
	}
	if f.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", idx))
		args = append(args, string(f.Category))
		idx++
	}
	if f.Quarter != 0 {
		where = append(where, fmt.Sprintf("quarter = $%d", idx))
		args = append(args, f.Quarter)
		idx++
	}
	if f.Year != 0 {
		where = append(where, fmt.Sprintf("year = $%d", idx))
		args = append(args, f.Year)
		idx++
	}

	query := `select ` + riskColumns + ` from risks`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []risk.RiskRecord
	for rows.Next() {
		rec, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRisk(row rowScanner) (risk.RiskRecord, error) {
	var (
		rec   risk.RiskRecord
		code  sql.NullString
		units []byte
	)
	err := row.Scan(
		&rec.ID, &code, &rec.Title, &rec.Description, &rec.Category, &rec.OwnerID, &rec.PrincipalOwner, &units,
		&rec.Likelihood, &rec.Impact, &rec.Score, &rec.Band, &rec.Causes, &rec.Consequences, &rec.ExistingControls, &rec.Mitigation,
		&rec.Workflow, &rec.Status, &rec.Quarter, &rec.Year, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return risk.RiskRecord{}, err
	}
	if code.Valid {
		rec.Code = code.String
	}
	if len(units) > 0 {
		if err := json.Unmarshal(units, &rec.SupportingUnits); err != nil {
			return risk.RiskRecord{}, fmt.Errorf("decode supporting units: %w", err)
		}
	}
	return rec, nil
}

func marshalUnits(units []string) ([]byte, error) {
	if len(units) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(units)
	if err != nil {
		return nil, fmt.Errorf("marshal supporting units: %w", err)
	}
	return data, nil
}
