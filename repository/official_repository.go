package repository

import (
	"context"
	"errors"
	"fmt"

	"officialqa-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOfficialNotFound is returned when no official has the requested ID
var ErrOfficialNotFound = errors.New("official not found")

// OfficialRepository handles database operations for officials
type OfficialRepository struct {
	db *pgxpool.Pool
}

// NewOfficialRepository creates a new official repository
func NewOfficialRepository(db *pgxpool.Pool) *OfficialRepository {
	return &OfficialRepository{db: db}
}

// Initialize creates the officials table if missing
func (r *OfficialRepository) Initialize(ctx context.Context) error {
	for _, stmt := range OfficialsSchema() {
		if _, err := r.db.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.Name, err)
		}
	}
	return nil
}

// GetEntity retrieves an official by ID
func (r *OfficialRepository) GetEntity(ctx context.Context, id int64) (*models.Official, error) {
	official := &models.Official{}
	query := `
		SELECT id, name,
			COALESCE(position, ''), COALESCE(party, ''), COALESCE(constituency, ''),
			COALESCE(state, ''), COALESCE(education, ''),
			COALESCE(assets, ''), COALESCE(liabilities, ''),
			criminal_cases, COALESCE(criminal_case_details, ''),
			COALESCE(political_relatives, ''), COALESCE(dynasty_status, ''),
			COALESCE(source_url, ''),
			created_at, updated_at
		FROM officials
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&official.ID,
		&official.Name,
		&official.Position,
		&official.Party,
		&official.Constituency,
		&official.State,
		&official.Education,
		&official.Assets,
		&official.Liabilities,
		&official.CriminalCases,
		&official.CriminalCaseDetails,
		&official.PoliticalRelatives,
		&official.DynastyStatus,
		&official.SourceURL,
		&official.CreatedAt,
		&official.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrOfficialNotFound, id)
		}
		return nil, fmt.Errorf("failed to get official: %w", err)
	}

	return official, nil
}

// ListEntityIDs returns every official ID in ascending order
func (r *OfficialRepository) ListEntityIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM officials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list officials: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan official id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating officials: %w", err)
	}

	return ids, nil
}

// Save inserts an official. When ID is set the row is created or replaced
// under that ID, otherwise a new ID is assigned.
func (r *OfficialRepository) Save(ctx context.Context, official *models.Official) error {
	args := []interface{}{
		official.Name,
		nullIfEmpty(official.Position),
		nullIfEmpty(official.Party),
		nullIfEmpty(official.Constituency),
		nullIfEmpty(official.State),
		nullIfEmpty(official.Education),
		nullIfEmpty(official.Assets),
		nullIfEmpty(official.Liabilities),
		official.CriminalCases,
		nullIfEmpty(official.CriminalCaseDetails),
		nullIfEmpty(official.PoliticalRelatives),
		nullIfEmpty(official.DynastyStatus),
		nullIfEmpty(official.SourceURL),
	}

	var query string
	if official.ID == 0 {
		query = `
		INSERT INTO officials (
			name, position, party, constituency, state, education,
			assets, liabilities, criminal_cases, criminal_case_details,
			political_relatives, dynasty_status, source_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING id, created_at, updated_at`
	} else {
		args = append(args, official.ID)
		query = `
		INSERT INTO officials (
			name, position, party, constituency, state, education,
			assets, liabilities, criminal_cases, criminal_case_details,
			political_relatives, dynasty_status, source_url, id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			party = EXCLUDED.party,
			constituency = EXCLUDED.constituency,
			state = EXCLUDED.state,
			education = EXCLUDED.education,
			assets = EXCLUDED.assets,
			liabilities = EXCLUDED.liabilities,
			criminal_cases = EXCLUDED.criminal_cases,
			criminal_case_details = EXCLUDED.criminal_case_details,
			political_relatives = EXCLUDED.political_relatives,
			dynasty_status = EXCLUDED.dynasty_status,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
	}

	err := r.db.QueryRow(ctx, query, args...).Scan(&official.ID, &official.CreatedAt, &official.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save official: %w", err)
	}
	return nil
}

// SyncIDSequence moves the id sequence past the highest stored ID so that
// inserts without an explicit ID do not collide with seeded rows
func (r *OfficialRepository) SyncIDSequence(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('officials', 'id'), COALESCE(MAX(id), 1)) FROM officials`)
	if err != nil {
		return fmt.Errorf("failed to sync official id sequence: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
