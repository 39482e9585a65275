package persona

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepository reads and writes the personas table through database/sql.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("persona: sql db required")
	}
	return &PostgresRepository{db: db}
}

const personaColumns = `id, name, display_name, nickname, persona_name, segment, age_group, gender, job,
		family_structure, customer_value, purchase_pattern, lifestyle, persona_summary_tag`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersona(row rowScanner) (*Persona, error) {
	var (
		p                   Persona
		purchase, lifestyle []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DisplayName,
		&p.Nickname,
		&p.PersonaName,
		&p.Segment,
		&p.AgeGroup,
		&p.Gender,
		&p.Job,
		&p.FamilyStructure,
		&p.CustomerValue,
		&purchase,
		&lifestyle,
		&p.SummaryTag,
	); err != nil {
		return nil, err
	}
	if len(purchase) > 0 {
		if err := json.Unmarshal(purchase, &p.PurchasePattern); err != nil {
			return nil, fmt.Errorf("persona: decode purchase_pattern: %w", err)
		}
	}
	if len(lifestyle) > 0 {
		if err := json.Unmarshal(lifestyle, &p.Lifestyle); err != nil {
			return nil, fmt.Errorf("persona: decode lifestyle: %w", err)
		}
	}
	return &p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas WHERE id = $1`
	p, err := scanPersona(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("persona: select failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("persona: list failed: %w", err)
	}
	defer rows.Close()

	var out []Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("persona: scan failed: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persona: list failed: %w", err)
	}
	return out, nil
}

// BulkCreate inserts all personas in one transaction; either every row lands
// or none does.
func (r *PostgresRepository) BulkCreate(ctx context.Context, personas []Persona) (int, error) {
	if len(personas) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("persona: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO personas (name, display_name, nickname, persona_name, segment, age_group, gender, job,
			family_structure, customer_value, purchase_pattern, lifestyle, persona_summary_tag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for i, p := range personas {
		purchase, err := json.Marshal(nonNil(p.PurchasePattern))
		if err != nil {
			return 0, fmt.Errorf("persona: encode purchase_pattern: %w", err)
		}
		lifestyle, err := json.Marshal(nonNil(p.Lifestyle))
		if err != nil {
			return 0, fmt.Errorf("persona: encode lifestyle: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			p.Name,
			p.DisplayName,
			p.Nickname,
			p.PersonaName,
			p.Segment,
			p.AgeGroup,
			p.Gender,
			p.Job,
			p.FamilyStructure,
			p.CustomerValue,
			purchase,
			lifestyle,
			p.SummaryTag,
		); err != nil {
			return 0, fmt.Errorf("persona: insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("persona: commit: %w", err)
	}
	return len(personas), nil
}

func nonNil(list StringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}
