package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dispatch-worklist-service/internal/domain"
)

// SQLite-backed implementation of the CarrierRepository port.
//
// Matching is substring-based against a pre-folded name column, so lookups
// stay diacritic-insensitive without SQL-side collation tricks. Rows come
// back in table order — the resolver's documented final tie-break.
type SqliteCarrierRepository struct{ DB *sql.DB }

func NewSqliteCarrierRepository(db *sql.DB) *SqliteCarrierRepository {
	return &SqliteCarrierRepository{DB: db}
}

func (s *SqliteCarrierRepository) FindByName(ctx context.Context, normalizedName string) ([]domain.CarrierRecord, error) {
	if s.DB == nil {
		return nil, errors.New("carrier repository: db is nil")
	}
	if strings.TrimSpace(normalizedName) == "" {
		return nil, nil
	}

	q := `
	SELECT name, address, district, ward, departure_text, active
	FROM carriers
	WHERE active = 1 AND instr(name_folded, ?) > 0
	ORDER BY position;
	`

	rows, err := s.DB.QueryContext(ctx, q, normalizedName)
	if err != nil {
		return nil, fmt.Errorf("find carrier %q: query carriers table: %w", normalizedName, err)
	}
	defer rows.Close()

	var out []domain.CarrierRecord
	for rows.Next() {
		var (
			c      domain.CarrierRecord
			active int
		)
		if err := rows.Scan(&c.Name, &c.Address, &c.District, &c.Ward, &c.DepartureText, &active); err != nil {
			return nil, fmt.Errorf("find carrier %q: scan rows: %w", normalizedName, err)
		}
		c.Active = active != 0
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find carrier %q: row iteration: %w", normalizedName, err)
	}
	return out, nil
}
