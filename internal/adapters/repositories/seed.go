package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dispatch-worklist-service/internal/textnorm"
)

type CarrierSeed struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	District      string `json:"district"`
	Ward          string `json:"ward"`
	DepartureText string `json:"departure_text"`
	Active        bool   `json:"active"`
}

// SeedCarriersFromJSON loads the carrier reference table from a JSON file.
// Seeding replaces the table wholesale: the external sync job, not this
// service, owns carrier data, and file order defines table order.
func SeedCarriersFromJSON(db *sql.DB, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed carriers: read %q: %w", jsonPath, err)
	}

	var data []CarrierSeed
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("seed carriers: parse json: %w", err)
	}

	for i, c := range data {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("seed carriers: item at index %d: name cannot be empty", i+1)
		}
		if strings.TrimSpace(c.Address) == "" {
			return fmt.Errorf("seed carriers: item %q: address cannot be empty", c.Name)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed carriers: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM carriers;`); err != nil {
		return fmt.Errorf("seed carriers: clear table: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO carriers (name, name_folded, address, district, ward, departure_text, active)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("seed carriers: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range data {
		folded := textnorm.NormalizeCarrierName(c.Name)
		if _, err := stmt.Exec(c.Name, folded, c.Address, c.District, c.Ward, c.DepartureText, boolToInt(c.Active)); err != nil {
			return fmt.Errorf("seed carriers: insert %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed carriers: commit tx: %w", err)
	}
	return nil
}
