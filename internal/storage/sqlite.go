package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/quality"
)

// createTableSQL builds the per-type table. Identity fields stay as first
// written; the dedup_key constraint drives the upsert.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	source_id TEXT NOT NULL,
	title TEXT NOT NULL,
	"start" TEXT,
	"end" TEXT,
	timezone TEXT,
	venue_name TEXT NOT NULL,
	address TEXT NOT NULL,
	city TEXT NOT NULL,
	country TEXT,
	time_slots_json TEXT NOT NULL,
	price_text TEXT,
	price_value REAL,
	organizer TEXT,
	url TEXT,
	emails_json TEXT,
	phones_json TEXT,
	images_json TEXT,
	taxonomy_json TEXT,
	sport_type TEXT,
	dedup_key TEXT UNIQUE
)`

// upsertSQL refreshes every mutable column on conflict. The source_id,
// title, venue and city columns feed the dedup key, so the first write wins
// for those.
const upsertSQL = `INSERT INTO %s (
	source_id, title, "start", "end", timezone,
	venue_name, address, city, country, time_slots_json,
	price_text, price_value, organizer, url,
	emails_json, phones_json, images_json, taxonomy_json, sport_type, dedup_key
) VALUES (
	:source_id, :title, :start, :end, :timezone,
	:venue_name, :address, :city, :country, :time_slots_json,
	:price_text, :price_value, :organizer, :url,
	:emails_json, :phones_json, :images_json, :taxonomy_json, :sport_type, :dedup_key
)
ON CONFLICT(dedup_key) DO UPDATE SET
	"start"=excluded."start",
	"end"=excluded."end",
	timezone=excluded.timezone,
	price_text=excluded.price_text,
	price_value=excluded.price_value,
	organizer=excluded.organizer,
	url=excluded.url,
	emails_json=excluded.emails_json,
	phones_json=excluded.phones_json,
	images_json=excluded.images_json,
	taxonomy_json=excluded.taxonomy_json,
	sport_type=excluded.sport_type`

// upsertSQLite writes the entities into the per-type table, creating it on
// first use.
func upsertSQLite(entities []domain.Entity, path, entityType string) error {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if _, ddlErr := db.Exec(fmt.Sprintf(createTableSQL, entityType)); ddlErr != nil {
		return fmt.Errorf("create %s table: %w", entityType, ddlErr)
	}

	tx, txErr := db.Beginx()
	if txErr != nil {
		return fmt.Errorf("begin sqlite tx: %w", txErr)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(upsertSQL, entityType)
	for _, entity := range entities {
		row, rowErr := sqliteRow(entity)
		if rowErr != nil {
			return rowErr
		}
		if _, execErr := tx.NamedExec(query, row); execErr != nil {
			return fmt.Errorf("upsert %s row: %w", entityType, execErr)
		}
	}
	return tx.Commit()
}

// sqliteRow flattens an entity into named parameters; list fields serialise
// as JSON columns.
func sqliteRow(entity domain.Entity) (map[string]any, error) {
	dedupKey, err := quality.EntityKey(entity)
	if err != nil {
		return nil, fmt.Errorf("dedup key: %w", err)
	}

	timeSlots, err := jsonColumn(entity[domain.FieldTimeSlots])
	if err != nil {
		return nil, err
	}
	emails, err := jsonColumn(entity[domain.FieldEmails])
	if err != nil {
		return nil, err
	}
	phones, err := jsonColumn(entity[domain.FieldPhones])
	if err != nil {
		return nil, err
	}
	images, err := jsonColumn(entity[domain.FieldImages])
	if err != nil {
		return nil, err
	}
	taxonomy, err := jsonColumn(entity[domain.FieldTaxonomy])
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"source_id":       entity[domain.FieldSourceID],
		"title":           entity[domain.FieldTitle],
		"start":           entity[domain.FieldStart],
		"end":             entity[domain.FieldEnd],
		"timezone":        entity[domain.FieldTimezone],
		"venue_name":      entity[domain.FieldVenueName],
		"address":         entity[domain.FieldAddress],
		"city":            entity[domain.FieldCity],
		"country":         entity[domain.FieldCountry],
		"time_slots_json": timeSlots,
		"price_text":      entity[domain.FieldPriceText],
		"price_value":     entity[domain.FieldPriceValue],
		"organizer":       entity[domain.FieldOrganizer],
		"url":             entity[domain.FieldURL],
		"emails_json":     emails,
		"phones_json":     phones,
		"images_json":     images,
		"taxonomy_json":   taxonomy,
		"sport_type":      entity[domain.FieldSportType],
		"dedup_key":       dedupKey,
	}, nil
}

// jsonColumn serialises a list field, treating absent values as empty lists.
func jsonColumn(value any) (string, error) {
	if value == nil {
		value = []any{}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(encoded), nil
}
