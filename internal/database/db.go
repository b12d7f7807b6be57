// Copyright 2025 Flipmail
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store errors surfaced to callers
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// DB wraps the sql.DB connection and provides access to stores
type DB struct {
	*sql.DB
	UnparsedEmails *UnparsedEmailStore
	Shipments      *ShipmentStore
}

// Open opens a database connection and initializes stores
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode so the ingestion path and the escalation worker can
	// read and write concurrently
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	database := &DB{
		DB:             db,
		UnparsedEmails: NewUnparsedEmailStore(db),
		Shipments:      NewShipmentStore(db),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS unparsed_emails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		message_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		sender TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		received_at DATETIME,
		tracking_number TEXT NOT NULL DEFAULT '',
		carrier TEXT NOT NULL DEFAULT '',
		completeness INTEGER NOT NULL DEFAULT 0,
		is_tracking_email BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME,
		escalated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS shipments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		message_id TEXT NOT NULL,
		tracking_number TEXT NOT NULL DEFAULT '',
		carrier TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'unknown',
		status TEXT NOT NULL DEFAULT '',
		withdrawal_code TEXT NOT NULL DEFAULT '',
		qr_code TEXT NOT NULL DEFAULT '',
		pickup_address TEXT NOT NULL DEFAULT '',
		pickup_deadline TEXT NOT NULL DEFAULT '',
		item_price TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		marketplace TEXT NOT NULL DEFAULT '',
		recipient_name TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		completeness INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'rules',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unparsed_user_message ON unparsed_emails(user_id, message_id);
	CREATE INDEX IF NOT EXISTS idx_unparsed_status ON unparsed_emails(status);
	CREATE INDEX IF NOT EXISTS idx_unparsed_user_status ON unparsed_emails(user_id, status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_shipments_user_message ON shipments(user_id, message_id);
	CREATE INDEX IF NOT EXISTS idx_shipments_tracking ON shipments(tracking_number);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *DB) IsHealthy() error {
	return db.Ping()
}
