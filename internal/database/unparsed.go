package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"flipmail/internal/email"
)

// ErrConflict is returned when a conditional status update matched no
// row, meaning another writer changed the record first
var ErrConflict = errors.New("record changed concurrently")

// UnparsedEmailStore handles unparsed email database operations
type UnparsedEmailStore struct {
	db *sql.DB
}

// NewUnparsedEmailStore creates a new unparsed email store
func NewUnparsedEmailStore(db *sql.DB) *UnparsedEmailStore {
	return &UnparsedEmailStore{db: db}
}

const unparsedColumns = `id, user_id, message_id, provider, subject, sender, body,
	received_at, tracking_number, carrier, completeness, is_tracking_email,
	status, error_message, created_at, updated_at, processed_at, escalated_at`

// Create inserts a new queue record in pending status. The unique
// index on (user_id, message_id) makes concurrent duplicate ingestion
// safe; the loser gets ErrDuplicate.
func (s *UnparsedEmailStore) Create(rec *email.UnparsedEmail) error {
	now := time.Now()
	rec.Status = email.StatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now

	result, err := s.db.Exec(`
		INSERT INTO unparsed_emails (user_id, message_id, provider, subject, sender, body,
			received_at, tracking_number, carrier, completeness, is_tracking_email,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.MessageID, rec.Provider, rec.Subject, rec.Sender, rec.Body,
		rec.ReceivedAt, rec.TrackingNumber, rec.Carrier, rec.Completeness, rec.IsTrackingEmail,
		rec.Status, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create unparsed email: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}
	rec.ID = id

	return nil
}

// FindByID retrieves a queue record by id
func (s *UnparsedEmailStore) FindByID(id int64) (*email.UnparsedEmail, error) {
	row := s.db.QueryRow(`SELECT `+unparsedColumns+` FROM unparsed_emails WHERE id = ?`, id)
	return scanUnparsed(row)
}

// FindByMessageID retrieves a user's queue record for a message
func (s *UnparsedEmailStore) FindByMessageID(userID, messageID string) (*email.UnparsedEmail, error) {
	row := s.db.QueryRow(`SELECT `+unparsedColumns+` FROM unparsed_emails
		WHERE user_id = ? AND message_id = ?`, userID, messageID)
	return scanUnparsed(row)
}

// FindPendingByUser retrieves up to limit pending records for a user,
// oldest first
func (s *UnparsedEmailStore) FindPendingByUser(userID string, limit int) ([]email.UnparsedEmail, error) {
	rows, err := s.db.Query(`SELECT `+unparsedColumns+` FROM unparsed_emails
		WHERE user_id = ? AND status = ?
		ORDER BY created_at ASC LIMIT ?`, userID, email.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending emails: %w", err)
	}
	defer rows.Close()

	var records []email.UnparsedEmail
	for rows.Next() {
		rec, err := scanUnparsedRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// ListByStatus retrieves records for a user filtered by status, or
// all of the user's records when status is empty
func (s *UnparsedEmailStore) ListByStatus(userID, status string, limit int) ([]email.UnparsedEmail, error) {
	query := `SELECT ` + unparsedColumns + ` FROM unparsed_emails WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unparsed emails: %w", err)
	}
	defer rows.Close()

	var records []email.UnparsedEmail
	for rows.Next() {
		rec, err := scanUnparsedRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// TransitionStatus moves a record from one status to another as a
// single conditional update. Returns ErrConflict when the record is
// no longer in the expected status. Failures stamp the escalation
// attempt time so retry cooldowns can be enforced.
func (s *UnparsedEmailStore) TransitionStatus(id int64, from, to, errorMessage string) error {
	query := `UPDATE unparsed_emails
		SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`
	if to == email.StatusFailed {
		query = `UPDATE unparsed_emails
			SET status = ?, error_message = ?, escalated_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?`
	}
	result, err := s.db.Exec(query, to, errorMessage, id, from)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(id); err != nil {
			return err
		}
		return ErrConflict
	}

	return nil
}

// MarkProcessed completes a processing record, stamping both the
// processing time and the escalation completion time
func (s *UnparsedEmailStore) MarkProcessed(id int64) error {
	result, err := s.db.Exec(`UPDATE unparsed_emails
		SET status = ?, processed_at = CURRENT_TIMESTAMP, escalated_at = CURRENT_TIMESTAMP,
			error_message = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`, email.StatusProcessed, id, email.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark processed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(id); err != nil {
			return err
		}
		return ErrConflict
	}

	return nil
}

// Delete removes a queue record
func (s *UnparsedEmailStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM unparsed_emails WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete unparsed email: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// CountByStatus returns queue depth per status
func (s *UnparsedEmailStore) CountByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM unparsed_emails GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnparsed(row *sql.Row) (*email.UnparsedEmail, error) {
	rec, err := scanUnparsedRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func scanUnparsedRows(row rowScanner) (*email.UnparsedEmail, error) {
	var rec email.UnparsedEmail
	var receivedAt, processedAt, escalatedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.UserID, &rec.MessageID, &rec.Provider,
		&rec.Subject, &rec.Sender, &rec.Body, &receivedAt,
		&rec.TrackingNumber, &rec.Carrier, &rec.Completeness, &rec.IsTrackingEmail,
		&rec.Status, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt,
		&processedAt, &escalatedAt)
	if err != nil {
		return nil, err
	}

	if receivedAt.Valid {
		rec.ReceivedAt = receivedAt.Time
	}
	if processedAt.Valid {
		rec.ProcessedAt = &processedAt.Time
	}
	if escalatedAt.Valid {
		rec.EscalatedAt = &escalatedAt.Time
	}

	return &rec, nil
}
