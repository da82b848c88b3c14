package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"visitorgate/internal/store"
)

// Wall-clock layouts used throughout the visit log.
const (
	TimeLayout = "15:04:05"
	DateLayout = "02/01/2006"
)

// VisitRecord is one row of the visit log, at most one per (identity, date).
// The identity is the tag when one was recorded, otherwise the name.
type VisitRecord struct {
	ID      int64  `json:"id"`
	Tag     string `json:"tag"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Purpose string `json:"purpose"`
	TimeIn  string `json:"time_in"`
	TimeOut string `json:"time_out"`
	Date    string `json:"date"`
	Picture []byte `json:"-"`
}

// DayEntry is the projection listed for a single day.
type DayEntry struct {
	Tag     string `json:"tag"`
	Name    string `json:"name"`
	Address string `json:"address"`
	TimeIn  string `json:"time_in"`
	Purpose string `json:"purpose"`
	TimeOut string `json:"time_out"`
}

// Outcome reports whether an upsert created or amended a record.
type Outcome int

const (
	Inserted Outcome = iota
	Updated
)

func (o Outcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "updated"
}

// Ledger persists visit records in a local sqlite file. The file is opened,
// used and closed per operation; an inaccessible file fails that operation
// only.
type Ledger struct {
	path string
}

// New creates a ledger over the sqlite file at path.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag TEXT,
		name TEXT,
		address TEXT,
		purpose TEXT,
		time_in TEXT,
		time_out TEXT,
		date TEXT,
		picture BLOB
	)`

// EnsureSchema creates the users table when absent. No migration logic
// beyond that single flat table.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	db, err := store.Open(l.path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Ping verifies the store file is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	db, err := store.Open(l.path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

// Upsert persists rec with a read-before-write merge on (identity, date).
//
// No existing record means a check-in: every supplied field is stored and
// the store assigns a fresh id. An existing record means a check-out: only
// time_out changes, plus the picture when a new payload was supplied.
// Fields recorded at check-in stay exactly as first stored, so a typo at
// check-out time cannot corrupt the original identity data. Repeating an
// identical check-out is a no-op on the stored state.
func (l *Ledger) Upsert(ctx context.Context, rec VisitRecord) (Outcome, error) {
	db, err := store.Open(l.path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	existing, err := find(ctx, db, rec.Tag, rec.Name, rec.Date)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (tag, name, address, time_in, purpose, time_out, date, picture)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.Tag, rec.Name, rec.Address, rec.TimeIn, rec.Purpose, rec.TimeOut, rec.Date, rec.Picture)
		if err != nil {
			return 0, fmt.Errorf("insert visit record: %w", err)
		}
		return Inserted, nil
	}

	if len(rec.Picture) > 0 {
		_, err = db.ExecContext(ctx, `UPDATE users SET time_out = ?, picture = ? WHERE id = ?`,
			rec.TimeOut, rec.Picture, existing.ID)
	} else {
		_, err = db.ExecContext(ctx, `UPDATE users SET time_out = ? WHERE id = ?`,
			rec.TimeOut, existing.ID)
	}
	if err != nil {
		return 0, fmt.Errorf("update visit record: %w", err)
	}
	return Updated, nil
}

// FindByIdentityAndDate returns the record for (identity, date), exact match
// only, or nil when none exists. The identity is resolved from tag and name
// the same way Upsert resolves it.
func (l *Ledger) FindByIdentityAndDate(ctx context.Context, tag, name, date string) (*VisitRecord, error) {
	db, err := store.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return find(ctx, db, tag, name, date)
}

// ListByDate returns the day's entries in store insertion order.
func (l *Ledger) ListByDate(ctx context.Context, date string) ([]DayEntry, error) {
	db, err := store.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT tag, name, address, time_in, purpose, time_out
		FROM users WHERE date = ? ORDER BY id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list visit records: %w", err)
	}
	defer rows.Close()

	var entries []DayEntry
	for rows.Next() {
		var tag, name, address, timeIn, purpose, timeOut sql.NullString
		if err := rows.Scan(&tag, &name, &address, &timeIn, &purpose, &timeOut); err != nil {
			return nil, err
		}
		entries = append(entries, DayEntry{
			Tag:     tag.String,
			Name:    name.String,
			Address: address.String,
			TimeIn:  timeIn.String,
			Purpose: purpose.String,
			TimeOut: timeOut.String,
		})
	}
	return entries, rows.Err()
}

// identityKey picks the lookup column: tag when supplied, else name.
func identityKey(tag, name string) (column, value string) {
	if tag != "" {
		return "tag", tag
	}
	return "name", name
}

func find(ctx context.Context, db *sql.DB, tag, name, date string) (*VisitRecord, error) {
	column, value := identityKey(tag, name)
	row := db.QueryRowContext(ctx, `
		SELECT id, tag, name, address, purpose, time_in, time_out, date, picture
		FROM users WHERE `+column+` = ? AND date = ? ORDER BY id LIMIT 1
	`, value, date)

	var rec VisitRecord
	var tagCol, nameCol, address, purpose, timeIn, timeOut, dateCol sql.NullString
	err := row.Scan(&rec.ID, &tagCol, &nameCol, &address, &purpose, &timeIn, &timeOut, &dateCol, &rec.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find visit record: %w", err)
	}
	rec.Tag = tagCol.String
	rec.Name = nameCol.String
	rec.Address = address.String
	rec.Purpose = purpose.String
	rec.TimeIn = timeIn.String
	rec.TimeOut = timeOut.String
	rec.Date = dateCol.String
	return &rec, nil
}
