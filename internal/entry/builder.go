package entry

import (
	"context"
	"fmt"
	"log"
	"strings"

	"visitorgate/internal/ledger"
	"visitorgate/internal/queue"
)

// Form carries the operator-entered fields for one save.
type Form struct {
	Tag     string `json:"tag"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Purpose string `json:"purpose"`
	TimeIn  string `json:"time_in"`
	TimeOut string `json:"time_out"`
	Date    string `json:"date"`
}

// ValidationError reports a missing required field. Nothing is persisted
// when one is returned.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("required field %q is empty", e.Field)
}

// Staging is the slice of the snapshot producer the builder needs.
type Staging interface {
	Staged() ([]byte, error)
	Clear() error
}

// Store is the slice of the visit ledger the builder needs.
type Store interface {
	Upsert(ctx context.Context, rec ledger.VisitRecord) (ledger.Outcome, error)
}

// Builder assembles a pending log entry from the form plus the latest
// staged snapshot and hands it to the ledger.
type Builder struct {
	store        Store
	staging      Staging
	backups      queue.Queue
	defaultPhoto string
	dbPath       string
}

// NewBuilder creates a builder. backups may be nil when no queue is wired;
// dbPath names the datastore file backup jobs should ship.
func NewBuilder(store Store, staging Staging, backups queue.Queue, defaultPhoto, dbPath string) *Builder {
	return &Builder{store: store, staging: staging, backups: backups, defaultPhoto: defaultPhoto, dbPath: dbPath}
}

// Build validates the form and attaches the staged snapshot. The ledger is
// never touched when validation fails. The snapshot is read at save time,
// so the most recent snap before save wins; none staged means no picture on
// insert and an untouched picture on update.
func (b *Builder) Build(form Form) (ledger.VisitRecord, error) {
	required := []struct {
		field, value string
	}{
		{"name", form.Name},
		{"address", form.Address},
		{"time_in", form.TimeIn},
		{"date", form.Date},
		{"purpose", form.Purpose},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return ledger.VisitRecord{}, ValidationError{Field: r.field}
		}
	}

	picture, err := b.staging.Staged()
	if err != nil {
		return ledger.VisitRecord{}, err
	}

	return ledger.VisitRecord{
		Tag:     strings.TrimSpace(form.Tag),
		Name:    strings.TrimSpace(form.Name),
		Address: strings.TrimSpace(form.Address),
		Purpose: strings.TrimSpace(form.Purpose),
		TimeIn:  strings.TrimSpace(form.TimeIn),
		TimeOut: strings.TrimSpace(form.TimeOut),
		Date:    strings.TrimSpace(form.Date),
		Picture: picture,
	}, nil
}

// SaveResult reports the upsert outcome and the photo the preview should
// fall back to once the form resets.
type SaveResult struct {
	Outcome      ledger.Outcome
	DefaultPhoto string
}

// Save builds, persists and cleans up: after a successful write the staged
// snapshot is deleted and a backup job is enqueued when a queue is wired.
func (b *Builder) Save(ctx context.Context, form Form) (SaveResult, error) {
	rec, err := b.Build(form)
	if err != nil {
		return SaveResult{}, err
	}
	outcome, err := b.store.Upsert(ctx, rec)
	if err != nil {
		return SaveResult{}, err
	}
	if err := b.staging.Clear(); err != nil {
		log.Printf("clear staged snapshot: %v", err)
	}
	if b.backups != nil {
		if err := b.backups.Publish(ctx, queue.NewBackupJob(b.dbPath)); err != nil {
			log.Printf("backup enqueue failed: %v", err)
		}
	}
	return SaveResult{Outcome: outcome, DefaultPhoto: b.defaultPhoto}, nil
}
