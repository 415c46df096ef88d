package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	e "nuclight.org/wa-stylist-relay/pkg/entities"
)

// SQLite is an append-only journal of dispatched events.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, filePath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database: %w", err)
	}

	client := &SQLite{
		db: db,
	}

	err = client.init(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing sqlite3 database: %w", err)
	}

	return client, nil
}

func (c *SQLite) Close() error {
	return c.db.Close()
}

func (c *SQLite) SaveEvent(ctx context.Context, ev e.InboundEvent) (int64, error) {
	var text, mediaID *string
	if ev.Message.HasText() {
		text = &ev.Message.Text.Body
	}
	if ev.Message.HasImage() {
		mediaID = &ev.Message.Image.MediaID
	}

	result, err := c.db.ExecContext(
		ctx,
		`INSERT INTO events (
			event_id, message_id, wa_id, sender_name, kind, text, media_id, created_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP
		)`,
		ev.ID, ev.Message.ID, ev.Sender.WaID, ev.Sender.Name, ev.Message.Type, text, mediaID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return id, nil
}

func (c *SQLite) SaveOutcome(ctx context.Context, id int64, outcome e.Outcome) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE events SET outcome = ?, outcome_note = ? WHERE id = ?`,
		string(outcome.Kind),
		outcome.Note,
		id,
	)
	return err
}

func (c *SQLite) SaveError(ctx context.Context, id int64, error string) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE events SET outcome = ?, error = ? WHERE id = ?`,
		string(e.OutcomeKindFailed),
		error,
		id,
	)
	return err
}

//go:embed init.sql
var initQuery string

func (c *SQLite) init(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, initQuery)
	return err
}
