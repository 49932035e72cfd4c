package repo

import (
	"context"
	"database/sql"
	"time"

	"gsmalarm/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        BIGSERIAL PRIMARY KEY,
	number    TEXT,
	sent      TIMESTAMPTZ NOT NULL,
	received  TIMESTAMPTZ NOT NULL,
	scheduled TIMESTAMPTZ,
	called    TIMESTAMPTZ,
	result    INTEGER
);
CREATE INDEX IF NOT EXISTS messages_pending_idx ON messages (scheduled) WHERE called IS NULL;
`

// EnsureSchema creates the messages table and its pending-rows index if
// they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

type PostgresScheduleRepo struct {
	db *sql.DB
}

func NewPostgresScheduleRepo(db *sql.DB) *PostgresScheduleRepo {
	return &PostgresScheduleRepo{db: db}
}

func (r *PostgresScheduleRepo) Insert(ctx context.Context, number *string, sentAt, receivedAt, scheduledAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (number, sent, received, scheduled)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, number, sentAt, receivedAt, scheduledAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresScheduleRepo) FetchPending(ctx context.Context) ([]model.ScheduleRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, number, sent, received, scheduled, called, result
		FROM messages
		WHERE called IS NULL
		ORDER BY scheduled ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *PostgresScheduleRepo) RecordResult(ctx context.Context, id int64, calledAt time.Time, result int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET called = $2, result = $3
		WHERE id = $1
	`, id, calledAt, result)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresScheduleRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.ScheduleRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, number, sent, received, scheduled, called, result
		FROM messages
		ORDER BY scheduled DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]model.ScheduleRecord, error) {
	var out []model.ScheduleRecord
	for rows.Next() {
		var rec model.ScheduleRecord
		var number sql.NullString
		var scheduled, called sql.NullTime
		var result sql.NullInt64

		if err := rows.Scan(
			&rec.ID,
			&number,
			&rec.SentAt,
			&rec.ReceivedAt,
			&scheduled,
			&called,
			&result,
		); err != nil {
			return nil, err
		}

		if number.Valid {
			s := number.String
			rec.Number = &s
		}
		if scheduled.Valid {
			t := scheduled.Time
			rec.ScheduledAt = &t
		}
		if called.Valid {
			t := called.Time
			rec.CalledAt = &t
		}
		if result.Valid {
			v := int(result.Int64)
			rec.Result = &v
		}

		out = append(out, rec)
	}
	return out, rows.Err()
}
