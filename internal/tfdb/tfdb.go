// Package tfdb records transform batches to SQLite and replays them into a
// buffer, so a run can be inspected or re-queried after the fact.
package tfdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tfbuffer/internal/monitoring"
	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/timeutil"
)

// ErrUnknownSession is returned when a session id has no row.
var ErrUnknownSession = errors.New("unknown session")

var logf = monitoring.Component("tfdb")

// DB is a transform recording database.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Option configures a DB.
type Option func(*DB)

// WithClock sets the clock used to stamp new sessions.
func WithClock(c timeutil.Clock) Option {
	return func(db *DB) { db.clock = c }
}

// Session is one recording run.
type Session struct {
	ID         string
	Label      string
	StartedAt  time.Time
	Transforms int
}

// Ingester accepts replayed batches; tf.Buffer and tf.LockedBuffer both
// satisfy it.
type Ingester interface {
	Ingest(batch msg.TFMessage, static bool)
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One writer; avoids SQLITE_BUSY between the migrate driver and inserts.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logf("opened recording database %s", path)
	return db, nil
}

// StartSession creates a new recording session.
func (db *DB) StartSession(label string) (Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		Label:     label,
		StartedAt: db.clock.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO tf_sessions (session_id, label, started_unix_nanos) VALUES (?, ?, ?)`,
		s.ID, s.Label, s.StartedAt.UnixNano(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	return s, nil
}

// Record appends batch to the session as one batch, preserving its order.
func (db *DB) Record(sessionID string, batch msg.TFMessage, static bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tf_sessions WHERE session_id = ?`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("record into %s: %w", sessionID, ErrUnknownSession)
	}

	var next int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(batch), 0) + 1 FROM tf_transforms WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to allocate batch number: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tf_transforms (
			session_id, batch, is_static, seq, stamp_sec, stamp_nsec, frame_id, child_frame_id,
			tx, ty, tz, qx, qy, qz, qw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range batch.Transforms {
		tr, rot := t.Transform.Translation, t.Transform.Rotation
		if _, err := stmt.Exec(
			sessionID, next, static, t.Header.Seq, t.Header.Stamp.Sec, t.Header.Stamp.Nsec,
			t.Header.FrameID, t.ChildFrameID,
			tr.X, tr.Y, tr.Z, rot.X, rot.Y, rot.Z, rot.W,
		); err != nil {
			return fmt.Errorf("failed to insert transform %s -> %s: %w", t.Header.FrameID, t.ChildFrameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Sessions lists sessions oldest first with their transform counts.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT s.session_id, s.label, s.started_unix_nanos, COUNT(t.transform_id)
		FROM tf_sessions s
		LEFT JOIN tf_transforms t ON t.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_unix_nanos, s.session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var started int64
		if err := rows.Scan(&s.ID, &s.Label, &started, &s.Transforms); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = time.Unix(0, started).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Replay feeds every batch of the session into ing in recording order and
// returns the number of transforms replayed.
func (db *DB) Replay(sessionID string, ing Ingester) (int, error) {
	var exists int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tf_sessions WHERE session_id = ?`, sessionID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to look up session: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("replay %s: %w", sessionID, ErrUnknownSession)
	}

	rows, err := db.Query(`
		SELECT batch, is_static, seq, stamp_sec, stamp_nsec, frame_id, child_frame_id,
			tx, ty, tz, qx, qy, qz, qw
		FROM tf_transforms
		WHERE session_id = ?
		ORDER BY batch, transform_id`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to query transforms: %w", err)
	}
	defer rows.Close()

	var (
		count   int
		current int64 = -1
		static  bool
		pending msg.TFMessage
	)
	flush := func() {
		if len(pending.Transforms) > 0 {
			ing.Ingest(pending, static)
		}
		pending = msg.TFMessage{}
	}

	for rows.Next() {
		var (
			batch    int64
			isStatic bool
			t        msg.TransformStamped
			tr       = &t.Transform.Translation
			rot      = &t.Transform.Rotation
		)
		if err := rows.Scan(&batch, &isStatic, &t.Header.Seq, &t.Header.Stamp.Sec, &t.Header.Stamp.Nsec,
			&t.Header.FrameID, &t.ChildFrameID,
			&tr.X, &tr.Y, &tr.Z, &rot.X, &rot.Y, &rot.Z, &rot.W); err != nil {
			return count, fmt.Errorf("failed to scan transform: %w", err)
		}
		if batch != current {
			flush()
			current, static = batch, isStatic
		}
		pending.Transforms = append(pending.Transforms, t)
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to read transforms: %w", err)
	}
	flush()
	return count, nil
}
