package tfdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tfbuffer/internal/monitoring"
	"github.com/banshee-data/tfbuffer/internal/testutil"
	"github.com/banshee-data/tfbuffer/internal/tf"
	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tf.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// recorder captures replayed batches.
type recorder struct {
	batches []msg.TFMessage
	static  []bool
}

func (r *recorder) Ingest(batch msg.TFMessage, static bool) {
	r.batches = append(r.batches, batch)
	r.static = append(r.static, static)
}

func TestOpen_Migrates(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	_, err = db.Exec(`SELECT COUNT(*) FROM tf_transforms`)
	assert.Error(t, err, "tf_transforms should be dropped")
}

func TestStartSession(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := openTestDB(t, WithClock(timeutil.NewMockClock(start)))

	s, err := db.StartSession("bench run")
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)
	assert.Equal(t, "bench run", s.Label)
	assert.True(t, s.StartedAt.Equal(start))

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, sessions[0].ID)
	assert.True(t, sessions[0].StartedAt.Equal(start))
	assert.Zero(t, sessions[0].Transforms)
}

func TestRecordAndReplay(t *testing.T) {
	db := openTestDB(t)
	s, err := db.StartSession("robot")
	require.NoError(t, err)

	static := msg.TFMessage{Transforms: []msg.TransformStamped{
		testutil.Stamped("world", "item", 0, 1, 0, 0),
		testutil.Stamped("base_link", "camera", 0, 0.5, 0, 0),
	}}
	rotated := testutil.Stamped("world", "base_link", 1.25, 0, 1, 0)
	rotated.Header.Seq = 7
	rotated.Transform.Rotation = msg.Quaternion{X: 0, Y: 0, Z: 0.7071067811865476, W: 0.7071067811865476}
	dynamic := msg.TFMessage{Transforms: []msg.TransformStamped{rotated}}

	require.NoError(t, db.Record(s.ID, static, true))
	require.NoError(t, db.Record(s.ID, dynamic, false))

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].Transforms)

	var rec recorder
	n, err := db.Replay(s.ID, &rec)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, rec.batches, 2)
	assert.Equal(t, []bool{true, false}, rec.static)
	assert.Equal(t, static, rec.batches[0])
	assert.Equal(t, dynamic, rec.batches[1])
}

func TestReplayIntoBuffer(t *testing.T) {
	db := openTestDB(t)
	s, err := db.StartSession("")
	require.NoError(t, err)

	rec := &sessionRecorder{db: db, id: s.ID}
	testutil.BuildRobotTree(rec, 0)
	testutil.BuildRobotTree(rec, 2)
	require.NoError(t, rec.err)

	b := tf.NewBuffer()
	n, err := db.Replay(s.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	got, err := b.Lookup("world", "camera", msg.FromSeconds(1))
	require.NoError(t, err)
	testutil.AssertTransformNear(t, testutil.Translation(0.5, 1, 0), got.Transform, 1e-9)
}

func TestUnknownSession(t *testing.T) {
	db := openTestDB(t)

	err := db.Record("nope", msg.TFMessage{}, false)
	assert.ErrorIs(t, err, ErrUnknownSession)

	_, err = db.Replay("nope", &recorder{})
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestSessionsOrdered(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	db := openTestDB(t, WithClock(clock))

	first, err := db.StartSession("first")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := db.StartSession("second")
	require.NoError(t, err)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

// sessionRecorder adapts DB.Record to testutil.Ingester.
type sessionRecorder struct {
	db  *DB
	id  string
	err error
}

func (r *sessionRecorder) Ingest(batch msg.TFMessage, static bool) {
	if r.err == nil {
		r.err = r.db.Record(r.id, batch, static)
	}
}
