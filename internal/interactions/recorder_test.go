// internal/interactions/recorder_test.go
package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-assistant/internal/common/config"
	"banking-assistant/internal/common/database"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/models"
)

func testRecord(sessionID, question string) models.InteractionRecord {
	return NewRecord(sessionID, TypeQuery, map[string]interface{}{"question": question})
}

// ==========================
// Redis backend
// ==========================

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, database.NewRedisFromClient(client)
}

func TestRedisRecorder_CapsPerSession(t *testing.T) {
	mr, client := newMiniredisClient(t)
	rec := NewRedisRecorder(client, 3)
	ctx := context.Background()

	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		require.NoError(t, rec.Record(ctx, testRecord("s1", q)))
	}

	items, err := mr.List("interactions:s1")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.True(t, mr.TTL("interactions:s1") > 0)

	recent, err := rec.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "q5", recent[0].Payload["question"])
	assert.Equal(t, "q3", recent[2].Payload["question"])
}

func TestRedisRecorder_StoresJSON(t *testing.T) {
	mr, client := newMiniredisClient(t)
	rec := testRecord("s2", "where is the atm")
	require.NoError(t, NewRedisRecorder(client, 10).Record(context.Background(), rec))

	items, err := mr.List("interactions:s2")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var stored models.InteractionRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &stored))
	assert.Equal(t, rec.ID, stored.ID)
	assert.Equal(t, TypeQuery, stored.Type)
}

func TestRedisRecorder_Error(t *testing.T) {
	mr, client := newMiniredisClient(t)
	mr.Close()

	err := NewRedisRecorder(client, 10).Record(context.Background(), testRecord("s3", "q"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInteractionRecordFailed))
}

func TestRedisRecorder_RecentError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLRange("interactions:s4", 0, 9).SetErr(errors.New("connection refused"))

	_, err := NewRedisRecorder(database.NewRedisFromClient(db), 10).Recent(context.Background(), "s4", 10)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRecorder_RecentSkipsCorruptEntries(t *testing.T) {
	db, mock := redismock.NewClientMock()
	good, err := json.Marshal(testRecord("s5", "q"))
	require.NoError(t, err)
	mock.ExpectLRange("interactions:s5", 0, -1).SetVal([]string{"not json", string(good)})

	recent, err := NewRedisRecorder(database.NewRedisFromClient(db), 10).Recent(context.Background(), "s5", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "interactions:abc", SessionKey("abc"))
	assert.Equal(t, "interactions:anonymous", SessionKey(""))
}

// ==========================
// Postgres backend
// ==========================

func TestPostgresRecorder_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := testRecord("s1", "rates")
	mock.ExpectExec(`INSERT INTO interactions \(id, session_id, type, payload, created_at\)`).
		WithArgs(rec.ID, "s1", TypeQuery, sqlmock.AnyArg(), rec.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pg, err := NewPostgresRecorder(database.NewPostgresFromDB(db), "")
	require.NoError(t, err)
	require.NoError(t, pg.Record(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO chat_log`).WillReturnError(errors.New("db down"))

	pg, err := NewPostgresRecorder(database.NewPostgresFromDB(db), "chat_log")
	require.NoError(t, err)
	err = pg.Record(context.Background(), testRecord("s1", "q"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInteractionRecordFailed))
}

func TestNewPostgresRecorder_RejectsBadTableName(t *testing.T) {
	_, err := NewPostgresRecorder(nil, "interactions; DROP TABLE x")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	rec, err := NewFromConfig(ctx, config.InteractionsConfig{Backend: BackendNone}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, NopRecorder{}, rec)

	_, err = NewFromConfig(ctx, config.InteractionsConfig{Backend: BackendRedis}, nil, nil)
	assert.Error(t, err)

	_, err = NewFromConfig(ctx, config.InteractionsConfig{Backend: "kafka"}, nil, nil)
	assert.Error(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS interactions`).WillReturnResult(sqlmock.NewResult(0, 0))

	rec, err = NewFromConfig(ctx, config.InteractionsConfig{Backend: BackendPostgres}, nil, database.NewPostgresFromDB(db))
	require.NoError(t, err)
	assert.IsType(t, &PostgresRecorder{}, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Async recorder
// ==========================

type blockingRecorder struct {
	mu      sync.Mutex
	release chan struct{}
	got     []models.InteractionRecord
	err     error
}

func (b *blockingRecorder) Record(ctx context.Context, rec models.InteractionRecord) error {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, rec)
	return b.err
}

func (b *blockingRecorder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.got)
}

func TestAsyncRecorder_WritesInBackground(t *testing.T) {
	next := &blockingRecorder{}
	a := NewAsyncRecorder(next, 10, logger.NewTestLogger(t))

	for i := 0; i < 5; i++ {
		assert.True(t, a.Submit(testRecord("s", "q")))
	}
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 5, next.count())
	assert.False(t, a.Submit(testRecord("s", "late")), "closed recorder rejects records")
}

func TestAsyncRecorder_DropsWhenFull(t *testing.T) {
	next := &blockingRecorder{release: make(chan struct{})}
	a := NewAsyncRecorder(next, 1, logger.NewTestLogger(t))

	// the writer takes one record and blocks on it; the buffer holds one more
	require.True(t, a.Submit(testRecord("s", "1")))
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, a.Submit(testRecord("s", "2")))

	assert.False(t, a.Submit(testRecord("s", "3")))
	assert.Equal(t, uint64(1), a.Dropped())

	close(next.release)
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 2, next.count())
}

func TestAsyncRecorder_ErrorsAreSwallowed(t *testing.T) {
	next := &blockingRecorder{err: errors.New("INTERACTION_RECORD_FAILED")}
	a := NewAsyncRecorder(next, 4, logger.NewTestLogger(t))

	assert.NoError(t, a.Record(context.Background(), testRecord("s", "q")))
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 1, next.count())
}
