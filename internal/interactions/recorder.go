// internal/interactions/recorder.go
package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"banking-assistant/internal/common/config"
	"banking-assistant/internal/common/database"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/models"
)

// Record types.
const (
	TypeQuery = "query"
	TypeChat  = "chat"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"

	redisKeyPrefix = "interactions:"
	redisKeyTTL    = 30 * 24 * time.Hour
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Recorder stores interaction records.
type Recorder interface {
	Record(ctx context.Context, rec models.InteractionRecord) error
}

// NewRecord stamps a record with a fresh ID and the current time.
func NewRecord(sessionID, recordType string, payload map[string]interface{}) models.InteractionRecord {
	return models.InteractionRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      recordType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NopRecorder discards records.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.InteractionRecord) error { return nil }

// RedisRecorder keeps a capped, newest-first list of records per session.
type RedisRecorder struct {
	client        *database.RedisClient
	maxPerSession int
	ttl           time.Duration
}

func NewRedisRecorder(client *database.RedisClient, maxPerSession int) *RedisRecorder {
	return &RedisRecorder{client: client, maxPerSession: maxPerSession, ttl: redisKeyTTL}
}

// SessionKey is the Redis list holding a session's records.
func SessionKey(sessionID string) string {
	if sessionID == "" {
		sessionID = "anonymous"
	}
	return redisKeyPrefix + sessionID
}

func (r *RedisRecorder) Record(ctx context.Context, rec models.InteractionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.NewInteractionRecordFailedError(err)
	}
	if err := r.client.PushCapped(ctx, SessionKey(rec.SessionID), data, r.maxPerSession, r.ttl); err != nil {
		return apperrors.NewInteractionRecordFailedError(err)
	}
	return nil
}

// Recent returns up to limit records of a session, newest first.
func (r *RedisRecorder) Recent(ctx context.Context, sessionID string, limit int) ([]models.InteractionRecord, error) {
	items, err := r.client.Range(ctx, SessionKey(sessionID), limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.InteractionRecord, 0, len(items))
	for _, item := range items {
		var rec models.InteractionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// PostgresRecorder inserts one row per record.
type PostgresRecorder struct {
	db    *database.PostgresClient
	table string
}

func NewPostgresRecorder(db *database.PostgresClient, table string) (*PostgresRecorder, error) {
	if table == "" {
		table = "interactions"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid interactions table name %q", table)
	}
	return &PostgresRecorder{db: db, table: table}, nil
}

// EnsureSchema creates the table when it does not exist.
func (p *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, p.table))
	return err
}

func (p *PostgresRecorder) Record(ctx context.Context, rec models.InteractionRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return apperrors.NewInteractionRecordFailedError(err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, session_id, type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`, p.table)
	if _, err := p.db.Exec(ctx, query, rec.ID, rec.SessionID, rec.Type, payload, rec.Timestamp); err != nil {
		return apperrors.NewInteractionRecordFailedError(err)
	}
	return nil
}

// NewFromConfig picks the backend named in config. Clients the backend does
// not need may be nil.
func NewFromConfig(ctx context.Context, cfg config.InteractionsConfig, redisClient *database.RedisClient, pg *database.PostgresClient) (Recorder, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("interactions backend redis needs a redis client")
		}
		return NewRedisRecorder(redisClient, cfg.MaxPerSession), nil
	case BackendPostgres:
		if pg == nil {
			return nil, fmt.Errorf("interactions backend postgres needs a postgres client")
		}
		rec, err := NewPostgresRecorder(pg, cfg.Table)
		if err != nil {
			return nil, err
		}
		if err := rec.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("create interactions table: %w", err)
		}
		return rec, nil
	case BackendNone, "":
		return NopRecorder{}, nil
	default:
		return nil, fmt.Errorf("unknown interactions backend %q", cfg.Backend)
	}
}
