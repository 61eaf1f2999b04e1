package transcript

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"digital-twin-go/internal/types"
)

func exchange(session string, i int) Exchange {
	return Exchange{
		ID:        fmt.Sprintf("ex-%d", i),
		SessionID: session,
		Question:  fmt.Sprintf("question %d", i),
		Answer:    fmt.Sprintf("answer %d", i),
		Outcome:   types.OutcomeAnswered,
		Sources:   []types.Source{{Title: "Projects: Ledger", Type: types.ChunkProjects, Score: 0.4}},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newRedisStore(t *testing.T, ttl time.Duration, maxEntries int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, "test:session:", ttl, maxEntries)
	require.NoError(t, err)
	return store, mr
}

// storeContract 两种实现共享的行为断言
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	history, err := store.History(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, exchange("s1", i)))
	}
	require.NoError(t, store.Append(ctx, exchange("s2", 9)))

	history, err = store.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "question 0", history[0].Question)
	assert.Equal(t, "question 2", history[2].Question)
	assert.Equal(t, exchange("s1", 1), history[1])

	history, err = store.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "question 1", history[0].Question)

	assert.ErrorIs(t, store.Append(ctx, Exchange{Question: "q"}), ErrEmptySession)

	require.NoError(t, store.Clear(ctx, "s1"))
	require.NoError(t, store.Clear(ctx, "s1"))
	history, err = store.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = store.History(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(0))
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, 0, 0)
	storeContract(t, store)
}

func TestMemoryStoreMaxEntries(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, exchange("s", i)))
	}
	history, err := store.History(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "question 3", history[0].Question)
	assert.Equal(t, "question 4", history[1].Question)
}

func TestRedisStoreTrimAndTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour, 2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, exchange("s", i)))
	}

	history, err := store.History(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "question 2", history[0].Question)

	assert.True(t, mr.Exists("test:session:s"))
	assert.Equal(t, time.Hour, mr.TTL("test:session:s"))

	mr.FastForward(2 * time.Hour)
	history, err = store.History(ctx, "s", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	store, mr := newRedisStore(t, 0, 0)
	_, err := mr.RPush("test:session:bad", "{not json")
	require.NoError(t, err)

	_, err = store.History(context.Background(), "bad", 0)
	assert.Error(t, err)
}

func TestNewRedisStoreDefaults(t *testing.T) {
	_, err := NewRedisStore(nil, "", 0, 0)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "app:twin:session:abc", store.buildKey("abc"))
}

func TestMemoryStoreSessionTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0, WithSessionTTL(time.Hour))
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, exchange("old", 0)))
	now = now.Add(30 * time.Minute)
	require.NoError(t, store.Append(ctx, exchange("fresh", 1)))

	now = now.Add(45 * time.Minute)
	history, err := store.History(ctx, "old", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	history, err = store.History(ctx, "fresh", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// 写入时清理过期会话
	require.NoError(t, store.Append(ctx, exchange("new", 2)))
	assert.Equal(t, 2, store.Len())

	// 过期后再写入从空记录开始
	now = now.Add(2 * time.Hour)
	require.NoError(t, store.Append(ctx, exchange("fresh", 3)))
	history, err = store.History(ctx, "fresh", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "question 3", history[0].Question)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreMaxSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(100, WithMaxSessions(100))
	store.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		require.NoError(t, store.Append(ctx, exchange(fmt.Sprintf("s-%d", i), i)))
	}
	assert.Equal(t, 100, store.Len())

	history, err := store.History(ctx, "s-0", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	history, err = store.History(ctx, "s-4999", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRedisStoreRecordsFailures(t *testing.T) {
	store, mr := newRedisStore(t, 0, 0)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ctx, parent := tp.Tracer("test").Start(context.Background(), "ask")

	require.NoError(t, store.Append(ctx, exchange("s", 0)))
	mr.Close()
	assert.Error(t, store.Append(ctx, exchange("s", 1)))
	parent.End()

	var appends []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "transcript.Redis.Append" {
			appends = append(appends, s)
		}
	}
	require.Len(t, appends, 2)
	assert.NotEqual(t, codes.Error, appends[0].Status().Code)
	assert.Equal(t, codes.Error, appends[1].Status().Code)

	attrs := map[string]string{}
	for _, kv := range appends[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "redis", attrs["error.type"])
	assert.Equal(t, "test:session:s", attrs["redis.key"])
}
