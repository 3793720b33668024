package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/message"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.StoreConfig{Path: filepath.Join(t.TempDir(), "records")}, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func envelope(collection, id string, lseq *uint64, value string) message.Envelope {
	var v *schema.Json
	if value != "" {
		j, _ := schema.NewJson([]byte(value))
		v = &j
	}
	return message.Envelope{
		Collection:   collection,
		Subscription: "tail",
		Cursor:       7,
		Record:       schema.Record{ID: id, Type: "post", Lseq: lseq, Value: v},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(&config.StoreConfig{}, log.Discard())
	assert.Error(t, err)
}

func TestDeliverAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "store", s.Name())
	require.NoError(t, s.Deliver(ctx, envelope("default", "a", schema.Uint64(1), `{"v":1}`)))

	rec, err := s.Get("default", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.ID)
	assert.Equal(t, `{"v":1}`, rec.Value.Get())

	_, err = s.Get("default", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get("other", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeliverKeepsNewestLseq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Deliver(ctx, envelope("default", "a", schema.Uint64(5), `"five"`)))
	require.NoError(t, s.Deliver(ctx, envelope("default", "a", schema.Uint64(3), `"three"`)))

	rec, err := s.Get("default", "a")
	require.NoError(t, err)
	assert.Equal(t, `"five"`, rec.Value.Get())

	require.NoError(t, s.Deliver(ctx, envelope("default", "a", schema.Uint64(5), `"five again"`)))
	rec, err = s.Get("default", "a")
	require.NoError(t, err)
	assert.Equal(t, `"five again"`, rec.Value.Get(), "equal lseq replaces")

	require.NoError(t, s.Deliver(ctx, envelope("default", "a", nil, `"unsequenced"`)))
	rec, err = s.Get("default", "a")
	require.NoError(t, err)
	assert.Equal(t, `"unsequenced"`, rec.Value.Get())
}

func TestCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Cursor("default", "tail")
	require.NoError(t, err)
	assert.False(t, ok)

	env := envelope("default", "a", schema.Uint64(2), `1`)
	env.Cursor = 9
	require.NoError(t, s.Deliver(ctx, env))

	cursor, ok, err := s.Cursor("default", "tail")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), cursor)

	stale := envelope("default", "a", schema.Uint64(1), `0`)
	stale.Cursor = 10
	require.NoError(t, s.Deliver(ctx, stale))
	cursor, _, err = s.Cursor("default", "tail")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cursor, "stale records still advance the cursor")

	query := envelope("default", "b", nil, `2`)
	query.Subscription = ""
	query.Cursor = 0
	require.NoError(t, s.Deliver(ctx, query))
	cursor, _, err = s.Cursor("default", "tail")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cursor)
}

func TestScan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Deliver(ctx, envelope("default", id, nil, `true`)))
	}
	require.NoError(t, s.Deliver(ctx, envelope("default2", "z", nil, `true`)))
	require.NoError(t, s.Deliver(ctx, envelope("defaul", "y", nil, `true`)))

	var ids []string
	require.NoError(t, s.Scan("default", func(rec schema.Record) bool {
		ids = append(ids, rec.ID)
		return true
	}))
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	ids = nil
	require.NoError(t, s.Scan("default", func(rec schema.Record) bool {
		ids = append(ids, rec.ID)
		return len(ids) < 2
	}))
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := &config.StoreConfig{Path: filepath.Join(t.TempDir(), "records"), Sync: true}

	s, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Deliver(context.Background(), envelope("default", "a", schema.Uint64(1), `{}`)))
	require.NoError(t, s.Close())

	s, err = Open(cfg, log.Discard())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec, err := s.Get("default", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.ID)
}
