package store

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/potstats/stats"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	db, err := Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func newRecord(resource, file, lang string, s stats.Stats) *Record {
	rec := &Record{ResourceID: resource, FileName: file, LanguageCode: lang}
	rec.SetStats(s)
	return rec
}

func TestRepositoryCreateFind(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			got, err := repo.FindOne(ctx, "app", "po/de.po")
			require.NoError(t, err)
			assert.Nil(t, got)

			lang := "de"
			rec := newRecord("app", "po/de.po", "de", stats.Stats{Translated: 3, Untranslated: 1, Merged: true})
			rec.Language = &lang
			require.NoError(t, repo.Create(ctx, rec))
			assert.NotEqual(t, uuid.Nil, rec.ID)

			got, err = repo.FindOne(ctx, "app", "po/de.po")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, rec.ID, got.ID)
			assert.Equal(t, 75, got.Percent)
			assert.Equal(t, 4, got.Total)
			assert.True(t, got.Merged)
			require.NotNil(t, got.Language)
			assert.Equal(t, "de", *got.Language)
			assert.False(t, got.UpdatedAt.IsZero())
		})
	}
}

func TestRepositoryCreateConflict(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, newRecord("app", "po/fr.po", "fr", stats.Stats{})))
			err := repo.Create(ctx, newRecord("app", "po/fr.po", "fr", stats.Stats{Translated: 1}))
			assert.ErrorIs(t, err, ErrConflict)

			// Same file name in another resource is a different key.
			assert.NoError(t, repo.Create(ctx, newRecord("other", "po/fr.po", "fr", stats.Stats{})))
		})
	}
}

func TestRepositorySave(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			rec := newRecord("app", "po/ru.po", "ru", stats.Stats{Untranslated: 2})
			require.NoError(t, repo.Create(ctx, rec))

			rec.SetStats(stats.Stats{Translated: 2, Merged: true})
			rec.Language = nil
			require.NoError(t, repo.Save(ctx, rec))

			got, err := repo.FindOne(ctx, "app", "po/ru.po")
			require.NoError(t, err)
			assert.Equal(t, 100, got.Percent)
			assert.Equal(t, 2, got.Translated)
			assert.Nil(t, got.Language)

			ghost := newRecord("app", "po/ja.po", "ja", stats.Stats{})
			ghost.ID = uuid.New()
			assert.ErrorIs(t, repo.Save(ctx, ghost), ErrNotFound)
		})
	}
}

func TestRepositoryListOrder(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, newRecord("app", "po/fr.po", "fr", stats.Stats{Translated: 4, Untranslated: 1})))
			require.NoError(t, repo.Create(ctx, newRecord("app", "po/ru.po", "ru", stats.Stats{Translated: 1, Untranslated: 4})))
			require.NoError(t, repo.Create(ctx, newRecord("app", "po/de.po", "de", stats.Stats{Translated: 8, Fuzzy: 2})))
			require.NoError(t, repo.Create(ctx, newRecord("other", "po/es.po", "es", stats.Stats{Translated: 1})))

			recs, err := repo.ListOrderedByCompleteness(ctx, "app")
			require.NoError(t, err)
			var langs []string
			for _, r := range recs {
				langs = append(langs, r.LanguageCode)
			}
			assert.Equal(t, []string{"de", "fr", "ru"}, langs)

			require.NoError(t, repo.DeleteAllFor(ctx, "app"))
			recs, err = repo.ListOrderedByCompleteness(ctx, "app")
			require.NoError(t, err)
			assert.Empty(t, recs)

			recs, err = repo.ListOrderedByCompleteness(ctx, "other")
			require.NoError(t, err)
			assert.Len(t, recs, 1)
		})
	}
}

func TestMemoryConcurrentCreate(t *testing.T) {
	repo := NewMemory()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		conflicts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(context.Background(), newRecord("app", "po/de.po", "de", stats.Stats{}))
			if err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 15, conflicts)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	rec := newRecord("app", "po/de.po", "de", stats.Stats{Translated: 1})
	require.NoError(t, repo.Create(ctx, rec))
	rec.Translated = 99

	got, err := repo.FindOne(ctx, "app", "po/de.po")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Translated)
}

func TestSortByCompleteness(t *testing.T) {
	recs := []*Record{
		{LanguageCode: "ru", FileName: "b", Percent: 80},
		{LanguageCode: "de", FileName: "a", Percent: 20},
		{LanguageCode: "fr", FileName: "c", Percent: 80},
		{LanguageCode: "fr", FileName: "a", Percent: 80},
	}
	SortByCompleteness(recs)
	var got []string
	for _, r := range recs {
		got = append(got, r.LanguageCode+"/"+r.FileName)
	}
	assert.Equal(t, []string{"fr/a", "fr/c", "ru/b", "de/a"}, got)
}

func TestPlaceholderFormatPerDriver(t *testing.T) {
	tests := map[string]string{
		"sqlite3":  "SELECT id FROM stat_records WHERE resource_id = ?",
		"postgres": "SELECT id FROM stat_records WHERE resource_id = $1",
	}
	for driver, want := range tests {
		format, err := placeholderFormat(driver)
		require.NoError(t, err, driver)
		query, _, err := sq.StatementBuilder.PlaceholderFormat(format).
			Select("id").From("stat_records").Where(sq.Eq{"resource_id": "app"}).ToSql()
		require.NoError(t, err, driver)
		assert.Equal(t, want, query, driver)
	}

	_, err := placeholderFormat("mysql")
	assert.Error(t, err)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}

func TestOpenMigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "stats.db")
	db, err := Open(ctx, "sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, db.Create(ctx, newRecord("app", "po/de.po", "de", stats.Stats{})))
	require.NoError(t, db.Close())

	db, err = Open(ctx, "sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.FindOne(ctx, "app", "po/de.po")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCachedFallsThroughWithoutRedis(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	repo := NewCached(NewMemory(), client, 0, zerolog.Nop())
	require.NoError(t, repo.Create(ctx, newRecord("app", "po/de.po", "de", stats.Stats{Translated: 1})))

	rec, err := repo.FindOne(ctx, "app", "po/de.po")
	require.NoError(t, err)
	rec.SetStats(stats.Stats{Untranslated: 1})
	require.NoError(t, repo.Save(ctx, rec))

	recs, err := repo.ListOrderedByCompleteness(ctx, "app")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0, recs[0].Percent)

	require.NoError(t, repo.DeleteAllFor(ctx, "app"))
	recs, err = repo.ListOrderedByCompleteness(ctx, "app")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// memoryRedis answers the commands the listing cache issues.
type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string]string)}
}

func (r *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (r *memoryRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		r.data[key] = string(v)
	case string:
		r.data[key] = v
	}
	r.sets++
	return redis.NewStatusResult("OK", nil)
}

func (r *memoryRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, _ := strconv.ParseInt(r.data[key], 10, 64)
	n++
	r.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

// writeDuringList runs write once, after the wrapped listing was loaded
// and before the caller gets it back.
type writeDuringList struct {
	Repository
	write func()
}

func (w *writeDuringList) ListOrderedByCompleteness(ctx context.Context, resourceID string) ([]*Record, error) {
	recs, err := w.Repository.ListOrderedByCompleteness(ctx, resourceID)
	if w.write != nil {
		write := w.write
		w.write = nil
		write()
	}
	return recs, err
}

func TestCachedServesListingUntilWrite(t *testing.T) {
	ctx := context.Background()
	rdb := newMemoryRedis()
	repo := NewCached(NewMemory(), rdb, 0, zerolog.Nop())
	require.NoError(t, repo.Create(ctx, newRecord("app", "po/de.po", "de", stats.Stats{Translated: 1, Untranslated: 1})))

	for i := 0; i < 3; i++ {
		recs, err := repo.ListOrderedByCompleteness(ctx, "app")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, 50, recs[0].Percent)
	}
	assert.Equal(t, 1, rdb.sets, "listing should be loaded once")

	require.NoError(t, repo.Create(ctx, newRecord("app", "po/fr.po", "fr", stats.Stats{Translated: 2})))
	recs, err := repo.ListOrderedByCompleteness(ctx, "app")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "fr", recs[0].LanguageCode)
}

func TestCachedWriteDuringLoadIsNotMasked(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Create(ctx, newRecord("app", "po/de.po", "de", stats.Stats{Translated: 1, Untranslated: 1})))

	slow := &writeDuringList{Repository: mem}
	repo := NewCached(slow, newMemoryRedis(), time.Hour, zerolog.Nop())
	slow.write = func() {
		rec, err := repo.FindOne(ctx, "app", "po/de.po")
		require.NoError(t, err)
		rec.SetStats(stats.Stats{Translated: 2})
		require.NoError(t, repo.Save(ctx, rec))
	}

	// This reader loaded the listing before the save landed.
	recs, err := repo.ListOrderedByCompleteness(ctx, "app")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 50, recs[0].Percent)

	recs, err = repo.ListOrderedByCompleteness(ctx, "app")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 100, recs[0].Percent)
}

func TestOpenRedisBadURL(t *testing.T) {
	_, err := OpenRedis(context.Background(), "not-a-url")
	assert.Error(t, err)
}
