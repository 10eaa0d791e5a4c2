package repositories

import (
	"chat-api/domain"
	"chat-api/errors"
	"chat-api/storage"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, limits Limits) (*MessageRepository, *storage.BadgerStore) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := storage.NewBadgerStore(db, log, "chatdev")
	return NewMessageRepository(store, log, limits), store
}

// at makes the repository clock return the given epoch milliseconds.
func at(repository *MessageRepository, millis int64) {
	repository.now = func() time.Time { return time.UnixMilli(millis) }
}

func createAt(t *testing.T, repository *MessageRepository, millis int64, author, content string) domain.ChatRecord {
	t.Helper()
	at(repository, millis)
	record, err := repository.Create(context.Background(), author, content)
	require.NoError(t, err)
	return record
}

func Test_GetRecent_Returns_Newest_First(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	createAt(t, repository, 100, "alice", "hi")
	createAt(t, repository, 200, "bob", "yo")

	records, err := repository.GetRecent(ctx, 2, domain.NewestFirst)
	req.NoError(err)
	req.Len(records, 2)
	req.Equal("yo", records[0].Content)
	req.Equal("bob", records[0].Author)
	req.Equal("hi", records[1].Content)
	req.Equal("alice", records[1].Author)
}

func Test_GetRecent_Returns_The_N_Largest_Timestamps(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		createAt(t, repository, int64(i*1000), fmt.Sprintf("user_%d", i), fmt.Sprintf("Message %d", i))
	}

	records, err := repository.GetRecent(ctx, 3, domain.NewestFirst)
	req.NoError(err)
	req.Len(records, 3)
	req.Equal([]int64{8000, 7000, 6000}, []int64{
		records[0].CreatedAtMillis, records[1].CreatedAtMillis, records[2].CreatedAtMillis,
	})

	oldestFirst, err := repository.GetRecent(ctx, 3, domain.OldestFirst)
	req.NoError(err)
	req.Equal("user_6", oldestFirst[0].Author)
	req.Equal("user_8", oldestFirst[2].Author)
}

func Test_GetRecent_Applies_Default_And_Max_Page_Size(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, Limits{DefaultPageSize: 2, MaxPageSize: 4, LegacyScanWindow: 10})
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		createAt(t, repository, int64(i), "user", fmt.Sprintf("Message %d", i))
	}

	records, err := repository.GetRecent(ctx, 0, domain.NewestFirst)
	req.NoError(err)
	req.Len(records, 2)

	records, err = repository.GetRecent(ctx, 50, domain.NewestFirst)
	req.NoError(err)
	req.Len(records, 4)
	req.Equal("Message 6", records[0].Content)
}

func Test_GetRecent_Empty_Table(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())

	records, err := repository.GetRecent(context.Background(), 5, domain.NewestFirst)
	req.NoError(err)
	req.Empty(records)
}

func Test_Create_Then_Get(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())

	created := createAt(t, repository, 1_700_000_000_000, "Alice", "this message will self destruct in 5 seconds")
	req.NotEmpty(created.ID)
	req.False(created.Deleted)

	fetched, err := repository.Get(context.Background(), created.StorageKey)
	req.NoError(err)
	req.Equal(created, fetched)
}

func Test_Get_Unknown_Key(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())

	_, err := repository.Get(context.Background(), "0000253402300799999")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.Get(context.Background(), "")
	req.ErrorIs(err, errors.ErrInvalidArgument)
}

func Test_SoftDelete_Keeps_Record(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	created := createAt(t, repository, 42, "Bob", "oops")
	key, err := repository.SoftDelete(ctx, created.StorageKey)
	req.NoError(err)
	req.Equal(created.StorageKey, key)

	fetched, err := repository.Get(ctx, key)
	req.NoError(err)
	req.True(fetched.Deleted)
	fetched.Deleted = false
	req.Equal(created, fetched)
}

func Test_UpdateContent(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	created := createAt(t, repository, 42, "Bob", "helo")
	key, err := repository.UpdateContent(ctx, created.StorageKey, "hello")
	req.NoError(err)

	fetched, err := repository.Get(ctx, key)
	req.NoError(err)
	req.Equal("hello", fetched.Content)
	req.Equal(created.ID, fetched.ID)
	req.Equal(created.CreatedAtMillis, fetched.CreatedAtMillis)
	req.Equal(created.StorageKey, fetched.StorageKey)
	req.Equal(created.Author, fetched.Author)
}

func Test_Mutations_On_Missing_Record(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	_, err := repository.UpdateContent(ctx, "0000253402300799999", "x")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repository.SoftDelete(ctx, "0000253402300799999")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repository.HardDelete(ctx, "0000253402300799999")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repository.UpdateContent(ctx, "", "x")
	req.ErrorIs(err, errors.ErrInvalidArgument)
}

func Test_UpdateContent_Detects_Concurrent_Write(t *testing.T) {
	req := require.New(t)
	repository, store := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	created := createAt(t, repository, 42, "Bob", "first")
	stale, err := store.Get(ctx, created.StorageKey)
	req.NoError(err)

	_, err = repository.UpdateContent(ctx, created.StorageKey, "second")
	req.NoError(err)

	// a writer still holding the old revision loses
	_, err = store.CompareAndPut(ctx, stale)
	req.ErrorIs(err, errors.ErrConflict)

	fetched, err := repository.Get(ctx, created.StorageKey)
	req.NoError(err)
	req.Equal("second", fetched.Content)
}

func Test_HardDelete_Removes_Record(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	created := createAt(t, repository, 42, "Bob", "bye")
	key, err := repository.HardDelete(ctx, created.StorageKey)
	req.NoError(err)
	req.Equal(created.StorageKey, key)

	_, err = repository.Get(ctx, key)
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Create_Same_Millisecond_Overwrites(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	first := createAt(t, repository, 500, "Alice", "first")
	second := createAt(t, repository, 500, "Bob", "second")
	req.Equal(first.StorageKey, second.StorageKey)

	records, err := repository.GetRecent(ctx, 10, domain.NewestFirst)
	req.NoError(err)
	req.Len(records, 1)
	req.Equal(second, records[0])
}

func Test_GetAfter_KeyCursor(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	var created []domain.ChatRecord
	for i := 1; i <= 5; i++ {
		created = append(created, createAt(t, repository, int64(i*100), fmt.Sprintf("user_%d", i), "msg"))
	}

	// cursor on the newest record: nothing newer
	records, err := repository.GetAfter(ctx, KeyCursor(created[4].StorageKey), domain.OldestFirst)
	req.NoError(err)
	req.NotNil(records)
	req.Empty(records)

	// cursor on the oldest record: every newer record, oldest first
	records, err = repository.GetAfter(ctx, KeyCursor(created[0].StorageKey), domain.OldestFirst)
	req.NoError(err)
	req.Equal(created[1:], records)

	// same window, newest first
	records, err = repository.GetAfter(ctx, KeyCursor(created[2].StorageKey), domain.NewestFirst)
	req.NoError(err)
	req.Equal([]domain.ChatRecord{created[4], created[3]}, records)
}

func Test_GetAfter_KeyCursor_Pages_Forward(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, Limits{DefaultPageSize: 10, MaxPageSize: 3, LegacyScanWindow: 10})
	ctx := context.Background()

	var created []domain.ChatRecord
	for i := 1; i <= 7; i++ {
		created = append(created, createAt(t, repository, int64(i*100), fmt.Sprintf("user_%d", i), "msg"))
	}

	page1, err := repository.GetAfter(ctx, KeyCursor(created[0].StorageKey), domain.OldestFirst)
	req.NoError(err)
	req.Equal(created[1:4], page1)

	page2, err := repository.GetAfter(ctx, KeyCursor(page1[len(page1)-1].StorageKey), domain.OldestFirst)
	req.NoError(err)
	req.Equal(created[4:7], page2)

	page3, err := repository.GetAfter(ctx, KeyCursor(page2[len(page2)-1].StorageKey), domain.OldestFirst)
	req.NoError(err)
	req.Empty(page3)
}

func Test_GetAfter_KeyCursor_Errors(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, DefaultLimits())
	ctx := context.Background()

	_, err := repository.GetAfter(ctx, KeyCursor(""), domain.OldestFirst)
	req.ErrorIs(err, errors.ErrInvalidArgument)

	_, err = repository.GetAfter(ctx, KeyCursor("0000253402300799999"), domain.OldestFirst)
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetAfter(ctx, nil, domain.OldestFirst)
	req.ErrorIs(err, errors.ErrInvalidArgument)
}

func Test_GetAfter_LegacyIDCursor(t *testing.T) {
	req := require.New(t)
	repository, _ := newTestRepository(t, Limits{DefaultPageSize: 10, MaxPageSize: 100, LegacyScanWindow: 3})
	ctx := context.Background()

	var created []domain.ChatRecord
	for i := 1; i <= 5; i++ {
		created = append(created, createAt(t, repository, int64(i*100), fmt.Sprintf("user_%d", i), "msg"))
	}

	records, err := repository.GetAfter(ctx, LegacyIDCursor{ID: created[2].ID}, domain.OldestFirst)
	req.NoError(err)
	req.Equal(created[3:], records)

	// outside the window of the three newest records
	_, err = repository.GetAfter(ctx, LegacyIDCursor{ID: created[1].ID}, domain.OldestFirst)
	req.ErrorIs(err, errors.ErrNotFound)

	// an explicit window reaches further back
	records, err = repository.GetAfter(ctx, LegacyIDCursor{ID: created[1].ID, Window: 5}, domain.OldestFirst)
	req.NoError(err)
	req.Equal(created[2:], records)

	_, err = repository.GetAfter(ctx, LegacyIDCursor{}, domain.OldestFirst)
	req.ErrorIs(err, errors.ErrInvalidArgument)
}
