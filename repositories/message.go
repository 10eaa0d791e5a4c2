//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-api/domain"
	"chat-api/errors"
	"chat-api/projection"
	"chat-api/storage"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"
)

type IMessageRepository interface {
	Create(ctx context.Context, author, content string) (domain.ChatRecord, error)
	Get(ctx context.Context, key string) (domain.ChatRecord, error)
	UpdateContent(ctx context.Context, key, content string) (string, error)
	SoftDelete(ctx context.Context, key string) (string, error)
	HardDelete(ctx context.Context, key string) (string, error)
	GetRecent(ctx context.Context, count int, order domain.Order) ([]domain.ChatRecord, error)
	GetAfter(ctx context.Context, cursor Cursor, order domain.Order) ([]domain.ChatRecord, error)
}

// Limits bounds every scan the repository issues.
type Limits struct {
	// DefaultPageSize is used when a caller asks for zero or fewer records.
	DefaultPageSize int
	// MaxPageSize caps both most-recent listings and after-cursor listings.
	MaxPageSize int
	// LegacyScanWindow is how many of the newest records a LegacyIDCursor searches.
	LegacyScanWindow int
}

func DefaultLimits() Limits {
	return Limits{DefaultPageSize: 10, MaxPageSize: 100, LegacyScanWindow: 10}
}

type MessageRepository struct {
	store  storage.IRecordStore
	log    *slog.Logger
	limits Limits
	now    func() time.Time

	mu         sync.Mutex
	tableReady bool
}

func NewMessageRepository(store storage.IRecordStore, log *slog.Logger, limits Limits) *MessageRepository {
	return &MessageRepository{store: store, log: log, limits: limits, now: time.Now}
}

// Create stores a new record keyed by its creation time.
// Two records created within the same millisecond share a key and the later
// one overwrites the earlier one.
func (m *MessageRepository) Create(ctx context.Context, author, content string) (domain.ChatRecord, error) {
	if err := m.ensureTable(ctx); err != nil {
		return domain.ChatRecord{}, err
	}
	createdAt := m.now().UnixMilli()
	key, err := storage.EncodeKey(createdAt)
	if err != nil {
		return domain.ChatRecord{}, err
	}
	record := domain.ChatRecord{
		ID:              uuid.New().String(),
		Author:          author,
		Content:         content,
		CreatedAtMillis: createdAt,
		StorageKey:      key,
	}
	if _, err = m.store.Put(ctx, projection.ToEntity(record)); err != nil {
		return domain.ChatRecord{}, fmt.Errorf("create record: %w", err)
	}
	m.log.Debug("Record created", "key", key, "id", record.ID)
	return record, nil
}

func (m *MessageRepository) Get(ctx context.Context, key string) (domain.ChatRecord, error) {
	if key == "" {
		return domain.ChatRecord{}, fmt.Errorf("%w: no rowKey provided", errors.ErrInvalidArgument)
	}
	if err := m.ensureTable(ctx); err != nil {
		return domain.ChatRecord{}, err
	}
	entity, err := m.store.Get(ctx, key)
	if err != nil {
		return domain.ChatRecord{}, fmt.Errorf("get record: %w", err)
	}
	return projection.Project(entity)
}

// UpdateContent replaces the content of a record and returns its key.
func (m *MessageRepository) UpdateContent(ctx context.Context, key, content string) (string, error) {
	err := m.mutate(ctx, key, projection.PropertyContent, structpb.NewStringValue(content))
	if err != nil {
		return "", fmt.Errorf("update record: %w", err)
	}
	m.log.Debug("Record updated", "key", key)
	return key, nil
}

// SoftDelete flags a record as deleted. The record stays readable by key.
func (m *MessageRepository) SoftDelete(ctx context.Context, key string) (string, error) {
	err := m.mutate(ctx, key, projection.PropertyDeleted, structpb.NewBoolValue(true))
	if err != nil {
		return "", fmt.Errorf("soft delete record: %w", err)
	}
	m.log.Debug("Record flagged as deleted", "key", key)
	return key, nil
}

// HardDelete removes a record permanently.
func (m *MessageRepository) HardDelete(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: no rowKey provided", errors.ErrInvalidArgument)
	}
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("hard delete record: %w", err)
	}
	m.log.Info("Record purged", "key", key)
	return key, nil
}

// GetRecent returns the count most recent records. A count of zero or less
// means DefaultPageSize and a count above MaxPageSize is clamped to it.
// Since keys are inverted time, an ascending scan already yields newest first.
func (m *MessageRepository) GetRecent(ctx context.Context, count int, order domain.Order) ([]domain.ChatRecord, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = m.limits.DefaultPageSize
	}
	if count > m.limits.MaxPageSize {
		m.log.Debug(fmt.Sprintf("Maximum of %d records reached", m.limits.MaxPageSize), "requested", count)
		count = m.limits.MaxPageSize
	}
	entities, err := m.store.Scan(ctx, storage.ScanOptions{Limit: count})
	if err != nil {
		return nil, fmt.Errorf("get records failed: %w", err)
	}
	records, err := projection.ProjectAll(entities)
	if err != nil {
		return nil, err
	}
	if order == domain.OldestFirst {
		records = lo.Reverse(records)
	}
	return records, nil
}

// GetAfter returns the records strictly newer than the cursor, oldest first
// unless order asks for newest first. A cursor on the newest record yields an
// empty result.
func (m *MessageRepository) GetAfter(ctx context.Context, cursor Cursor, order domain.Order) ([]domain.ChatRecord, error) {
	if cursor == nil {
		return nil, fmt.Errorf("%w: no cursor provided", errors.ErrInvalidArgument)
	}
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	window, id, err := cursor.resolve(ctx, m)
	if err != nil {
		return nil, err
	}
	records, err := collectAfter(window, id)
	if err != nil {
		return nil, err
	}
	if order == domain.NewestFirst {
		records = lo.Reverse(records)
	}
	return lo.Ternary(records == nil, []domain.ChatRecord{}, records), nil
}

// mutate is the read-modify-write cycle shared by update and soft-delete.
// The write only succeeds if nobody wrote the record since it was read;
// otherwise ErrConflict is returned and nothing is retried.
func (m *MessageRepository) mutate(ctx context.Context, key, property string, value *structpb.Value) error {
	if key == "" {
		return fmt.Errorf("%w: no rowKey provided", errors.ErrInvalidArgument)
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	entity, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if _, err = projection.Project(entity); err != nil {
		return err
	}
	updated := entity.Clone()
	updated.Properties.Fields[property] = value
	_, err = m.store.CompareAndPut(ctx, updated)
	return err
}

// ensureTable runs the table check once per process. A failed check is not
// cached so the next call tries again.
func (m *MessageRepository) ensureTable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tableReady {
		return nil
	}
	if err := m.store.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}
	m.tableReady = true
	return nil
}
