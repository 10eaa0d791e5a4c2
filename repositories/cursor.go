package repositories

import (
	"chat-api/domain"
	"chat-api/errors"
	"chat-api/projection"
	"chat-api/storage"
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Cursor identifies the record a "records after" listing starts from.
// Implementations resolve the cursor to a window of entities, in ascending key
// order, that contains the cursor record, plus the cursor's logical id.
type Cursor interface {
	resolve(ctx context.Context, r *MessageRepository) (window []storage.Entity, id string, err error)
}

// KeyCursor resolves the cursor by storage key. The window is the cursor record
// and up to MaxPageSize records newer than it, closest first, so a client can
// page forward by passing the newest key it received.
type KeyCursor string

func (c KeyCursor) resolve(ctx context.Context, r *MessageRepository) ([]storage.Entity, string, error) {
	key := string(c)
	if key == "" {
		return nil, "", fmt.Errorf("%w: no rowKey provided", errors.ErrInvalidArgument)
	}
	entity, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("resolve cursor %s: %w", key, err)
	}
	record, err := projection.Project(entity)
	if err != nil {
		return nil, "", err
	}

	// keys at or below the cursor key are records created at or after it
	window, err := r.store.Scan(ctx, storage.ScanOptions{
		To:      key,
		Reverse: true,
		Limit:   r.limits.MaxPageSize + 1,
	})
	if err != nil {
		return nil, "", fmt.Errorf("scan after %s: %w", key, err)
	}
	return lo.Reverse(window), record.ID, nil
}

// LegacyIDCursor resolves the cursor by the record's logical id, searched
// among the newest Window records only (LegacyScanWindow when zero).
//
// Deprecated: an id older than the window is reported as not found even when
// the record exists. Use KeyCursor.
type LegacyIDCursor struct {
	ID     string
	Window int
}

func (c LegacyIDCursor) resolve(ctx context.Context, r *MessageRepository) ([]storage.Entity, string, error) {
	if c.ID == "" {
		return nil, "", fmt.Errorf("%w: no id provided", errors.ErrInvalidArgument)
	}
	size := c.Window
	if size <= 0 {
		size = r.limits.LegacyScanWindow
	}
	window, err := r.store.Scan(ctx, storage.ScanOptions{Limit: size})
	if err != nil {
		return nil, "", fmt.Errorf("scan legacy window: %w", err)
	}
	_, found := lo.Find(window, func(entity storage.Entity) bool {
		id := entity.Properties.GetFields()[projection.PropertyID]
		return id != nil && id.GetStringValue() == c.ID
	})
	if !found {
		return nil, "", fmt.Errorf("%w: id %s not within the newest %d records", errors.ErrNotFound, c.ID, size)
	}
	return window, c.ID, nil
}

// collectAfter walks the ascending-key window from its last entry (the oldest
// record) to its first (the newest) and keeps every record met after the one
// carrying id. The result is oldest first.
func collectAfter(window []storage.Entity, id string) ([]domain.ChatRecord, error) {
	records, err := projection.ProjectAll(window)
	if err != nil {
		return nil, err
	}
	var collected []domain.ChatRecord
	matched := false
	for i := len(records) - 1; i >= 0; i-- {
		if matched {
			collected = append(collected, records[i])
		}
		if records[i].ID == id {
			matched = true
		}
	}
	return collected, nil
}
