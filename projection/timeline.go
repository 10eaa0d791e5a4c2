package projection

import (
	"chat-api/domain"
	"sort"
)

// Timeline holds a local newest-first view of the records a client has seen.
// Records are deduplicated by storage key; a later copy of a record replaces
// the earlier one so edits and soft-deletes show up.
type Timeline struct {
	Messages []domain.ChatRecord
	byKey    map[string]int
}

func NewTimeline() *Timeline {
	return &Timeline{
		Messages: nil,
		byKey:    make(map[string]int),
	}
}

// Consume merges a batch of records, whatever order they come in.
func (t *Timeline) Consume(records ...domain.ChatRecord) {
	for _, record := range records {
		if i, ok := t.byKey[record.StorageKey]; ok {
			t.Messages[i] = record
			continue
		}
		t.Messages = append(t.Messages, record)
		t.byKey[record.StorageKey] = len(t.Messages) - 1
	}
	// storage keys are inverted time: ascending key is newest first
	sort.SliceStable(t.Messages, func(i, j int) bool {
		return t.Messages[i].StorageKey < t.Messages[j].StorageKey
	})
	for i, record := range t.Messages {
		t.byKey[record.StorageKey] = i
	}
}

// Newest returns the storage key to poll from, or "" for an empty timeline.
func (t *Timeline) Newest() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0].StorageKey
}

// Visible returns the records not flagged as deleted.
func (t *Timeline) Visible() []domain.ChatRecord {
	visible := make([]domain.ChatRecord, 0, len(t.Messages))
	for _, record := range t.Messages {
		if !record.Deleted {
			visible = append(visible, record)
		}
	}
	return visible
}
