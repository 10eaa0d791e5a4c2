package projection

import (
	"chat-api/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeline_Consume_OrdersNewestFirst(t *testing.T) {
	timeline := NewTimeline()

	older := domain.ChatRecord{ID: "1", Author: "Alice", Content: "Hello Bob", StorageKey: "0000253402300799899"}
	newer := domain.ChatRecord{ID: "2", Author: "Clara", Content: "Hi Bob", StorageKey: "0000253402300799799"}

	timeline.Consume(older)
	timeline.Consume(newer)

	require.Len(t, timeline.Messages, 2)
	require.Equal(t, "Clara", timeline.Messages[0].Author)
	require.Equal(t, "Alice", timeline.Messages[1].Author)
	require.Equal(t, newer.StorageKey, timeline.Newest())
}

func TestTimeline_Consume_ReplacesKnownRecord(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	record := domain.ChatRecord{ID: "1", Author: "Alice", Content: "Hello", StorageKey: "0000253402300799899"}
	other := domain.ChatRecord{ID: "2", Author: "Bob", Content: "Yo", StorageKey: "0000253402300799799"}
	timeline.Consume(record, other)

	edited := record
	edited.Content = "Hello, edited"
	edited.Deleted = true
	timeline.Consume(edited)

	req.Len(timeline.Messages, 2)
	req.Equal("Hello, edited", timeline.Messages[1].Content)
	req.Len(timeline.Visible(), 1)
	req.Equal("Bob", timeline.Visible()[0].Author)
}

func TestTimeline_Newest_Empty(t *testing.T) {
	require.Empty(t, NewTimeline().Newest())
}
