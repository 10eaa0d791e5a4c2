package e2e

import (
	"chat-api/domain"
	"chat-api/errors"
	"chat-api/infrastructure/http/client"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseHTTPSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestPostPollEditDelete() {
	author := "e2e-" + uuid.NewString()[:8]
	var first, second domain.ChatRecord

	s.Run("Step 1: Post two messages", func() {
		s.WithChat("Posting", func(ctx context.Context, chat *client.ChatClient) {
			var err error
			first, err = chat.PostMessage(ctx, author, "first")
			s.Require().NoError(err)
			time.Sleep(5 * time.Millisecond)
			second, err = chat.PostMessage(ctx, author, "second")
			s.Require().NoError(err)
			s.Require().Less(second.StorageKey, first.StorageKey, "newer records must sort first")
		})
	})

	s.Run("Step 2: Most recent page is newest first", func() {
		s.WithChat("Listing", func(ctx context.Context, chat *client.ChatClient) {
			records, err := chat.GetMessages(ctx, 2, domain.NewestFirst)
			s.Require().NoError(err)
			s.Require().Len(records, 2)
			s.Equal(second.StorageKey, records[0].StorageKey)
		})
	})

	s.Run("Step 3: Poll after the first key", func() {
		s.WithChat("Polling", func(ctx context.Context, chat *client.ChatClient) {
			records, err := chat.GetMessagesAfter(ctx, first.StorageKey, domain.OldestFirst)
			s.Require().NoError(err)
			s.Require().NotEmpty(records)
			s.Equal(second.StorageKey, records[0].StorageKey)
		})
	})

	s.Run("Step 4: Edit, soft delete then purge", func() {
		s.WithChat("Mutating", func(ctx context.Context, chat *client.ChatClient) {
			_, err := chat.UpdateMessage(ctx, first.StorageKey, "edited")
			s.Require().NoError(err)
			_, err = chat.DeleteMessage(ctx, first.StorageKey)
			s.Require().NoError(err)

			record, err := chat.GetMessage(ctx, first.StorageKey)
			s.Require().NoError(err)
			s.Equal("edited", record.Content)
			s.True(record.Deleted)

			for _, key := range []string{first.StorageKey, second.StorageKey} {
				_, err = chat.PurgeMessage(ctx, key)
				s.Require().NoError(err)
			}
			_, err = chat.GetMessage(ctx, first.StorageKey)
			if s.Config.LegacyStatus {
				s.ErrorIs(err, errors.ErrInvalidArgument)
			} else {
				s.ErrorIs(err, errors.ErrNotFound)
			}
		})
	})
}
