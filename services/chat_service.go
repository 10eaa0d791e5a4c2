package services

import (
	"chat-api/domain"
	"chat-api/domain/chat"
	"chat-api/errors"
	"chat-api/repositories"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

type IChatService interface {
	PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (domain.ChatRecord, error)
	UpdateMessage(ctx context.Context, cmd chat.UpdateMessageCommand) (string, error)
	DeleteMessage(ctx context.Context, cmd chat.DeleteMessageCommand) (string, error)
	GetMessage(ctx context.Context, cmd chat.GetMessageCommand) (domain.ChatRecord, error)
	GetRecent(ctx context.Context, cmd chat.GetRecentCommand) ([]domain.ChatRecord, error)
	GetAfter(ctx context.Context, cmd chat.GetAfterCommand) ([]domain.ChatRecord, error)
	GetAfterID(ctx context.Context, cmd chat.GetAfterIDCommand) ([]domain.ChatRecord, error)
}

// ChatService validates commands and hands them to the repository.
type ChatService struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
	validate   *validator.Validate
}

func NewChatService(repository repositories.IMessageRepository, log *slog.Logger) *ChatService {
	return &ChatService{
		repository: repository,
		log:        log,
		validate:   validator.New(),
	}
}

func (s *ChatService) PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (domain.ChatRecord, error) {
	if err := s.check(cmd); err != nil {
		return domain.ChatRecord{}, err
	}
	return s.repository.Create(ctx, cmd.Author, cmd.Content)
}

func (s *ChatService) UpdateMessage(ctx context.Context, cmd chat.UpdateMessageCommand) (string, error) {
	if err := s.check(cmd); err != nil {
		return "", err
	}
	return s.repository.UpdateContent(ctx, cmd.StorageKey, cmd.Content)
}

// DeleteMessage flags the record as deleted, or removes it when Purge is set.
func (s *ChatService) DeleteMessage(ctx context.Context, cmd chat.DeleteMessageCommand) (string, error) {
	if err := s.check(cmd); err != nil {
		return "", err
	}
	if cmd.Purge {
		return s.repository.HardDelete(ctx, cmd.StorageKey)
	}
	return s.repository.SoftDelete(ctx, cmd.StorageKey)
}

func (s *ChatService) GetMessage(ctx context.Context, cmd chat.GetMessageCommand) (domain.ChatRecord, error) {
	if err := s.check(cmd); err != nil {
		return domain.ChatRecord{}, err
	}
	return s.repository.Get(ctx, cmd.StorageKey)
}

func (s *ChatService) GetRecent(ctx context.Context, cmd chat.GetRecentCommand) ([]domain.ChatRecord, error) {
	records, err := s.repository.GetRecent(ctx, cmd.Count, orDefault(cmd.Order, domain.NewestFirst))
	if err != nil {
		return nil, err
	}
	s.log.Debug("Getting chat records", "count", len(records))
	return records, nil
}

func (s *ChatService) GetAfter(ctx context.Context, cmd chat.GetAfterCommand) ([]domain.ChatRecord, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	return s.repository.GetAfter(ctx, repositories.KeyCursor(cmd.StorageKey), orDefault(cmd.Order, domain.OldestFirst))
}

// GetAfterID serves the deprecated id based polling.
func (s *ChatService) GetAfterID(ctx context.Context, cmd chat.GetAfterIDCommand) ([]domain.ChatRecord, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	return s.repository.GetAfter(ctx, repositories.LegacyIDCursor{ID: cmd.LastID}, domain.OldestFirst)
}

// check runs the struct validation and reports failures as ErrInvalidArgument.
func (s *ChatService) check(cmd chat.Command) error {
	if err := s.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrInvalidArgument, cmd.Name(), err)
	}
	return nil
}

func orDefault(order, def domain.Order) domain.Order {
	if order == "" {
		return def
	}
	return order
}
