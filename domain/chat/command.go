package chat

import "chat-api/domain"

// Command is a request addressed to the chat service.
type Command interface {
	Name() string
}

type PostMessageCommand struct {
	Author  string `validate:"required,max=256"`
	Content string `validate:"required,max=4096"`
}

func (PostMessageCommand) Name() string { return "post_message" }

type UpdateMessageCommand struct {
	StorageKey string `validate:"required,number,len=19"`
	Content    string `validate:"required,max=4096"`
}

func (UpdateMessageCommand) Name() string { return "update_message" }

type DeleteMessageCommand struct {
	StorageKey string `validate:"required,number,len=19"`
	// Purge removes the record permanently instead of flagging it.
	Purge bool
}

func (DeleteMessageCommand) Name() string { return "delete_message" }

type GetMessageCommand struct {
	StorageKey string `validate:"required,number,len=19"`
}

func (GetMessageCommand) Name() string { return "get_message" }

// GetRecentCommand asks for the Count most recent records.
// A Count of zero or less means the configured default page size.
type GetRecentCommand struct {
	Count int
	Order domain.Order
}

func (GetRecentCommand) Name() string { return "get_recent" }

// GetAfterCommand asks for the records strictly newer than the record stored at StorageKey.
type GetAfterCommand struct {
	StorageKey string `validate:"required"`
	Order      domain.Order
}

func (GetAfterCommand) Name() string { return "get_after" }

// GetAfterIDCommand is the id based variant of GetAfterCommand.
//
// Deprecated: the id is only searched within the legacy scan window.
type GetAfterIDCommand struct {
	LastID string `validate:"required"`
}

func (GetAfterIDCommand) Name() string { return "get_after_id" }
