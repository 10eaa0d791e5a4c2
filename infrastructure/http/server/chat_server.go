package server

import (
	"chat-api/domain"
	"chat-api/domain/chat"
	"chat-api/errors"
	"chat-api/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

const (
	getMessagesFailed = "Get messages request failed."
	getMessageFailed  = "Get message request failed."
	postFailed        = "Post message failed."
	updateFailed      = "Update message failed."
	deleteFailed      = "Delete message failed."
)

type ChatServer struct {
	chatService  services.IChatService
	log          *slog.Logger
	legacyStatus bool
	timeout      time.Duration
}

type postMessageRequest struct {
	Username string `json:"Username"`
	Message  string `json:"Message"`
}

type updateMessageRequest struct {
	Message string `json:"Message"`
}

// NewChatServer builds the HTTP surface of the chat service.
// With legacyStatus every failure is answered with a plain 400.
func NewChatServer(log *slog.Logger, chatService services.IChatService, legacyStatus bool, timeout time.Duration) *ChatServer {
	return &ChatServer{
		chatService:  chatService,
		log:          log,
		legacyStatus: legacyStatus,
		timeout:      timeout,
	}
}

func (s *ChatServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCors)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/getMessages", s.getMessages)
	r.Get("/getMessagesAfterRowKey", s.getMessagesAfterRowKey)
	r.Get("/GeNewMessages", s.getNewMessages)
	r.Get("/getMessage", s.getMessage)
	r.Post("/postMessage", s.postMessage)
	r.Put("/updateMessage", s.updateMessage)
	r.Delete("/deleteMessage", s.deleteMessage(false))
	r.Delete("/purgeMessage", s.deleteMessage(true))
	return r
}

func (s *ChatServer) getMessages(w http.ResponseWriter, r *http.Request) {
	// A missing or non numeric count falls back to the default page size.
	count, _ := strconv.Atoi(r.URL.Query().Get("recordCount"))
	order, err := parseOrder(r)
	if err != nil {
		s.writeError(w, r, err, getMessagesFailed)
		return
	}
	records, err := s.chatService.GetRecent(r.Context(), chat.GetRecentCommand{Count: count, Order: order})
	if err != nil {
		s.writeError(w, r, err, getMessagesFailed)
		return
	}
	writeRecords(w, records)
}

func (s *ChatServer) getMessagesAfterRowKey(w http.ResponseWriter, r *http.Request) {
	order, err := parseOrder(r)
	if err != nil {
		s.writeError(w, r, err, getMessagesFailed)
		return
	}
	records, err := s.chatService.GetAfter(r.Context(), chat.GetAfterCommand{
		StorageKey: r.URL.Query().Get("rowKey"),
		Order:      order,
	})
	if err != nil {
		s.writeError(w, r, err, getMessagesFailed)
		return
	}
	writeRecords(w, records)
}

// Deprecated polling by id, kept for old clients.
func (s *ChatServer) getNewMessages(w http.ResponseWriter, r *http.Request) {
	records, err := s.chatService.GetAfterID(r.Context(), chat.GetAfterIDCommand{LastID: r.URL.Query().Get("lastId")})
	if err != nil {
		s.writeError(w, r, err, getMessagesFailed)
		return
	}
	writeRecords(w, records)
}

func (s *ChatServer) getMessage(w http.ResponseWriter, r *http.Request) {
	record, err := s.chatService.GetMessage(r.Context(), chat.GetMessageCommand{StorageKey: r.URL.Query().Get("rowKey")})
	if err != nil {
		s.writeError(w, r, err, getMessageFailed)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *ChatServer) postMessage(w http.ResponseWriter, r *http.Request) {
	var body postMessageRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err, postFailed)
		return
	}
	record, err := s.chatService.PostMessage(r.Context(), chat.PostMessageCommand{Author: body.Username, Content: body.Message})
	if err != nil {
		s.writeError(w, r, err, postFailed)
		return
	}
	s.log.Info("Message posted", "key", record.StorageKey, "author", record.Author)
	writeJSON(w, http.StatusCreated, record)
}

func (s *ChatServer) updateMessage(w http.ResponseWriter, r *http.Request) {
	var body updateMessageRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err, updateFailed)
		return
	}
	key, err := s.chatService.UpdateMessage(r.Context(), chat.UpdateMessageCommand{
		StorageKey: r.URL.Query().Get("rowKey"),
		Content:    body.Message,
	})
	if err != nil {
		s.writeError(w, r, err, updateFailed)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

func (s *ChatServer) deleteMessage(purge bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := s.chatService.DeleteMessage(r.Context(), chat.DeleteMessageCommand{
			StorageKey: r.URL.Query().Get("rowKey"),
			Purge:      purge,
		})
		if err != nil {
			s.writeError(w, r, err, deleteFailed)
			return
		}
		s.log.Info("Message deleted", "key", key, "purge", purge)
		writeJSON(w, http.StatusCreated, key)
	}
}

func parseOrder(r *http.Request) (domain.Order, error) {
	value := r.URL.Query().Get("order")
	order, ok := domain.ParseOrder(value, "")
	if !ok {
		return "", fmt.Errorf("%w: unknown order %q", errors.ErrInvalidArgument, value)
	}
	return order, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errors.ErrInvalidArgument, err)
	}
	return nil
}
