package client

import (
	"bytes"
	"chat-api/domain"
	"chat-api/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ChatClient calls the chat HTTP API.
type ChatClient struct {
	baseURL string
	http    *http.Client
}

// APIError is a non 2xx answer. It unwraps to the error kind matching its status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api answered %d: %s", e.Status, strings.TrimSpace(e.Body))
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return errors.ErrInvalidArgument
	case http.StatusNotFound:
		return errors.ErrNotFound
	case http.StatusConflict:
		return errors.ErrConflict
	case http.StatusServiceUnavailable:
		return errors.ErrUnavailable
	default:
		return nil
	}
}

func NewChatClient(baseURL string, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ChatClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *ChatClient) PostMessage(ctx context.Context, who, message string) (domain.ChatRecord, error) {
	var record domain.ChatRecord
	err := c.do(ctx, http.MethodPost, "/postMessage", nil, map[string]string{"Username": who, "Message": message}, &record)
	return record, err
}

// GetMessages lists the count most recent records. A zero count lets the server pick its default.
func (c *ChatClient) GetMessages(ctx context.Context, count int, order domain.Order) ([]domain.ChatRecord, error) {
	query := url.Values{}
	if count > 0 {
		query.Set("recordCount", strconv.Itoa(count))
	}
	if order != "" {
		query.Set("order", string(order))
	}
	var records []domain.ChatRecord
	err := c.do(ctx, http.MethodGet, "/getMessages", query, nil, &records)
	return records, err
}

func (c *ChatClient) GetMessagesAfter(ctx context.Context, key string, order domain.Order) ([]domain.ChatRecord, error) {
	query := url.Values{"rowKey": {key}}
	if order != "" {
		query.Set("order", string(order))
	}
	var records []domain.ChatRecord
	err := c.do(ctx, http.MethodGet, "/getMessagesAfterRowKey", query, nil, &records)
	return records, err
}

// Deprecated: use GetMessagesAfter.
func (c *ChatClient) GetNewMessages(ctx context.Context, lastID string) ([]domain.ChatRecord, error) {
	var records []domain.ChatRecord
	err := c.do(ctx, http.MethodGet, "/GeNewMessages", url.Values{"lastId": {lastID}}, nil, &records)
	return records, err
}

func (c *ChatClient) GetMessage(ctx context.Context, key string) (domain.ChatRecord, error) {
	var record domain.ChatRecord
	err := c.do(ctx, http.MethodGet, "/getMessage", url.Values{"rowKey": {key}}, nil, &record)
	return record, err
}

func (c *ChatClient) UpdateMessage(ctx context.Context, key, message string) (string, error) {
	var updated string
	err := c.do(ctx, http.MethodPut, "/updateMessage", url.Values{"rowKey": {key}}, map[string]string{"Message": message}, &updated)
	return updated, err
}

func (c *ChatClient) DeleteMessage(ctx context.Context, key string) (string, error) {
	var deleted string
	err := c.do(ctx, http.MethodDelete, "/deleteMessage", url.Values{"rowKey": {key}}, nil, &deleted)
	return deleted, err
}

func (c *ChatClient) PurgeMessage(ctx context.Context, key string) (string, error) {
	var purged string
	err := c.do(ctx, http.MethodDelete, "/purgeMessage", url.Values{"rowKey": {key}}, nil, &purged)
	return purged, err
}

func (c *ChatClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errors.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s answer: %w", path, err)
	}
	return nil
}
