package api

import (
	"context"
	"net/url"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// ListConversations fetches the user's conversations, most recent first.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(models.EndpointConversations), nil)
	if err != nil {
		return nil, apierrors.NewNetworkError("list conversations", models.EndpointConversations, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		body, _ := readBody(resp, 4096)
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, models.EndpointConversations, "list failed", string(body))
	}

	body, err := readBody(resp, 8*1024*1024)
	if err != nil {
		return nil, apierrors.NewNetworkError("read conversations response", models.EndpointConversations, err)
	}

	parsed := gjson.ParseBytes(body)
	list := parsed.Get("conversations")
	if !list.Exists() {
		// Some deployments return a bare array.
		list = parsed
	}
	if !list.IsArray() {
		return nil, apierrors.NewParseError("no conversation list in response", "conversations")
	}

	var conversations []models.Conversation
	list.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		if id == "" {
			return true
		}
		conversations = append(conversations, models.Conversation{
			ID:           id,
			Title:        item.Get("title").String(),
			UpdatedAt:    parseTimestamp(item.Get("updated_at").String()),
			MessageCount: int(item.Get("message_count").Int()),
		})
		return true
	})

	return conversations, nil
}

// GetConversation fetches the persisted transcript of one conversation.
func (c *Client) GetConversation(ctx context.Context, id string) ([]models.Message, error) {
	endpoint := c.endpoint(models.EndpointConversations) + "/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apierrors.NewNetworkError("fetch conversation", models.EndpointConversations, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		body, _ := readBody(resp, 4096)
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, models.EndpointConversations, "fetch failed", string(body))
	}

	body, err := readBody(resp, 32*1024*1024)
	if err != nil {
		return nil, apierrors.NewNetworkError("read conversation response", models.EndpointConversations, err)
	}

	parsed := gjson.ParseBytes(body)
	list := parsed.Get("messages")
	if !list.IsArray() {
		return nil, apierrors.NewParseError("no messages in conversation response", "messages")
	}

	var messages []models.Message
	list.ForEach(func(_, item gjson.Result) bool {
		messages = append(messages, models.Message{
			ID:        item.Get("id").String(),
			Role:      item.Get("role").String(),
			Content:   item.Get("content").String(),
			Timestamp: parseTimestamp(item.Get("timestamp").String()),
		})
		return true
	})

	return messages, nil
}

// parseTimestamp decodes the backend's ISO-8601 timestamps, tolerating a
// missing field.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
