package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// SendRequest is the submit-message payload. DisplayContent is the short
// transcript form persisted alongside the full wire message; an empty
// ConversationID asks the backend to open a new conversation.
type SendRequest struct {
	Message        string `json:"message"`
	DisplayContent string `json:"display_content,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// SendMessage submits a message and returns the request identifier used
// by the stream poll loop, plus the (possibly new) conversation id.
func (c *Client) SendMessage(ctx context.Context, sr SendRequest) (*models.SendResult, error) {
	if sr.Message == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}

	if c.IsClosed() {
		return nil, fmt.Errorf("client is closed")
	}

	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint(models.EndpointSend),
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		body, _ := readBody(resp, 4096)
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, models.EndpointSend, "send failed", string(body))
	}

	body, err := readBody(resp, 65536)
	if err != nil {
		return nil, apierrors.NewNetworkError("read send response", models.EndpointSend, err)
	}

	parsed := gjson.ParseBytes(body)
	requestID := parsed.Get("request_id").String()
	if requestID == "" {
		return nil, apierrors.NewParseError("no request_id in send response", "request_id")
	}

	return &models.SendResult{
		RequestID:      requestID,
		ConversationID: parsed.Get("conversation_id").String(),
	}, nil
}
