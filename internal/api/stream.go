package api

import (
	"context"
	"net/url"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// PollStream fetches the current stream state for an in-flight request.
// The reply field grows monotonically across polls; finished=1 marks the
// terminal poll.
func (c *Client) PollStream(ctx context.Context, requestID string) (*models.StreamStatus, error) {
	endpoint := c.endpoint(models.EndpointStream) + "?request_id=" + url.QueryEscape(requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apierrors.NewNetworkError("poll stream", models.EndpointStream, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		body, _ := readBody(resp, 4096)
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, models.EndpointStream, "poll failed", string(body))
	}

	body, err := readBody(resp, 4*1024*1024)
	if err != nil {
		return nil, apierrors.NewNetworkError("read stream response", models.EndpointStream, err)
	}

	return parseStreamStatus(body)
}

// parseStreamStatus decodes one poll response.
func parseStreamStatus(body []byte) (*models.StreamStatus, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("stream response is not valid JSON", "")
	}

	parsed := gjson.ParseBytes(body)
	status := parsed.Get("status").String()
	if status == "" {
		return nil, apierrors.NewParseError("no status in stream response", "status")
	}

	return &models.StreamStatus{
		Status:       status,
		Reply:        parsed.Get("reply").String(),
		Title:        parsed.Get("title").String(),
		Finished:     parsed.Get("finished").Int() == 1,
		ErrorMessage: parsed.Get("error").String(),
	}, nil
}
