package api

import (
	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// Identity is the authenticated user as reported by the backend.
type Identity struct {
	Email string
	Name  string
}

// Identity fetches the current identity. A valid session is the only
// credential the client holds; this is also the keep-alive probe.
func (c *Client) Identity() (*Identity, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint(models.EndpointIdentity), nil)
	if err != nil {
		return nil, apierrors.NewNetworkError("fetch identity", models.EndpointIdentity, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		body, _ := readBody(resp, 2048)
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, models.EndpointIdentity, "identity check failed", string(body))
	}

	body, err := readBody(resp, 65536)
	if err != nil {
		return nil, apierrors.NewNetworkError("read identity response", models.EndpointIdentity, err)
	}

	parsed := gjson.ParseBytes(body)
	email := parsed.Get("email").String()
	if email == "" {
		return nil, apierrors.NewParseError("no email in identity response", "email")
	}

	return &Identity{
		Email: email,
		Name:  parsed.Get("name").String(),
	}, nil
}
