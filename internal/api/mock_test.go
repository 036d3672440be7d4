package api

import (
	"io"
	"net/url"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/bogdanfinn/tls-client/bandwidth"
)

// mockBody is a ReadCloser over a byte slice
type mockBody struct {
	data []byte
	pos  int
}

func newMockBody(data []byte) *mockBody {
	return &mockBody{data: data}
}

func (m *mockBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

func (m *mockBody) Close() error { return nil }

// MockHttpClient is a mock implementation of tls_client.HttpClient.
// DoFunc, when set, lets a test vary responses per request.
type MockHttpClient struct {
	Response *fhttp.Response
	Err      error
	DoFunc   func(req *fhttp.Request) (*fhttp.Response, error)

	Requests []*fhttp.Request
}

func (m *MockHttpClient) GetCookies(u *url.URL) []*fhttp.Cookie            { return nil }
func (m *MockHttpClient) SetCookies(u *url.URL, cookies []*fhttp.Cookie)   {}
func (m *MockHttpClient) SetCookieJar(jar fhttp.CookieJar)                 {}
func (m *MockHttpClient) GetCookieJar() fhttp.CookieJar                    { return nil }
func (m *MockHttpClient) SetProxy(proxyUrl string) error                   { return nil }
func (m *MockHttpClient) GetProxy() string                                 { return "" }
func (m *MockHttpClient) SetFollowRedirect(followRedirect bool)            {}
func (m *MockHttpClient) GetFollowRedirect() bool                          { return false }
func (m *MockHttpClient) CloseIdleConnections()                            {}
func (m *MockHttpClient) GetBandwidthTracker() bandwidth.BandwidthTracker  { return nil }

func (m *MockHttpClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return m.Response, m.Err
}

func (m *MockHttpClient) Get(url string) (*fhttp.Response, error) {
	return m.Response, m.Err
}

func (m *MockHttpClient) Head(url string) (*fhttp.Response, error) {
	return m.Response, m.Err
}

func (m *MockHttpClient) Post(url, contentType string, body io.Reader) (*fhttp.Response, error) {
	return m.Response, m.Err
}

// newMockResponse builds an fhttp response with the given body and status
func newMockResponse(body []byte, statusCode int) *fhttp.Response {
	return &fhttp.Response{
		StatusCode: statusCode,
		Body:       newMockBody(body),
		Header:     make(fhttp.Header),
	}
}

// NewMockHttpClient creates a mock that always returns one response
func NewMockHttpClient(body []byte, statusCode int) *MockHttpClient {
	return &MockHttpClient{Response: newMockResponse(body, statusCode)}
}

// NewMockHttpClientWithError creates a mock that always fails
func NewMockHttpClientWithError(err error) *MockHttpClient {
	return &MockHttpClient{Err: err}
}
