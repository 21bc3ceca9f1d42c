package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chat-widget/internal/httputil"
)

// Request is the body of POST /api/chat.
type Request struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// Reply is the body of a successful POST /api/chat.
type Reply struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	ChatID  string `json:"chat_id,omitempty"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	headers    http.Header
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request. Zero, the default, means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHeader adds a header to every outgoing request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = http.Header{}
		}
		c.headers.Add(key, value)
	}
}

// NewClient returns a client posting to endpoint, e.g. http://host/api/chat.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{endpoint: endpoint}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if len(c.headers) > 0 {
		c.httpClient = httputil.WithHeaders(c.httpClient, c.headers)
	}
	return c
}

// SendMessage posts one message and waits for the reply. It never retries.
func (c *Client) SendMessage(ctx context.Context, text, chatID string) (Reply, error) {
	body, err := json.Marshal(Request{Message: text, ChatID: chatID})
	if err != nil {
		return Reply{}, &TransportError{Op: "encode request", Err: err}
	}
	var reply Reply
	err = c.post(ctx, c.endpoint, body, func(r io.Reader) error {
		reply, err = decodeReply(r)
		if err != nil {
			return &TransportError{Op: "decode reply", Err: err}
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

type wireReply struct {
	Message *string `json:"message"`
	Success bool    `json:"success"`
	ChatID  string  `json:"chat_id"`
}

// decodeReply accepts exactly one JSON object carrying a message field.
func decodeReply(r io.Reader) (Reply, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Reply{}, err
	}
	var wr wireReply
	if err := json.Unmarshal(data, &wr); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if wr.Message == nil {
		return Reply{}, fmt.Errorf("%w: no message field", ErrMalformedReply)
	}
	return Reply{Message: *wr.Message, Success: wr.Success, ChatID: wr.ChatID}, nil
}

// ClearChat asks the service to drop its copy of the conversation.
func (c *Client) ClearChat(ctx context.Context, chatID string) error {
	u, err := clearChatURL(c.endpoint, chatID)
	if err != nil {
		return &TransportError{Op: "build url", Err: err}
	}
	return c.post(ctx, u, nil, nil)
}

// post sends body and hands a 2xx response body to read.
func (c *Client) post(ctx context.Context, target string, body []byte, read func(io.Reader) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "send request", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: "send request", Err: &ServerError{StatusCode: resp.StatusCode, Status: resp.Status}}
	}
	if read == nil {
		return nil
	}
	return read(resp.Body)
}

// clearChatURL maps .../api/chat to .../api/clear-chat/{id}.
func clearChatURL(endpoint, chatID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/chat")
	u.Path = base + "/clear-chat/" + chatID
	u.RawPath = base + "/clear-chat/" + url.PathEscape(chatID)
	return u.String(), nil
}
