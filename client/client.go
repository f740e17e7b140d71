// Package client calls a threadchat server over HTTP. A *Client is a
// threadchat.Responder, so a Controller can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/boat-builder/threadchat"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrUnreadableBody   = errors.New("response body could not be read")
)

var _ threadchat.Responder = &Client{}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New returns a Client for the server at baseURL. The default http.Client
// has no timeout because a reply takes as long as the run does.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Respond posts the conversation and reads the streamed reply. Any non-2xx
// status is a failure, whatever the body says.
func (c *Client) Respond(ctx context.Context, messages []threadchat.Message, threadID string) (threadchat.Reply, error) {
	body, err := json.Marshal(threadchat.ChatRequest{Messages: messages, ThreadID: threadID})
	if err != nil {
		return threadchat.Reply{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+threadchat.ChatPath, bytes.NewReader(body))
	if err != nil {
		return threadchat.Reply{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return threadchat.Reply{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		detail := gjson.GetBytes(raw, "error").String()
		return threadchat.Reply{}, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, detail)
	}

	var text strings.Builder
	if _, err := io.Copy(&text, resp.Body); err != nil {
		return threadchat.Reply{}, fmt.Errorf("%w: %w", ErrUnreadableBody, err)
	}

	return threadchat.Reply{
		Text:     text.String(),
		ThreadID: resp.Header.Get(threadchat.ThreadIDHeader),
	}, nil
}
