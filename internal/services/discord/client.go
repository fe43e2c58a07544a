package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Embed is a Discord rich embed.
type Embed struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	URL         string      `json:"url,omitempty"`
	Color       int         `json:"color,omitempty"`
	Fields      []Field     `json:"fields,omitempty"`
	Image       *EmbedMedia `json:"image,omitempty"`
	Thumbnail   *EmbedMedia `json:"thumbnail,omitempty"`
}

// Field is a single labelled value inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedMedia points an embed slot at an image, either remote or an
// attachment:// reference.
type EmbedMedia struct {
	URL string `json:"url"`
}

// Message is one webhook delivery. AttachmentPath, when set, is uploaded as
// files[0] and referenced from the embed image.
type Message struct {
	Content        string
	Embed          *Embed
	AttachmentPath string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithIdentity sets the username and avatar shown for webhook posts.
func WithIdentity(username, avatarURL string) Option {
	return func(c *Client) {
		c.username = strings.TrimSpace(username)
		c.avatarURL = strings.TrimSpace(avatarURL)
	}
}

// Client posts messages to a single Discord webhook.
type Client struct {
	webhookURL string
	username   string
	avatarURL  string
	httpClient *http.Client
}

// New constructs a webhook client.
func New(webhookURL string, requestTimeout time.Duration, opts ...Option) (*Client, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil, errors.New("webhook URL required")
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	client := &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type payload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// Send delivers one message. With an attachment it posts multipart form data
// (payload_json plus files[0]); otherwise a plain JSON body.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body := payload{
		Content:   msg.Content,
		Username:  c.username,
		AvatarURL: c.avatarURL,
	}
	if msg.Embed != nil {
		embed := *msg.Embed
		if msg.AttachmentPath != "" {
			embed.Image = &EmbedMedia{URL: "attachment://" + filepath.Base(msg.AttachmentPath)}
		}
		body.Embeds = []Embed{embed}
	}

	var req *http.Request
	var err error
	if msg.AttachmentPath != "" {
		req, err = c.multipartRequest(ctx, body, msg.AttachmentPath)
	} else {
		req, err = c.jsonRequest(ctx, body)
	}
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (c *Client) jsonRequest(ctx context.Context, body payload) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) multipartRequest(ctx context.Context, body payload, attachmentPath string) (*http.Request, error) {
	file, err := os.Open(attachmentPath)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	if err := writer.WriteField("payload_json", string(encoded)); err != nil {
		return nil, fmt.Errorf("write payload_json: %w", err)
	}

	part, err := writer.CreateFormFile("files[0]", filepath.Base(attachmentPath))
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
