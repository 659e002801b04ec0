package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// テンプレートID
const (
	TemplateWelcome       = "welcome"
	TemplateResetPassword = "reset-password"
)

// Sender はテンプレートメールを送る約束。
// 失敗しても呼び出し元の成功を妨げない（fire-and-forgetで使う）。
type Sender interface {
	SendTransactional(ctx context.Context, templateID string, recipient string, params map[string]string) error
}

// 送信APIへのHTTPクライアント
type Client struct {
	apiURL     string
	apiKey     string
	fromEmail  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(apiURL, apiKey, fromEmail string, opts ...Option) *Client {
	c := &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured はAPIのURLが設定されているかを返す。
func (c *Client) Configured() bool {
	return c.apiURL != ""
}

type transactionalMail struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Params     map[string]string `json:"params,omitempty"`
}

// SendTransactional はテンプレートメールを1通送る。
func (c *Client) SendTransactional(ctx context.Context, templateID string, recipient string, params map[string]string) error {
	if !c.Configured() {
		return fmt.Errorf("mail client not configured: missing api url")
	}

	payload := transactionalMail{
		From:       c.fromEmail,
		To:         recipient,
		TemplateID: templateID,
		Params:     params,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail API error: status %d", resp.StatusCode)
	}

	return nil
}
