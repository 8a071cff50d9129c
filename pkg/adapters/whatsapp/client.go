package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/google/uuid"
)

// Mode selects the upstream API.
type Mode string

const (
	ModeOfficial   Mode = "official"
	ModeUnofficial Mode = "unofficial"
)

// UnofficialIDPrefix marks message ids synthesized for gateway sends.
const UnofficialIDPrefix = "unofficial-"

// maxButtons is the Cloud API limit for reply buttons.
const maxButtons = 3

type Config struct {
	Mode Mode
	// APIURL is the Graph API base for official mode, or the full gateway
	// endpoint for unofficial mode.
	APIURL        string
	AccessToken   string
	PhoneNumberID string
	ClientToken   string
}

// Client implements ports.Sender. When a recorder is set, every send is
// logged as an outgoing domain.Message.
type Client struct {
	cfg        Config
	httpClient *http.Client
	recorder   ports.MessageRepository
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRecorder stores outgoing messages in repo.
func WithRecorder(repo ports.MessageRepository) Option {
	return func(c *Client) {
		c.recorder = repo
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		return nil, errors.New("whatsapp: api url must not be empty")
	}
	switch cfg.Mode {
	case ModeOfficial:
		if cfg.PhoneNumberID == "" {
			return nil, errors.New("whatsapp: phone number id is required in official mode")
		}
	case ModeUnofficial:
	default:
		return nil, fmt.Errorf("whatsapp: unknown mode %q", cfg.Mode)
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ ports.Sender = (*Client)(nil)

// Send delivers msg and returns the upstream message id.
func (c *Client) Send(ctx context.Context, msg domain.OutboundMessage) (domain.SendResult, error) {
	var (
		id  string
		err error
	)
	if c.cfg.Mode == ModeOfficial {
		id, err = c.sendOfficial(ctx, msg)
	} else {
		id, err = c.sendUnofficial(ctx, msg)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "send failed", "phone", msg.To, "kind", msg.Kind, "error", err)
		c.record(ctx, msg, "", domain.StatusFailed, err)
		return domain.SendResult{Status: domain.StatusFailed}, err
	}

	c.record(ctx, msg, id, domain.StatusSent, nil)
	return domain.SendResult{Status: domain.StatusSent, WhatsAppMessageID: id}, nil
}

func (c *Client) record(ctx context.Context, msg domain.OutboundMessage, id, status string, sendErr error) {
	if c.recorder == nil {
		return
	}
	kind := msg.Kind
	if kind == "" {
		kind = domain.KindText
	}
	m := domain.Message{
		WhatsAppMessageID: id,
		PhoneNumber:       msg.To,
		Direction:         domain.DirectionOutgoing,
		Kind:              kind,
		Content:           msg.Body,
		Status:            status,
		StatusAt:          c.now(),
	}
	if sendErr != nil {
		m.ErrorMessage = sendErr.Error()
	}
	if _, err := c.recorder.RecordMessage(ctx, m); err != nil {
		c.logger.WarnContext(ctx, "failed to record outgoing message", "phone", msg.To, "error", err)
	}
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type button struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type interactive struct {
	Type string `json:"type"`
	Body struct {
		Text string `json:"text"`
	} `json:"body"`
	Action struct {
		Buttons []button `json:"buttons"`
	} `json:"action"`
}

type template struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
}

type cloudMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
	Template         *template    `json:"template,omitempty"`
}

type cloudResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func buildCloudMessage(msg domain.OutboundMessage) cloudMessage {
	out := cloudMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.To,
	}
	switch {
	case msg.Kind == domain.KindTemplate:
		out.Type = "template"
		t := &template{Name: msg.Template}
		t.Language.Code = msg.Language
		if t.Language.Code == "" {
			t.Language.Code = "pt_BR"
		}
		out.Template = t
	case len(msg.Buttons) > 0:
		out.Type = "interactive"
		in := &interactive{Type: "button"}
		in.Body.Text = msg.Body
		for i, b := range msg.Buttons {
			if i == maxButtons {
				break
			}
			in.Action.Buttons = append(in.Action.Buttons, button{Type: "reply", Reply: buttonReply{ID: b.ID, Title: b.Title}})
		}
		out.Interactive = in
	default:
		out.Type = "text"
		out.Text = &textBody{Body: msg.Body}
	}
	return out
}

func (c *Client) sendOfficial(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	url := c.cfg.APIURL + "/" + c.cfg.PhoneNumberID + "/messages"
	raw, err := c.post(ctx, url, buildCloudMessage(msg), map[string]string{
		"Authorization": "Bearer " + c.cfg.AccessToken,
	})
	if err != nil {
		return "", err
	}

	var res cloudResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("whatsapp: decode response: %w", err)
	}
	if len(res.Messages) == 0 || res.Messages[0].ID == "" {
		return "", errors.New("whatsapp: no message id in response")
	}
	return res.Messages[0].ID, nil
}

// gatewayText renders buttons as numbered lines; the gateway only sends text.
func gatewayText(msg domain.OutboundMessage) string {
	if len(msg.Buttons) == 0 {
		return msg.Body
	}
	var b strings.Builder
	b.WriteString(msg.Body)
	b.WriteString("\n")
	for _, btn := range msg.Buttons {
		fmt.Fprintf(&b, "\n%s - %s", btn.ID, btn.Title)
	}
	return b.String()
}

func (c *Client) sendUnofficial(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	payload := map[string]string{"phone": msg.To, "message": gatewayText(msg)}
	if _, err := c.post(ctx, c.cfg.APIURL, payload, map[string]string{
		"Client-Token": c.cfg.ClientToken,
	}); err != nil {
		return "", err
	}
	return UnofficialIDPrefix + uuid.NewString(), nil
}

func (c *Client) post(ctx context.Context, url string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp: unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(buf)))
	}
	return buf, nil
}
