package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/boto/pkg/domain"
)

// BusinessAccountObject is the only envelope object the webhook accepts.
const BusinessAccountObject = "whatsapp_business_account"

// ErrUnsupportedObject is returned for envelopes that are not WhatsApp
// business account notifications.
var ErrUnsupportedObject = errors.New("whatsapp: unsupported webhook object")

// Envelope is the Cloud API webhook payload.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string          `json:"messaging_product"`
	Messages         []InboundRaw    `json:"messages"`
	Statuses         []StatusPayload `json:"statuses"`
}

type InboundRaw struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string       `json:"type"`
		ButtonReply *buttonReply `json:"button_reply,omitempty"`
		ListReply   *buttonReply `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
}

type StatusPayload struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Errors      []struct {
		Code    int    `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// Inbound is a user message reduced to the text the dialogue understands.
type Inbound struct {
	ID   string
	From string
	Text string
	Kind domain.MessageKind
	At   time.Time
}

// Message returns the row logged for the inbound message.
func (in Inbound) Message() domain.Message {
	return domain.Message{
		WhatsAppMessageID: in.ID,
		PhoneNumber:       in.From,
		Direction:         domain.DirectionIncoming,
		Kind:              in.Kind,
		Content:           in.Text,
		Status:            domain.StatusReceived,
		StatusAt:          in.At,
	}
}

// Notification is everything one webhook call carried.
type Notification struct {
	Messages []Inbound
	Statuses []domain.StatusUpdate
	// Ignored counts inbound messages of unsupported types (media, reactions...).
	Ignored int
}

// ParseWebhook decodes a Cloud API envelope. now stamps entries without a
// usable timestamp.
func ParseWebhook(body []byte, now time.Time) (*Notification, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("whatsapp: decode webhook: %w", err)
	}
	if env.Object != BusinessAccountObject {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedObject, env.Object)
	}

	n := &Notification{}
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, st := range change.Value.Statuses {
				n.Statuses = append(n.Statuses, st.update(now))
			}
			for _, raw := range change.Value.Messages {
				in, ok := raw.inbound(now)
				if !ok {
					n.Ignored++
					continue
				}
				n.Messages = append(n.Messages, in)
			}
		}
	}
	return n, nil
}

func (raw InboundRaw) inbound(now time.Time) (Inbound, bool) {
	in := Inbound{ID: raw.ID, From: raw.From, At: unixOr(raw.Timestamp, now)}
	switch raw.Type {
	case "text":
		if raw.Text == nil {
			return in, false
		}
		in.Kind = domain.KindText
		in.Text = raw.Text.Body
	case "interactive":
		if raw.Interactive == nil {
			return in, false
		}
		in.Kind = domain.KindInteractive
		switch {
		case raw.Interactive.ButtonReply != nil:
			in.Text = raw.Interactive.ButtonReply.ID
		case raw.Interactive.ListReply != nil:
			in.Text = raw.Interactive.ListReply.ID
		default:
			return in, false
		}
	case "button":
		if raw.Button == nil {
			return in, false
		}
		in.Kind = domain.KindInteractive
		in.Text = raw.Button.Text
		if in.Text == "" {
			in.Text = raw.Button.Payload
		}
	default:
		return in, false
	}
	return in, in.From != "" && in.ID != ""
}

func (st StatusPayload) update(now time.Time) domain.StatusUpdate {
	u := domain.StatusUpdate{
		WhatsAppMessageID: st.ID,
		PhoneNumber:       st.RecipientID,
		Status:            st.Status,
		At:                unixOr(st.Timestamp, now),
	}
	if st.Status == domain.StatusFailed && len(st.Errors) > 0 {
		e := st.Errors[0]
		code := e.Code
		u.ErrorCode = &code
		u.ErrorTitle = e.Title
		u.ErrorMessage = e.Message
	}
	return u
}

func unixOr(raw string, fallback time.Time) time.Time {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec <= 0 {
		return fallback
	}
	return time.Unix(sec, 0).UTC()
}

// Verify answers the webhook subscription handshake. It returns the
// challenge to echo and whether the request is authorized.
func Verify(mode, token, challenge, expected string) (string, bool) {
	if mode != "subscribe" || expected == "" || token != expected {
		return "", false
	}
	return challenge, true
}
