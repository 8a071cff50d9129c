package domain

// Button is a quick-reply button on an interactive message.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Reply is what the dialogue answers to one inbound message.
// A reply with buttons is delivered as an interactive message.
type Reply struct {
	Body    string   `json:"body"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Interactive reports whether the reply carries buttons.
func (r Reply) Interactive() bool { return len(r.Buttons) > 0 }

// OutboundMessage is a message handed to the transport.
type OutboundMessage struct {
	To       string
	Kind     MessageKind
	Body     string
	Buttons  []Button
	Template string
	Language string
}

// ReplyTo turns a dialogue reply into an outbound message for phone.
func ReplyTo(phone string, r Reply) OutboundMessage {
	kind := KindText
	if r.Interactive() {
		kind = KindInteractive
	}
	return OutboundMessage{To: phone, Kind: kind, Body: r.Body, Buttons: r.Buttons}
}

// SendResult is what the transport reports after a send.
type SendResult struct {
	Status            string
	WhatsAppMessageID string
}
