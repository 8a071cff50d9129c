package ports

import (
	"context"

	"github.com/aretw0/boto/pkg/domain"
)

// Sender delivers outbound WhatsApp messages.
type Sender interface {
	Send(ctx context.Context, msg domain.OutboundMessage) (domain.SendResult, error)
}
