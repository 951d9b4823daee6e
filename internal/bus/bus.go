package bus

import (
	"fmt"

	"github.com/opensource-security/shrike/internal/domain"
)

// New creates an event bus from configuration: in-process channels by
// default, NATS when events must leave the analyzer process.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
