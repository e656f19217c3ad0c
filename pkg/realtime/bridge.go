package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/messaging"
)

// Channel carries user-addressed envelopes between processes. The scheduler
// publishes here; every API replica's bridge feeds its local hub.
const Channel = "realtime"

// BrokerPublisher pushes user-addressed messages through the message broker
// so sessions connected to any API replica receive them.
type BrokerPublisher struct {
	broker messaging.Broker
	logger *logger.Logger
}

func NewBrokerPublisher(broker messaging.Broker, logger *logger.Logger) *BrokerPublisher {
	return &BrokerPublisher{
		broker: broker,
		logger: logger,
	}
}

func (p *BrokerPublisher) Publish(ctx context.Context, userID uuid.UUID, msg *Message) error {
	return p.broker.Publish(ctx, Channel, &envelope{
		UserID:  userID,
		Message: msg,
	})
}

// BestEffort marks the no-guarantee delivery contract.
func (p *BrokerPublisher) BestEffort() {}

// Bridge subscribes to the broker channel and routes each envelope to the
// local hub by user id.
type Bridge struct {
	broker messaging.Broker
	hub    *Hub
	logger *logger.Logger
}

func NewBridge(broker messaging.Broker, hub *Hub, logger *logger.Logger) *Bridge {
	return &Bridge{
		broker: broker,
		hub:    hub,
		logger: logger,
	}
}

func (b *Bridge) Start(ctx context.Context) error {
	msgs, err := b.broker.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}

	go func() {
		for raw := range msgs {
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				b.logger.Error(err, "failed to decode realtime envelope")
				continue
			}
			if env.Message == nil {
				continue
			}
			if err := b.hub.Publish(ctx, env.UserID, env.Message); err != nil {
				b.logger.Error(err, "failed to deliver realtime message", "user_id", env.UserID.String())
			}
		}
	}()

	return nil
}
