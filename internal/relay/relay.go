package relay

import (
	"context"
	"errors"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/ttn-relay/internal/ttn"
)

// Source yields uplink messages, one at a time.
// *mqtt.Manager is the production Source.
type Source interface {
	Next(ctx context.Context) (mqtt.Message, error)
}

// Relay is the single consumer loop between a Source and a Dispatcher.
type Relay struct {
	source     Source
	dispatcher *Dispatcher
	logger     *logging.Logger
}

// New creates a Relay.
func New(source Source, dispatcher *Dispatcher, logger *logging.Logger) *Relay {
	return &Relay{
		source:     source,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run processes messages until ctx is cancelled or the source is
// closed, which both return nil. Messages are handled strictly in
// order.
//
// Dispatch runs on a context detached from ctx so a message already
// taken from the source is finished on shutdown. The sinks' own
// timeouts bound it. Each message is acknowledged after dispatch,
// whatever the sinks returned; until then the broker holds it.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("waiting for messages")
	for {
		msg, err := r.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mqtt.ErrClosed) {
				return nil
			}
			return err
		}
		r.HandleMessage(context.WithoutCancel(ctx), msg)
		msg.Ack()
	}
}

// HandleMessage parses one TTN uplink document and dispatches it.
func (r *Relay) HandleMessage(ctx context.Context, msg mqtt.Message) {
	up, err := ttn.Parse(msg.Payload)
	switch {
	case errors.Is(err, ttn.ErrJoinAccept):
		uplinkCounter(resultJoinAccept).Inc()
		r.logger.Info("join accept, ignoring", "topic", msg.Topic)
		return
	case err != nil:
		uplinkCounter(resultInvalidDocument).Inc()
		r.logger.Warn("could not parse uplink document", "topic", msg.Topic, "error", err)
		return
	}

	r.dispatcher.Handle(ctx, up)
}
