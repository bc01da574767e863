package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/hkbridge/internal/event"
	"github.com/nerrad567/hkbridge/internal/payload"
	"github.com/nerrad567/hkbridge/internal/subscription"
)

// Timeout bounds for the two suspending operations in a publish task.
// The loser of each race is abandoned, not cancelled: the paho transport
// may run to completion in the background.
const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// runPublish is one fire-and-forget publish task: render → validate →
// ensure-connected → publish → record outcome.
//
// The subscription is a snapshot taken on the engine goroutine; the task
// never touches live store entries. Every exit path records an outcome
// event through the single-writer ingestion path.
func (e *Engine) runPublish(sub subscription.Subscription, value string) {
	defer e.pipelines.Done()

	topic := e.BrokerSettings().TopicPrefix + "/" + sub.TopicSuffix

	text := payload.Render(sub.Template, value)

	if err := payload.Validate(text); err != nil {
		// Terminal for this attempt only: no network call was made and
		// the connection state is untouched. The offending text goes
		// into the log so the user can fix the template.
		e.logger.Warn("publish aborted, payload is not valid JSON",
			"subscription", sub.ID,
			"topic", topic,
			"error", err,
		)
		e.recordOutcome(sub, event.KindInvalidPayload, text)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	err := e.broker.EnsureConnected(ctx)
	cancel()
	if err != nil {
		e.broker.Reset()
		kind := event.KindConnectFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = event.KindTimeout
		}
		e.logger.Warn("publish aborted, connect failed",
			"subscription", sub.ID,
			"topic", topic,
			"error", err,
		)
		e.recordOutcome(sub, kind, err.Error())
		return
	}

	ctx, cancel = context.WithTimeout(context.Background(), publishTimeout)
	err = e.broker.Publish(ctx, topic, []byte(text))
	cancel()
	if err != nil {
		e.broker.Reset()
		kind := event.KindPublishFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = event.KindTimeout
		}
		e.logger.Warn("publish failed",
			"subscription", sub.ID,
			"topic", topic,
			"error", err,
		)
		e.recordOutcome(sub, kind, err.Error())
		return
	}

	e.logger.Debug("published", "topic", topic, "bytes", len(text))
	e.recordOutcome(sub, event.KindPublishSuccess, topic)
}

// recordOutcome funnels a publish result back into the event log through
// the same single-writer path external events take.
func (e *Engine) recordOutcome(sub subscription.Subscription, kind event.Kind, value string) {
	e.HandleEvent(event.Event{
		Timestamp:      time.Now().UTC(),
		Kind:           kind,
		Accessory:      sub.Accessory,
		Characteristic: sub.Characteristic,
		Value:          value,
	})
}
