package bridge

import "github.com/nerrad567/hkbridge/internal/event"

// Source is the boundary to the external event integration: whatever
// discovers accessories and observes state changes delivers them here.
//
// The engine assumes only that deliveries are serialized with respect to
// each other; it makes no other assumption about the source's scheduling
// and never blocks a delivery on network activity.
type Source interface {
	// Subscribe registers the delivery callback. The source calls it
	// once per observed event, in arrival order.
	Subscribe(deliver func(event.Event))
}

// AttachSource connects a source's deliveries to the engine's ingestion
// path.
func (e *Engine) AttachSource(src Source) {
	src.Subscribe(e.HandleEvent)
}
