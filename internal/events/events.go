// Package events dispatches inbound page events to subscribed handlers.
//
// A Bus is not safe for concurrent use on its own; the owning session
// serializes Dispatch, Subscribe and Unsubscribe through its loop.
package events

import "time"

type Kind string

const (
	PointerMove Kind = "pointermove"
	KeyDown     Kind = "keydown"
	Activate    Kind = "activate"
)

type Event struct {
	Kind Kind
	X, Y float64
	Key  string
	At   time.Time
}

type Handler func(Event)

// Subscription is the handle returned by Subscribe. Only the exact handle
// removes the listener.
type Subscription struct {
	kind    Kind
	handler Handler
}

type Bus struct {
	listeners map[Kind][]*Subscription
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[Kind][]*Subscription)}
}

func (b *Bus) Subscribe(kind Kind, h Handler) *Subscription {
	sub := &Subscription{kind: kind, handler: h}
	b.listeners[kind] = append(b.listeners[kind], sub)
	return sub
}

// Unsubscribe removes sub. Unknown or already removed handles are a no-op.
// It reports whether a listener was removed.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	subs := b.listeners[sub.kind]
	for i, s := range subs {
		if s == sub {
			next := make([]*Subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.listeners[sub.kind] = next
			return true
		}
	}
	return false
}

// Dispatch delivers ev to the listeners registered when dispatch started,
// in registration order.
func (b *Bus) Dispatch(ev Event) {
	for _, sub := range b.listeners[ev.Kind] {
		sub.handler(ev)
	}
}

// Len returns the number of listeners for kind.
func (b *Bus) Len(kind Kind) int {
	return len(b.listeners[kind])
}

// Reset drops every listener.
func (b *Bus) Reset() {
	b.listeners = make(map[Kind][]*Subscription)
}
