package notifier

import (
	log "github.com/sirupsen/logrus"
)

// EventMetricsUpdate is published once per pair whose metrics were stored.
const EventMetricsUpdate = "metricsUpdate"

// Broadcaster delivers an event to its subscribers. Publish is fire-and-forget:
// it must not block on slow subscribers and having none is not an error.
type Broadcaster interface {
	Publish(event string, payload any)
}

// Fanout publishes every event to each of its broadcasters in order.
type Fanout []Broadcaster

func (f Fanout) Publish(event string, payload any) {
	for _, b := range f {
		if b == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("event", event).Errorf("[notifier] broadcaster panicked: %v", r)
				}
			}()
			b.Publish(event, payload)
		}()
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(string, any) {}
