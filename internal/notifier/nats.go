package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher forwards events as JSON to the subject "<prefix>.<event>".
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("pair-sentinel"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	log.Infof("[notifier] connected to NATS at %s", url)
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event string) string {
	if p.prefix == "" {
		return event
	}
	return p.prefix + "." + event
}

func (p *NATSPublisher) Publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithField("event", event).Errorf("[notifier] encode nats payload: %v", err)
		return
	}
	if err := p.conn.Publish(p.Subject(event), data); err != nil {
		log.WithField("event", event).Warnf("[notifier] nats publish: %v", err)
	}
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
