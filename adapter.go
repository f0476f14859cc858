package ballroom

import (
	"context"
	"errors"
)

var ErrOffline = errors.New("realtime disabled")

// Channel is a live connection to a room. Publish never blocks; an empty
// recipient broadcasts to every other peer in the room.
type Channel interface {
	Publish(to string, m Message)
	Mode() DeliveryMode
	Close() error
}

// Dialer opens a Channel. deliver is called from transport goroutines for
// every inbound envelope and lost once if the channel drops afterwards.
type Dialer interface {
	Dial(ctx context.Context, room string, deliver func(Envelope), lost func(error)) (Channel, error)
}

// offlineChannel swallows everything. Sessions hold one while connecting and
// after going offline so the systems never need a nil check.
type offlineChannel struct{}

func (offlineChannel) Publish(string, Message) {}
func (offlineChannel) Mode() DeliveryMode      { return "" }
func (offlineChannel) Close() error            { return nil }

// OfflineDialer always fails, leaving the session in single-player mode.
type OfflineDialer struct {
	Err error
}

func (od OfflineDialer) Dial(context.Context, string, func(Envelope), func(error)) (Channel, error) {
	if od.Err != nil {
		return nil, od.Err
	}
	return nil, ErrOffline
}
