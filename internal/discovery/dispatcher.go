// Package discovery owns the per-category device buckets, the periodic
// reconciliation that diffs the cloud device list against them, and the
// broadcast channels that carry "devices added" signals to subscribers.
package discovery

import (
	"sync"

	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/vesync"
)

// ChannelFor returns the broadcast channel name for a category.
func ChannelFor(category classify.Category) string {
	return "vesync_discovery_" + string(category)
}

// Handler receives the newly discovered devices for one channel.
type Handler func(channel string, devices []vesync.Device)

// Subscription represents an active channel subscription.
type Subscription interface {
	Unsubscribe() error
}

// Sink receives every broadcast regardless of channel; used to forward
// discovery events outside the process (MQTT, WebSocket feed).
type Sink interface {
	Publish(event Event)
}

// EventDevice is the wire shape of one device in an outbound event.
type EventDevice struct {
	CID        string `json:"cid"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
}

// Event is the wire shape of one discovery broadcast.
type Event struct {
	Channel string        `json:"channel"`
	Devices []EventDevice `json:"devices"`
}

// NewEvent builds the outbound event for a broadcast.
func NewEvent(channel string, devices []vesync.Device) Event {
	event := Event{Channel: channel, Devices: make([]EventDevice, 0, len(devices))}
	for _, d := range devices {
		event.Devices = append(event.Devices, EventDevice{
			CID:        d.ID(),
			Name:       d.Name(),
			DeviceType: d.Type(),
		})
	}
	return event
}

// subscriberEntry holds a handler with its unique subscription ID.
type subscriberEntry struct {
	subID   int
	handler Handler
}

// Dispatcher delivers per-category broadcasts to in-process handlers
// and registered sinks.
type Dispatcher struct {
	logger *zap.Logger

	subsMu      sync.RWMutex
	subscribers map[string][]subscriberEntry
	nextSubID   int

	sinksMu sync.RWMutex
	sinks   []Sink
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:      logger.Named("dispatch"),
		subscribers: make(map[string][]subscriberEntry),
	}
}

// Subscribe registers a handler for one channel.
func (d *Dispatcher) Subscribe(channel string, handler Handler) Subscription {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	subID := d.nextSubID
	d.nextSubID++
	d.subscribers[channel] = append(d.subscribers[channel], subscriberEntry{
		subID:   subID,
		handler: handler,
	})

	return &subscription{channel: channel, subID: subID, dispatcher: d}
}

// AddSink registers a sink for all channels.
func (d *Dispatcher) AddSink(sink Sink) {
	d.sinksMu.Lock()
	defer d.sinksMu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Send broadcasts newly discovered devices on a channel. Handlers run
// synchronously in registration order.
func (d *Dispatcher) Send(channel string, devices []vesync.Device) {
	d.subsMu.RLock()
	entries := append([]subscriberEntry(nil), d.subscribers[channel]...)
	d.subsMu.RUnlock()

	d.logger.Debug("Broadcasting discovery signal",
		zap.String("channel", channel),
		zap.Int("devices", len(devices)),
		zap.Int("subscribers", len(entries)))

	for _, entry := range entries {
		entry.handler(channel, devices)
	}

	d.sinksMu.RLock()
	sinks := append([]Sink(nil), d.sinks...)
	d.sinksMu.RUnlock()

	if len(sinks) == 0 {
		return
	}
	event := NewEvent(channel, devices)
	for _, sink := range sinks {
		sink.Publish(event)
	}
}

// unsubscribe removes a specific subscription by channel and ID.
func (d *Dispatcher) unsubscribe(channel string, subID int) error {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	entries, ok := d.subscribers[channel]
	if !ok {
		return nil
	}

	for i, entry := range entries {
		if entry.subID == subID {
			d.subscribers[channel] = append(entries[:i], entries[i+1:]...)
			if len(d.subscribers[channel]) == 0 {
				delete(d.subscribers, channel)
			}
			break
		}
	}
	return nil
}

type subscription struct {
	channel    string
	subID      int
	dispatcher *Dispatcher
}

func (s *subscription) Unsubscribe() error {
	return s.dispatcher.unsubscribe(s.channel, s.subID)
}
