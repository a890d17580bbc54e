package platform

import (
	"sync"

	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/discovery"
	"vesyncbridge/internal/vesync"
)

// Registry holds the derived entities per category. First-time setup
// for a category comes through Setup (wired as the reconciler's setup
// callback); later additions arrive on the category's discovery
// channel.
type Registry struct {
	logger *zap.Logger

	mu       sync.RWMutex
	entities map[classify.Category][]Entity
	subs     []discovery.Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger.Named("platform"),
		entities: make(map[classify.Category][]Entity),
	}
}

// Setup initializes a category's adapter: builds entities for the
// first devices and subscribes to the category's channel for devices
// discovered later.
func (r *Registry) Setup(dispatcher *discovery.Dispatcher) discovery.SetupFunc {
	return func(category classify.Category, devices []vesync.Device) {
		sub := dispatcher.Subscribe(discovery.ChannelFor(category), func(_ string, added []vesync.Device) {
			r.add(category, added)
		})

		r.mu.Lock()
		r.subs = append(r.subs, sub)
		r.mu.Unlock()

		r.add(category, devices)
	}
}

// add derives and stores entities for newly discovered devices.
func (r *Registry) add(category classify.Category, devices []vesync.Device) {
	var fresh []Entity
	for _, device := range devices {
		fresh = append(fresh, BuildEntities(category, device)...)
	}
	if len(fresh) == 0 {
		return
	}

	r.mu.Lock()
	r.entities[category] = append(r.entities[category], fresh...)
	r.mu.Unlock()

	r.logger.Info("Entities added",
		zap.String("category", string(category)),
		zap.Int("count", len(fresh)))
}

// Entities returns a copy of one category's entity list.
func (r *Registry) Entities(category classify.Category) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entity(nil), r.entities[category]...)
}

// Close unsubscribes every category adapter.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
}
