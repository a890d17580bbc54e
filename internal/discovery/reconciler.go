package discovery

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/vesync"
)

// Source fetches the current remote device list.
type Source interface {
	GetDevices() ([]vesync.Device, error)
}

// SetupFunc runs first-time platform initialization for a category.
// It is called at most once per category, with the devices that
// triggered the initialization.
type SetupFunc func(category classify.Category, devices []vesync.Device)

// Reconciler diffs each fetched device list against the per-category
// buckets. A device new to an uninitialized category triggers setup for
// that category; a device new to an active category is broadcast on the
// category's channel. Buckets only grow; devices that disappear from
// the cloud list are kept and report their own staleness via
// connection status.
type Reconciler struct {
	mu         sync.Mutex
	source     Source
	dispatcher *Dispatcher
	setup      SetupFunc
	logger     *zap.Logger

	buckets map[classify.Category][]vesync.Device
	seen    map[classify.Category]map[string]struct{}
}

// NewReconciler creates a reconciler with empty buckets for every
// category.
func NewReconciler(source Source, dispatcher *Dispatcher, setup SetupFunc, logger *zap.Logger) *Reconciler {
	r := &Reconciler{
		source:     source,
		dispatcher: dispatcher,
		setup:      setup,
		logger:     logger.Named("reconcile"),
		buckets:    make(map[classify.Category][]vesync.Device, len(classify.Categories)),
		seen:       make(map[classify.Category]map[string]struct{}, len(classify.Categories)),
	}
	for _, category := range classify.Categories {
		r.seen[category] = make(map[string]struct{})
	}
	return r
}

// Reconcile runs one discovery pass: fetch, diff, setup or broadcast.
// Every category is processed each pass, so one pass can both
// initialize a category and broadcast into others. Passes are
// serialized; overlapping callers queue behind the mutex.
func (r *Reconciler) Reconcile() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices, err := r.source.GetDevices()
	if err != nil {
		return fmt.Errorf("device fetch failed: %w", err)
	}

	grouped := groupByCategory(devices)
	for _, category := range classify.Categories {
		fresh := r.diff(category, grouped[category])
		if len(fresh) == 0 {
			continue
		}

		active := len(r.buckets[category]) > 0
		r.buckets[category] = append(r.buckets[category], fresh...)
		for _, d := range fresh {
			r.seen[category][d.ID()] = struct{}{}
		}

		if active {
			r.logger.Info("New devices discovered",
				zap.String("category", string(category)),
				zap.Int("count", len(fresh)))
			r.dispatcher.Send(ChannelFor(category), fresh)
		} else {
			r.logger.Info("Initializing category",
				zap.String("category", string(category)),
				zap.Int("count", len(fresh)))
			if r.setup != nil {
				r.setup(category, fresh)
			}
		}
	}
	return nil
}

// diff returns the devices in current that the category has not seen
// yet, preserving list order.
func (r *Reconciler) diff(category classify.Category, current []vesync.Device) []vesync.Device {
	var fresh []vesync.Device
	for _, d := range current {
		if _, ok := r.seen[category][d.ID()]; !ok {
			fresh = append(fresh, d)
		}
	}
	return fresh
}

// Devices returns a copy of one category's bucket.
func (r *Reconciler) Devices(category classify.Category) []vesync.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]vesync.Device(nil), r.buckets[category]...)
}

// Buckets returns a copy of every non-empty bucket.
func (r *Reconciler) Buckets() map[classify.Category][]vesync.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[classify.Category][]vesync.Device, len(r.buckets))
	for category, devices := range r.buckets {
		if len(devices) == 0 {
			continue
		}
		out[category] = append([]vesync.Device(nil), devices...)
	}
	return out
}

// groupByCategory buckets a device list by every category its profile
// belongs to. A multi-category device appears in each of its buckets.
func groupByCategory(devices []vesync.Device) map[classify.Category][]vesync.Device {
	grouped := make(map[classify.Category][]vesync.Device)
	for _, d := range devices {
		for _, category := range d.Profile().Categories {
			grouped[category] = append(grouped[category], d)
		}
	}
	return grouped
}
