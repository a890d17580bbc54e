package discovery

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/vesync"
)

// fakeDevice implements vesync.Device without a cloud behind it.
type fakeDevice struct {
	cid        string
	name       string
	deviceType string
	profile    classify.Profile
}

func newFakeDevice(t *testing.T, cid, deviceType string) *fakeDevice {
	t.Helper()
	profile, err := classify.Classify(deviceType)
	require.NoError(t, err)
	return &fakeDevice{cid: cid, name: "Device " + cid, deviceType: deviceType, profile: profile}
}

func (d *fakeDevice) ID() string                 { return d.cid }
func (d *fakeDevice) UUID() string               { return d.cid + "-uuid" }
func (d *fakeDevice) Name() string               { return d.name }
func (d *fakeDevice) Type() string               { return d.deviceType }
func (d *fakeDevice) Profile() classify.Profile  { return d.profile }
func (d *fakeDevice) ConnectionStatus() string   { return vesync.StatusOnline }
func (d *fakeDevice) Status() string             { return vesync.StatusOn }
func (d *fakeDevice) IsOn() bool                 { return true }
func (d *fakeDevice) Online() bool               { return true }
func (d *fakeDevice) Update() error              { return nil }
func (d *fakeDevice) Toggle(status string) error { return nil }

// fakeSource serves a mutable device list.
type fakeSource struct {
	mu      sync.Mutex
	devices []vesync.Device
	err     error
}

func (s *fakeSource) GetDevices() ([]vesync.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]vesync.Device(nil), s.devices...), nil
}

func (s *fakeSource) set(devices ...vesync.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
}

type setupCall struct {
	category classify.Category
	cids     []string
}

type broadcastCall struct {
	channel string
	cids    []string
}

func cids(devices []vesync.Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.ID())
	}
	return out
}

// harness wires a reconciler to a fake source and records every setup
// call and broadcast.
type harness struct {
	source     *fakeSource
	reconciler *Reconciler

	mu         sync.Mutex
	setups     []setupCall
	broadcasts []broadcastCall
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{source: &fakeSource{}}
	dispatcher := NewDispatcher(zap.NewNop())
	for _, category := range classify.Categories {
		dispatcher.Subscribe(ChannelFor(category), func(channel string, devices []vesync.Device) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.broadcasts = append(h.broadcasts, broadcastCall{channel: channel, cids: cids(devices)})
		})
	}
	h.reconciler = NewReconciler(h.source, dispatcher, func(category classify.Category, devices []vesync.Device) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.setups = append(h.setups, setupCall{category: category, cids: cids(devices)})
	}, zap.NewNop())
	return h
}

func TestReconcileFirstDiscoveryRunsSetupWithoutBroadcast(t *testing.T) {
	h := newHarness(t)
	h.source.set(newFakeDevice(t, "outlet-1", "ESW15-USA"))

	require.NoError(t, h.reconciler.Reconcile())

	require.Len(t, h.setups, 2)
	assert.Equal(t, classify.CategorySwitch, h.setups[0].category)
	assert.Equal(t, []string{"outlet-1"}, h.setups[0].cids)
	assert.Equal(t, classify.CategorySensor, h.setups[1].category)
	assert.Empty(t, h.broadcasts)
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.source.set(newFakeDevice(t, "bulb-1", "ESL100"))

	require.NoError(t, h.reconciler.Reconcile())
	require.NoError(t, h.reconciler.Reconcile())
	require.NoError(t, h.reconciler.Reconcile())

	assert.Len(t, h.setups, 1)
	assert.Empty(t, h.broadcasts)
	assert.Len(t, h.reconciler.Devices(classify.CategoryLight), 1)
}

func TestReconcileBroadcastsOnlyAddedDevices(t *testing.T) {
	h := newHarness(t)
	first := newFakeDevice(t, "bulb-1", "ESL100")
	h.source.set(first)
	require.NoError(t, h.reconciler.Reconcile())

	h.source.set(first, newFakeDevice(t, "bulb-2", "ESL100CW"))
	require.NoError(t, h.reconciler.Reconcile())

	require.Len(t, h.broadcasts, 1)
	assert.Equal(t, ChannelFor(classify.CategoryLight), h.broadcasts[0].channel)
	assert.Equal(t, []string{"bulb-2"}, h.broadcasts[0].cids)
	assert.Len(t, h.setups, 1)
}

func TestReconcileKeepsRemovedDevices(t *testing.T) {
	h := newHarness(t)
	first := newFakeDevice(t, "sw-1", "ESWL01")
	h.source.set(first, newFakeDevice(t, "sw-2", "ESWL03"))
	require.NoError(t, h.reconciler.Reconcile())

	// Cloud list shrinks; the bucket must not.
	h.source.set(first)
	require.NoError(t, h.reconciler.Reconcile())

	assert.Len(t, h.reconciler.Devices(classify.CategorySwitch), 2)
	assert.Empty(t, h.broadcasts)
}

func TestReconcileHandlesMultipleCategoriesPerPass(t *testing.T) {
	h := newHarness(t)
	h.source.set(newFakeDevice(t, "bulb-1", "ESL100"))
	require.NoError(t, h.reconciler.Reconcile())

	// One pass adds a light (active category, broadcast) and a
	// humidifier (three uninitialized categories, three setups).
	h.source.set(
		newFakeDevice(t, "bulb-1", "ESL100"),
		newFakeDevice(t, "bulb-2", "ESL100"),
		newFakeDevice(t, "hum-1", "Classic300S"),
	)
	require.NoError(t, h.reconciler.Reconcile())

	require.Len(t, h.broadcasts, 1)
	assert.Equal(t, []string{"bulb-2"}, h.broadcasts[0].cids)

	var categories []classify.Category
	for _, call := range h.setups {
		categories = append(categories, call.category)
	}
	assert.Equal(t, []classify.Category{
		classify.CategoryLight,
		classify.CategoryHumidifier,
		classify.CategoryNumber,
		classify.CategoryBinarySensor,
	}, categories)
}

func TestReconcileMultiCategoryDeviceLandsInEachBucket(t *testing.T) {
	h := newHarness(t)
	h.source.set(newFakeDevice(t, "out-1", "ESO15-TB"))
	require.NoError(t, h.reconciler.Reconcile())

	assert.Len(t, h.reconciler.Devices(classify.CategorySwitch), 1)
	assert.Len(t, h.reconciler.Devices(classify.CategorySensor), 1)

	buckets := h.reconciler.Buckets()
	assert.Len(t, buckets, 2)
}

func TestReconcileFetchErrorLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.source.set(newFakeDevice(t, "bulb-1", "ESL100"))
	require.NoError(t, h.reconciler.Reconcile())

	h.source.err = errors.New("cloud unreachable")
	err := h.reconciler.Reconcile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device fetch failed")

	assert.Len(t, h.reconciler.Devices(classify.CategoryLight), 1)
	assert.Len(t, h.setups, 1)
}

func TestDispatcherChannelIsolation(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())

	var lightCalls, fanCalls int
	dispatcher.Subscribe(ChannelFor(classify.CategoryLight), func(string, []vesync.Device) {
		lightCalls++
	})
	dispatcher.Subscribe(ChannelFor(classify.CategoryFan), func(string, []vesync.Device) {
		fanCalls++
	})

	dispatcher.Send(ChannelFor(classify.CategoryLight), nil)
	dispatcher.Send(ChannelFor(classify.CategoryLight), nil)

	assert.Equal(t, 2, lightCalls)
	assert.Zero(t, fanCalls)
}

func TestDispatcherUnsubscribeStopsDelivery(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())

	var calls int
	sub := dispatcher.Subscribe("vesync_discovery_lights", func(string, []vesync.Device) {
		calls++
	})

	dispatcher.Send("vesync_discovery_lights", nil)
	require.NoError(t, sub.Unsubscribe())
	dispatcher.Send("vesync_discovery_lights", nil)

	assert.Equal(t, 1, calls)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func TestDispatcherForwardsEventsToSinks(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	sink := &recordingSink{}
	dispatcher.AddSink(sink)

	device := newFakeDevice(t, "bulb-9", "ESL100")
	dispatcher.Send(ChannelFor(classify.CategoryLight), []vesync.Device{device})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "vesync_discovery_lights", sink.events[0].Channel)
	require.Len(t, sink.events[0].Devices, 1)
	assert.Equal(t, EventDevice{CID: "bulb-9", Name: "Device bulb-9", DeviceType: "ESL100"}, sink.events[0].Devices[0])
}
