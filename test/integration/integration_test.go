// Package integration exercises the bridge end to end against the mock
// VeSync cloud: login, discovery, platform setup, incremental signals,
// the HTTP API and the WebSocket feed.
package integration

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vesyncbridge/internal/api"
	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/discovery"
	"vesyncbridge/internal/platform"
	"vesyncbridge/internal/vesync"
	"vesyncbridge/pkg/testutil"
)

// bridge is a fully wired bridge instance backed by the mock cloud.
type bridge struct {
	cloud      *testutil.MockCloud
	manager    *vesync.Manager
	dispatcher *discovery.Dispatcher
	registry   *platform.Registry
	reconciler *discovery.Reconciler
	server     *api.Server

	mu         sync.Mutex
	broadcasts map[string][][]string // channel -> one cid list per signal
}

// setupBridge builds the full pipeline and logs in. Devices can be
// seeded on the returned cloud before the first Reconcile.
func setupBridge(t *testing.T) *bridge {
	t.Helper()

	cloud := testutil.NewMockCloud()
	t.Cleanup(cloud.Close)

	logger, _ := zap.NewDevelopment()

	manager := vesync.NewManager("user@example.com", "secret", "America/New_York", logger)
	manager.SetBaseURL(cloud.URL())
	require.NoError(t, manager.Login())

	b := &bridge{
		cloud:      cloud,
		manager:    manager,
		broadcasts: make(map[string][][]string),
	}

	b.dispatcher = discovery.NewDispatcher(logger)
	for _, category := range classify.Categories {
		b.dispatcher.Subscribe(discovery.ChannelFor(category), func(channel string, devices []vesync.Device) {
			ids := make([]string, 0, len(devices))
			for _, d := range devices {
				ids = append(ids, d.ID())
			}
			b.mu.Lock()
			b.broadcasts[channel] = append(b.broadcasts[channel], ids)
			b.mu.Unlock()
		})
	}

	b.registry = platform.NewRegistry(logger)
	t.Cleanup(b.registry.Close)

	b.reconciler = discovery.NewReconciler(manager, b.dispatcher, b.registry.Setup(b.dispatcher), logger)

	b.server = api.NewServer(b.reconciler, b.reconciler, logger, 0)
	b.dispatcher.AddSink(b.server)

	return b
}

// signals returns the recorded broadcasts for one channel.
func (b *bridge) signals(channel string) [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]string, len(b.broadcasts[channel]))
	copy(out, b.broadcasts[channel])
	return out
}

func humidifierFixture(cid, name string) testutil.DeviceFixture {
	return testutil.DeviceFixture{
		CID:              cid,
		UUID:             cid + "-uuid",
		DeviceName:       name,
		DeviceType:       "Classic300S",
		ConfigModule:     "WFON_AHM_LUH-A601S-WUSB_US",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
		Humidity:         40,
		MistLevel:        2,
		Mode:             "auto",
		TargetHumidity:   50,
	}
}

func outletFixture(cid, name string) testutil.DeviceFixture {
	return testutil.DeviceFixture{
		CID:              cid,
		UUID:             cid + "-uuid",
		DeviceName:       name,
		DeviceType:       "ESW15-USA",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
		Energy:           2.4,
		Power:            55,
		Voltage:          121,
	}
}

func unknownFixture(cid, deviceType string) testutil.DeviceFixture {
	return testutil.DeviceFixture{
		CID:              cid,
		UUID:             cid + "-uuid",
		DeviceName:       "Mystery " + cid,
		DeviceType:       deviceType,
		ConnectionStatus: "online",
		DeviceStatus:     "on",
	}
}

func bulbFixture(cid, name string) testutil.DeviceFixture {
	return testutil.DeviceFixture{
		CID:              cid,
		UUID:             cid + "-uuid",
		DeviceName:       name,
		DeviceType:       "ESL100CW",
		ConfigModule:     "WifiSmartBulb",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
		Brightness:       75,
		ColorTemp:        40,
	}
}
