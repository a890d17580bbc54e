package vesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesyncbridge/pkg/testutil"
)

func fetchOnlyDevice(t *testing.T, cloud *testutil.MockCloud, fixture testutil.DeviceFixture) Device {
	t.Helper()
	cloud.AddDevice(fixture)
	manager := loginTestManager(t, cloud)
	devices, err := manager.GetDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	return devices[0]
}

func TestBulbESL100Update(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-bulb", UUID: "uuid-bulb", DeviceName: "Lamp",
		DeviceType: "ESL100", ConnectionStatus: "online", DeviceStatus: "on",
		Brightness: 80,
	})
	bulb := dev.(*BulbESL100)

	require.NoError(t, bulb.Update())
	assert.Equal(t, 80, bulb.Brightness())
	assert.True(t, bulb.Online())
	assert.True(t, bulb.IsOn())
}

func TestBulbESL100SetBrightnessBoundaries(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-bulb", UUID: "uuid-bulb", DeviceName: "Lamp",
		DeviceType: "ESL100", ConnectionStatus: "online", DeviceStatus: "on",
	})
	bulb := dev.(*BulbESL100)

	// Rejected values must produce zero network calls.
	before := cloud.TotalCalls()
	for _, v := range []int{-1, 0, 101, 1000} {
		err := bulb.SetBrightness(v)
		assert.Error(t, err, "brightness %d should be rejected", v)
	}
	assert.Equal(t, before, cloud.TotalCalls())

	// Boundary values inside (0, 100] are accepted.
	for _, v := range []int{1, 50, 100} {
		err := bulb.SetBrightness(v)
		assert.NoError(t, err, "brightness %d should be accepted", v)
		assert.Equal(t, v, bulb.Brightness())
	}
	assert.Equal(t, 3, cloud.CallCount("updateBrightness"))
}

func TestBulbESL100ToggleUpdatesStateOnSuccessOnly(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-bulb", UUID: "uuid-bulb", DeviceName: "Lamp",
		DeviceType: "ESL100", ConnectionStatus: "online", DeviceStatus: "off",
	})

	require.NoError(t, dev.Toggle(StatusOn))
	assert.True(t, dev.IsOn())

	err := dev.Toggle("dim")
	assert.Error(t, err)
	assert.True(t, dev.IsOn())
}

func TestBulbESL100CWUpdate(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-cw", UUID: "uuid-cw", DeviceName: "Tunable Lamp",
		DeviceType: "ESL100CW", ConnectionStatus: "online", DeviceStatus: "on",
		Brightness: 60, ColorTemp: 40,
	})
	bulb := dev.(*BulbESL100CW)

	require.NoError(t, bulb.Update())
	assert.Equal(t, 60, bulb.Brightness())
	assert.Equal(t, 40, bulb.ColorTempPct())
	assert.Equal(t, PctToKelvin(40), bulb.ColorTempKelvin())
	assert.True(t, bulb.Online())
}

func TestBulbESL100CWOfflineFallback(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-cw", UUID: "uuid-cw", DeviceName: "Tunable Lamp",
		DeviceType: "ESL100CW", ConnectionStatus: "online", DeviceStatus: "on",
	})
	bulb := dev.(*BulbESL100CW)
	cloud.SetOffline("cid-cw", true)

	// Status fetch: offline is a normal outcome, state forced to
	// offline/off.
	require.NoError(t, bulb.Update())
	assert.Equal(t, StatusOffline, bulb.ConnectionStatus())
	assert.Equal(t, StatusOff, bulb.Status())

	// Command: fallback state applied and the call reports failure.
	bulb.connectionStatus = StatusOnline
	bulb.deviceStatus = StatusOn
	err := bulb.Toggle(StatusOff)
	assert.Error(t, err)
	assert.Equal(t, StatusOffline, bulb.ConnectionStatus())
	assert.Equal(t, StatusOff, bulb.Status())
}

func TestBulbESL100CWSetColorTempBoundaries(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-cw", UUID: "uuid-cw", DeviceName: "Tunable Lamp",
		DeviceType: "ESL100CW", ConnectionStatus: "online", DeviceStatus: "on",
	})
	bulb := dev.(*BulbESL100CW)

	before := cloud.TotalCalls()
	for _, v := range []int{-1, 101} {
		err := bulb.SetColorTemp(v)
		assert.Error(t, err, "color temp %d should be rejected", v)
	}
	assert.Equal(t, before, cloud.TotalCalls())

	for _, v := range []int{0, 50, 100} {
		err := bulb.SetColorTemp(v)
		assert.NoError(t, err, "color temp %d should be accepted", v)
		assert.Equal(t, v, bulb.ColorTempPct())
	}
	assert.Equal(t, StatusOn, bulb.Status())
}

func TestBulbESL100CWSetBrightnessTurnsOnWhenOff(t *testing.T) {
	cloud := testutil.NewMockCloud()
	defer cloud.Close()

	dev := fetchOnlyDevice(t, cloud, testutil.DeviceFixture{
		CID: "cid-cw", UUID: "uuid-cw", DeviceName: "Tunable Lamp",
		DeviceType: "ESL100CW", ConnectionStatus: "online", DeviceStatus: "off",
	})
	bulb := dev.(*BulbESL100CW)

	require.NoError(t, bulb.SetBrightness(25))
	assert.Equal(t, 25, bulb.Brightness())

	calls := cloud.Calls()
	last := calls[len(calls)-1]
	jsonCmd := last.Body["jsonCmd"].(map[string]interface{})
	light := jsonCmd["light"].(map[string]interface{})
	assert.Equal(t, "on", light["action"])
}

func TestPctToKelvin(t *testing.T) {
	assert.Equal(t, 2700, PctToKelvin(0))
	assert.Equal(t, 6500, PctToKelvin(100))
	assert.Equal(t, 4600, PctToKelvin(50))
}
