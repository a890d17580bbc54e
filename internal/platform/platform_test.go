package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/discovery"
	"vesyncbridge/internal/vesync"
	"vesyncbridge/pkg/testutil"
)

// fetchDevices logs into a mock cloud seeded with fixtures and returns
// the typed device records.
func fetchDevices(t *testing.T, fixtures ...testutil.DeviceFixture) ([]vesync.Device, *testutil.MockCloud) {
	t.Helper()

	cloud := testutil.NewMockCloud()
	t.Cleanup(cloud.Close)
	for _, f := range fixtures {
		cloud.AddDevice(f)
	}

	manager := vesync.NewManager("user@example.com", "secret", "America/New_York", zap.NewNop())
	manager.SetBaseURL(cloud.URL())
	require.NoError(t, manager.Login())

	devices, err := manager.GetDevices()
	require.NoError(t, err)
	require.Len(t, devices, len(fixtures))
	return devices, cloud
}

func humidifierFixture() testutil.DeviceFixture {
	return testutil.DeviceFixture{
		CID:              "hum-1",
		UUID:             "hum-1-uuid",
		DeviceName:       "Bedroom Humidifier",
		DeviceType:       "Classic300S",
		ConfigModule:     "WFON_AHM_LUH-A601S-WUSB_US",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
		Humidity:         45,
		MistLevel:        3,
		Mode:             "manual",
		TargetHumidity:   50,
	}
}

func TestBuildEntitiesHumidifierAcrossCategories(t *testing.T) {
	devices, _ := fetchDevices(t, humidifierFixture())
	device := devices[0]

	humidifiers := BuildEntities(classify.CategoryHumidifier, device)
	require.Len(t, humidifiers, 1)
	assert.Equal(t, "hum-1", humidifiers[0].ID)
	assert.Equal(t, ClassHumidifier, humidifiers[0].Class)

	numbers := BuildEntities(classify.CategoryNumber, device)
	require.Len(t, numbers, 1)
	assert.Equal(t, "hum-1-mist-level", numbers[0].ID)
	assert.Equal(t, vesync.MinMistLevel, numbers[0].Min)
	assert.Equal(t, vesync.MaxMistLevel, numbers[0].Max)
	assert.Equal(t, 1, numbers[0].Step)

	binary := BuildEntities(classify.CategoryBinarySensor, device)
	require.Len(t, binary, 2)
	assert.Equal(t, "hum-1-water-lacks", binary[0].ID)
	assert.Equal(t, "hum-1-water-tank-lifted", binary[1].ID)
}

func TestBuildEntitiesOutletSensors(t *testing.T) {
	devices, _ := fetchDevices(t, testutil.DeviceFixture{
		CID:              "out-1",
		UUID:             "out-1-uuid",
		DeviceName:       "Patio Outlet",
		DeviceType:       "ESO15-TB",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
		Energy:           1.5,
		Power:            60,
		Voltage:          120,
	})
	device := devices[0]

	sensors := BuildEntities(classify.CategorySensor, device)
	require.Len(t, sensors, 3)
	assert.Equal(t, "out-1-energy", sensors[0].ID)
	assert.Equal(t, "out-1-power", sensors[1].ID)
	assert.Equal(t, "out-1-voltage", sensors[2].ID)

	require.NoError(t, device.Update())
	assert.Equal(t, 1.5, sensors[0].Value())
	assert.Equal(t, 60.0, sensors[1].Value())
	assert.Equal(t, 120.0, sensors[2].Value())
}

func TestBuildEntitiesPurifierSensors(t *testing.T) {
	devices, _ := fetchDevices(t, testutil.DeviceFixture{
		CID:              "pur-1",
		UUID:             "pur-1-uuid",
		DeviceName:       "Living Room Purifier",
		DeviceType:       "LV-PUR131S",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
		AirQuality:       "excellent",
		FilterLife:       82,
		FanSpeed:         2,
		Mode:             "manual",
	})
	device := devices[0]

	sensors := BuildEntities(classify.CategorySensor, device)
	require.Len(t, sensors, 2)
	assert.Equal(t, "pur-1-air-quality", sensors[0].ID)
	assert.Equal(t, "pur-1-filter-life", sensors[1].ID)

	require.NoError(t, device.Update())
	assert.Equal(t, "excellent", sensors[0].Value())
	assert.Equal(t, 82, sensors[1].Value())
}

func TestMistLevelEntityValueAndSetter(t *testing.T) {
	devices, cloud := fetchDevices(t, humidifierFixture())
	device := devices[0]
	require.NoError(t, device.Update())

	numbers := BuildEntities(classify.CategoryNumber, device)
	require.Len(t, numbers, 1)
	entity := numbers[0]
	assert.Equal(t, 3, entity.Value())

	require.NoError(t, entity.SetValue(5))
	assert.Equal(t, 5, entity.Value())

	before := cloud.TotalCalls()
	assert.Error(t, entity.SetValue(0))
	assert.Error(t, entity.SetValue(10))
	assert.Equal(t, before, cloud.TotalCalls())
}

func TestHumidifierEntityBounds(t *testing.T) {
	devices, cloud := fetchDevices(t, humidifierFixture())
	entity, err := NewHumidifierEntity(devices[0])
	require.NoError(t, err)

	assert.Equal(t, []string{"auto", "manual", "sleep"}, entity.AvailableModes())
	assert.Equal(t, 30, entity.MinHumidity())
	assert.Equal(t, 80, entity.MaxHumidity())

	before := cloud.TotalCalls()
	assert.Error(t, entity.SetHumidity(29))
	assert.Error(t, entity.SetHumidity(81))
	assert.Error(t, entity.SetMode("turbo"))
	assert.Equal(t, before, cloud.TotalCalls())

	require.NoError(t, entity.SetHumidity(55))
	require.NoError(t, entity.SetMode("sleep"))
	require.NoError(t, entity.TurnOff())
}

func TestHumidifierEntityRejectsOtherFamilies(t *testing.T) {
	devices, _ := fetchDevices(t, testutil.DeviceFixture{
		CID:              "bulb-1",
		UUID:             "bulb-1-uuid",
		DeviceName:       "Desk Bulb",
		DeviceType:       "ESL100",
		ConnectionStatus: "online",
		DeviceStatus:     "on",
	})

	_, err := NewHumidifierEntity(devices[0])
	assert.Error(t, err)
}

func TestRegistryGrowsThroughDiscovery(t *testing.T) {
	humDevices, _ := fetchDevices(t, humidifierFixture())

	dispatcher := discovery.NewDispatcher(zap.NewNop())
	registry := NewRegistry(zap.NewNop())
	setup := registry.Setup(dispatcher)

	// First discovery initializes the adapters.
	setup(classify.CategoryHumidifier, humDevices)
	setup(classify.CategoryNumber, humDevices)
	require.Len(t, registry.Entities(classify.CategoryHumidifier), 1)
	require.Len(t, registry.Entities(classify.CategoryNumber), 1)

	// Later additions arrive on the channel.
	moreDevices, _ := fetchDevices(t, testutil.DeviceFixture{
		CID:              "hum-2",
		UUID:             "hum-2-uuid",
		DeviceName:       "Office Humidifier",
		DeviceType:       "Dual200S",
		ConnectionStatus: "online",
		DeviceStatus:     "off",
	})
	dispatcher.Send(discovery.ChannelFor(classify.CategoryNumber), moreDevices)

	numbers := registry.Entities(classify.CategoryNumber)
	require.Len(t, numbers, 2)
	assert.Equal(t, "hum-2-mist-level", numbers[1].ID)

	registry.Close()
	dispatcher.Send(discovery.ChannelFor(classify.CategoryNumber), moreDevices)
	assert.Len(t, registry.Entities(classify.CategoryNumber), 2)
}
