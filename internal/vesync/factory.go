package vesync

import (
	"fmt"

	"vesyncbridge/internal/classify"
)

// buildDevice constructs the typed record for one device list entry.
// Classification failure or a type with no client implementation is a
// configuration error; the caller logs it and excludes the device.
func (m *Manager) buildDevice(entry deviceListEntry) (Device, error) {
	profile, err := classify.Classify(entry.DeviceType)
	if err != nil {
		return nil, err
	}
	base := newBaseDevice(entry, profile, m)

	switch entry.DeviceType {
	case "wifi-switch-1.3", "ESW03-USA", "ESW01-EU", "ESW15-USA", "ESO15-TB":
		return newOutlet(base), nil
	case "ESWL01", "ESWL03":
		return newWallSwitch(base), nil
	case "ESWD16":
		return newDimmer(base), nil
	case "ESL100":
		return newBulbESL100(base), nil
	case "ESL100CW":
		return newBulbESL100CW(base), nil
	case "LV-PUR131S", "LV-RH131S":
		return newAirPurifier(base), nil
	case "Classic300S", "Classic200S", "Dual200S", "LUH-D301S-WEU", "LUH-A601S-WUSB":
		return newHumidifier(base), nil
	default:
		return nil, fmt.Errorf("device type %q has no client implementation", entry.DeviceType)
	}
}
