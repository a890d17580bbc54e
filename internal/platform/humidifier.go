package platform

import (
	"fmt"

	"vesyncbridge/internal/vesync"
)

// HumidifierEntity is the humidifier-category wrapper: it carries the
// per-model mode table and the target-humidity bounds, and rejects
// invalid requests before touching the device.
type HumidifierEntity struct {
	device *vesync.Humidifier
	modes  []string
}

// NewHumidifierEntity wraps a humidifier device.
func NewHumidifierEntity(device vesync.Device) (*HumidifierEntity, error) {
	h, ok := device.(*vesync.Humidifier)
	if !ok {
		return nil, fmt.Errorf("device %s (%s) is not a humidifier", device.ID(), device.Type())
	}
	return &HumidifierEntity{
		device: h,
		modes:  vesync.HumidifierAvailableModes(device.Type()),
	}, nil
}

// Device returns the wrapped device.
func (e *HumidifierEntity) Device() *vesync.Humidifier { return e.device }

// AvailableModes returns the modes this model supports.
func (e *HumidifierEntity) AvailableModes() []string {
	return append([]string(nil), e.modes...)
}

// MinHumidity returns the lower target-humidity bound.
func (e *HumidifierEntity) MinHumidity() int { return vesync.MinHumidity }

// MaxHumidity returns the upper target-humidity bound.
func (e *HumidifierEntity) MaxHumidity() int { return vesync.MaxHumidity }

// TargetHumidity returns the configured target humidity.
func (e *HumidifierEntity) TargetHumidity() int {
	return e.device.Config.AutoTargetHumidity
}

// CurrentHumidity returns the last reported humidity reading.
func (e *HumidifierEntity) CurrentHumidity() int {
	return e.device.Details.Humidity
}

// SetHumidity sets the target humidity, bounds-checked first.
func (e *HumidifierEntity) SetHumidity(target int) error {
	if target < vesync.MinHumidity || target > vesync.MaxHumidity {
		return fmt.Errorf("target humidity %d out of range [%d, %d]",
			target, vesync.MinHumidity, vesync.MaxHumidity)
	}
	return e.device.SetHumidity(target)
}

// SetMode switches the operating mode, checked against the model's
// mode table first.
func (e *HumidifierEntity) SetMode(mode string) error {
	for _, m := range e.modes {
		if m == mode {
			return e.device.SetHumidityMode(mode)
		}
	}
	return fmt.Errorf("mode %q not supported by %s", mode, e.device.Type())
}

// TurnOn powers the humidifier on.
func (e *HumidifierEntity) TurnOn() error {
	return e.device.Toggle(vesync.StatusOn)
}

// TurnOff powers the humidifier off.
func (e *HumidifierEntity) TurnOff() error {
	return e.device.Toggle(vesync.StatusOff)
}
