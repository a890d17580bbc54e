// Package platform mirrors discovered devices as host-facing entity
// records, one adapter per category channel. The registry subscribes to
// the discovery channels and grows its entity lists as devices arrive;
// it is the bridge's own in-process mirror, not a host platform
// embedding.
package platform

import (
	"fmt"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/vesync"
)

// Entity classes, used as the device_class-style discriminator on
// derived entities.
const (
	ClassSwitch          = "switch"
	ClassFan             = "fan"
	ClassLight           = "light"
	ClassHumidifier      = "humidifier"
	ClassMistLevel       = "mist_level"
	ClassWaterLacks      = "water_lacks"
	ClassWaterTankLifted = "water_tank_lifted"
	ClassEnergy          = "energy"
	ClassPower           = "power"
	ClassVoltage         = "voltage"
	ClassAirQuality      = "air_quality"
	ClassFilterLife      = "filter_life"
)

// Entity is one host-facing record derived from a device. A device can
// back several entities across categories (a humidifier also yields a
// mist-level number and two water binary sensors).
type Entity struct {
	ID       string
	Name     string
	Category classify.Category
	Class    string
	Device   vesync.Device

	// Number-entity range; zero for other categories.
	Min  int
	Max  int
	Step int
}

// Value returns the entity's current reading from the device mirror.
func (e Entity) Value() interface{} {
	switch e.Class {
	case ClassMistLevel:
		if h, ok := e.Device.(*vesync.Humidifier); ok {
			return h.Details.MistVirtualLevel
		}
	case ClassWaterLacks:
		if h, ok := e.Device.(*vesync.Humidifier); ok {
			return h.Details.WaterLacks
		}
	case ClassWaterTankLifted:
		if h, ok := e.Device.(*vesync.Humidifier); ok {
			return h.Details.WaterTankLifted
		}
	case ClassEnergy:
		if o, ok := e.Device.(*vesync.Outlet); ok {
			return o.Details.Energy
		}
	case ClassPower:
		if o, ok := e.Device.(*vesync.Outlet); ok {
			return o.Details.Power
		}
	case ClassVoltage:
		if o, ok := e.Device.(*vesync.Outlet); ok {
			return o.Details.Voltage
		}
	case ClassAirQuality:
		if p, ok := e.Device.(*vesync.AirPurifier); ok {
			return p.Details.AirQuality
		}
	case ClassFilterLife:
		if p, ok := e.Device.(*vesync.AirPurifier); ok {
			return p.Details.FilterLife
		}
	}
	return e.Device.Status()
}

// SetValue applies a new value to a number entity.
func (e Entity) SetValue(value int) error {
	if e.Class != ClassMistLevel {
		return fmt.Errorf("entity %s does not accept values", e.ID)
	}
	h, ok := e.Device.(*vesync.Humidifier)
	if !ok {
		return fmt.Errorf("entity %s is not backed by a humidifier", e.ID)
	}
	return h.SetMistLevel(value)
}

// BuildEntities derives the entity records one device contributes to a
// category. The split mirrors the integration's platform files: primary
// categories wrap the device directly, secondary categories derive
// reading entities from it.
func BuildEntities(category classify.Category, device vesync.Device) []Entity {
	profile := device.Profile()

	switch category {
	case classify.CategorySwitch:
		return []Entity{direct(device, category, ClassSwitch)}
	case classify.CategoryFan:
		return []Entity{direct(device, category, ClassFan)}
	case classify.CategoryLight:
		return []Entity{direct(device, category, ClassLight)}
	case classify.CategoryHumidifier:
		return []Entity{direct(device, category, ClassHumidifier)}

	case classify.CategoryNumber:
		if !profile.HasFeature(classify.FeatureMistLevel) {
			return nil
		}
		return []Entity{{
			ID:       device.ID() + "-mist-level",
			Name:     device.Name() + " Mist Level",
			Category: category,
			Class:    ClassMistLevel,
			Device:   device,
			Min:      vesync.MinMistLevel,
			Max:      vesync.MaxMistLevel,
			Step:     1,
		}}

	case classify.CategoryBinarySensor:
		if !profile.HasFeature(classify.FeatureTargetHumidity) {
			return nil
		}
		return []Entity{
			derived(device, category, ClassWaterLacks, "-water-lacks", " Water Lacks"),
			derived(device, category, ClassWaterTankLifted, "-water-tank-lifted", " Water Tank Lifted"),
		}

	case classify.CategorySensor:
		var entities []Entity
		if profile.HasFeature(classify.FeatureEnergy) {
			entities = append(entities,
				derived(device, category, ClassEnergy, "-energy", " Energy"),
				derived(device, category, ClassPower, "-power", " Power"),
				derived(device, category, ClassVoltage, "-voltage", " Voltage"),
			)
		}
		if profile.HasFeature(classify.FeatureAirQuality) {
			entities = append(entities, derived(device, category, ClassAirQuality, "-air-quality", " Air Quality"))
		}
		if profile.HasFeature(classify.FeatureFilterLife) {
			entities = append(entities, derived(device, category, ClassFilterLife, "-filter-life", " Filter Life"))
		}
		return entities
	}
	return nil
}

func direct(device vesync.Device, category classify.Category, class string) Entity {
	return Entity{
		ID:       device.ID(),
		Name:     device.Name(),
		Category: category,
		Class:    class,
		Device:   device,
	}
}

func derived(device vesync.Device, category classify.Category, class, idSuffix, nameSuffix string) Entity {
	return Entity{
		ID:       device.ID() + idSuffix,
		Name:     device.Name() + nameSuffix,
		Category: category,
		Class:    class,
		Device:   device,
	}
}
