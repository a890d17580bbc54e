// Package classify maps VeSync device-type strings to their declared
// capabilities and target platform categories. The tables are fixed at
// compile time; anything not listed is treated as a configuration error
// and the device is excluded by the caller.
package classify

import "fmt"

// Feature is a capability a device type declares.
type Feature string

const (
	FeatureDimmable       Feature = "dimmable"
	FeatureColorTemp      Feature = "color_temp"
	FeatureRGBShift       Feature = "rgb_shift"
	FeatureEnergy         Feature = "energy"
	FeatureNightLight     Feature = "night_light"
	FeatureAirQuality     Feature = "air_quality"
	FeatureFanSpeed       Feature = "fan_speed"
	FeatureFilterLife     Feature = "filter_life"
	FeatureMistLevel      Feature = "mist_level"
	FeatureTargetHumidity Feature = "target_humidity"
)

// Category is one of the seven platform categories a device can land in.
type Category string

const (
	CategorySwitch       Category = "switches"
	CategoryFan          Category = "fans"
	CategoryLight        Category = "lights"
	CategorySensor       Category = "sensors"
	CategoryHumidifier   Category = "humidifiers"
	CategoryNumber       Category = "numbers"
	CategoryBinarySensor Category = "binary_sensors"
)

// Categories lists every platform category in bucket iteration order.
var Categories = []Category{
	CategorySwitch,
	CategoryFan,
	CategoryLight,
	CategorySensor,
	CategoryHumidifier,
	CategoryNumber,
	CategoryBinarySensor,
}

// Profile is the declared capability set and category placement for a
// device type. Categories[0] is the primary platform; the rest are
// secondary buckets the same device also populates (a humidifier also
// yields number and binary sensor entities).
type Profile struct {
	Features   []Feature
	Categories []Category
}

// HasFeature reports whether the profile declares the given feature.
func (p Profile) HasFeature(f Feature) bool {
	for _, have := range p.Features {
		if have == f {
			return true
		}
	}
	return false
}

// Primary returns the primary platform category.
func (p Profile) Primary() Category {
	return p.Categories[0]
}

var profiles = map[string]Profile{
	// Outlets
	"wifi-switch-1.3": {
		Features:   []Feature{FeatureEnergy, FeatureNightLight},
		Categories: []Category{CategorySwitch, CategorySensor},
	},
	"ESW03-USA": {
		Features:   []Feature{FeatureEnergy},
		Categories: []Category{CategorySwitch, CategorySensor},
	},
	"ESW01-EU": {
		Features:   []Feature{FeatureEnergy},
		Categories: []Category{CategorySwitch, CategorySensor},
	},
	"ESW15-USA": {
		Features:   []Feature{FeatureEnergy, FeatureNightLight},
		Categories: []Category{CategorySwitch, CategorySensor},
	},
	"ESO15-TB": {
		Features:   []Feature{FeatureEnergy},
		Categories: []Category{CategorySwitch, CategorySensor},
	},

	// Wall switches
	"ESWL01": {
		Features:   []Feature{},
		Categories: []Category{CategorySwitch},
	},
	"ESWL03": {
		Features:   []Feature{},
		Categories: []Category{CategorySwitch},
	},

	// Dimmer, exposed as a light
	"ESWD16": {
		Features:   []Feature{FeatureDimmable, FeatureRGBShift},
		Categories: []Category{CategoryLight},
	},

	// Bulbs
	"ESL100": {
		Features:   []Feature{FeatureDimmable},
		Categories: []Category{CategoryLight},
	},
	"ESL100CW": {
		Features:   []Feature{FeatureDimmable, FeatureColorTemp},
		Categories: []Category{CategoryLight},
	},

	// Air purifiers
	"LV-PUR131S": {
		Features:   []Feature{FeatureFanSpeed, FeatureAirQuality, FeatureFilterLife},
		Categories: []Category{CategoryFan, CategorySensor},
	},
	"LV-RH131S": {
		Features:   []Feature{FeatureFanSpeed, FeatureAirQuality, FeatureFilterLife},
		Categories: []Category{CategoryFan, CategorySensor},
	},

	// Humidifiers
	"Classic300S": {
		Features:   []Feature{FeatureMistLevel, FeatureTargetHumidity, FeatureNightLight},
		Categories: []Category{CategoryHumidifier, CategoryNumber, CategoryBinarySensor},
	},
	"Classic200S": {
		Features:   []Feature{FeatureMistLevel, FeatureTargetHumidity},
		Categories: []Category{CategoryHumidifier, CategoryNumber, CategoryBinarySensor},
	},
	"Dual200S": {
		Features:   []Feature{FeatureMistLevel, FeatureTargetHumidity},
		Categories: []Category{CategoryHumidifier, CategoryNumber, CategoryBinarySensor},
	},
	"LUH-D301S-WEU": {
		Features:   []Feature{FeatureMistLevel, FeatureTargetHumidity},
		Categories: []Category{CategoryHumidifier, CategoryNumber, CategoryBinarySensor},
	},
	"LUH-A601S-WUSB": {
		Features:   []Feature{FeatureMistLevel, FeatureTargetHumidity},
		Categories: []Category{CategoryHumidifier, CategoryNumber, CategoryBinarySensor},
	},
}

// Classify looks up the profile for a device type. Unknown device types
// return an error; the caller is expected to log and skip the device.
func Classify(deviceType string) (Profile, error) {
	p, ok := profiles[deviceType]
	if !ok {
		return Profile{}, fmt.Errorf("no configuration for device type %q", deviceType)
	}
	return p, nil
}

// Known reports whether a device type is present in the table.
func Known(deviceType string) bool {
	_, ok := profiles[deviceType]
	return ok
}

// KnownTypes returns every device type present in the table.
func KnownTypes() []string {
	types := make([]string, 0, len(profiles))
	for t := range profiles {
		types = append(types, t)
	}
	return types
}
