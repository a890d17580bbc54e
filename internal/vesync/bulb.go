package vesync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
)

// Bulb color temperature range in kelvin, used when converting the
// cloud's percent scale for entity surfaces.
const (
	minKelvin = 2700
	maxKelvin = 6500
)

// PctToKelvin converts a color temperature percent to kelvin.
func PctToKelvin(pct int) int {
	return (maxKelvin-minKelvin)*pct/100 + minKelvin
}

// BulbESL100 is the dimmable smart bulb, driven over the fixed REST
// endpoints.
type BulbESL100 struct {
	BaseDevice
	brightness int
}

func newBulbESL100(base BaseDevice) *BulbESL100 {
	return &BulbESL100{BaseDevice: base}
}

// Brightness returns the last-known brightness percent of a dimmable
// bulb, zero otherwise.
func (b *BulbESL100) Brightness() int {
	if !b.profile.HasFeature(classify.FeatureDimmable) {
		return 0
	}
	return b.brightness
}

type bulbDetailResponse struct {
	codeResponse
	DeviceStatus     string      `json:"deviceStatus"`
	ConnectionStatus string      `json:"connectionStatus"`
	Brightness       json.Number `json:"brightNess"`
}

func (b *BulbESL100) Update() error {
	body := b.manager.reqBody("devicedetail")
	body["uuid"] = b.uuid

	var resp bulbDetailResponse
	if err := b.manager.call(http.MethodPost, "/SmartBulb/v1/device/devicedetail", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error getting details", b.name)
	}

	b.deviceStatus = resp.DeviceStatus
	b.connectionStatus = resp.ConnectionStatus
	if b.profile.HasFeature(classify.FeatureDimmable) {
		if v, err := resp.Brightness.Int64(); err == nil {
			b.brightness = int(v)
		}
	}
	return nil
}

func (b *BulbESL100) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, b.name)
	}

	body := b.manager.reqBody("devicestatus")
	body["uuid"] = b.uuid
	body["status"] = status

	var resp codeResponse
	if err := b.manager.call(http.MethodPut, "/SmartBulb/v1/device/devicestatus", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error toggling", b.name)
	}

	b.deviceStatus = status
	return nil
}

// SetBrightness validates the percent to (0, 100] and issues the
// command; out-of-range input is rejected with no network call.
func (b *BulbESL100) SetBrightness(brightness int) error {
	if !b.profile.HasFeature(classify.FeatureDimmable) {
		return fmt.Errorf("%s is not dimmable", b.name)
	}
	if brightness <= 0 || brightness > 100 {
		return fmt.Errorf("invalid brightness %d for %s: must be in (0, 100]", brightness, b.name)
	}

	body := b.manager.reqBody("devicestatus")
	body["uuid"] = b.uuid
	body["status"] = StatusOn
	body["brightNess"] = strconv.Itoa(brightness)

	var resp codeResponse
	if err := b.manager.call(http.MethodPut, "/SmartBulb/v1/device/updateBrightness", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error setting brightness", b.name)
	}

	b.brightness = brightness
	return nil
}

// BulbESL100CW is the tunable white bulb. It speaks the bypass
// protocol: structured jsonCmd payloads instead of fixed REST actions.
type BulbESL100CW struct {
	BaseDevice
	brightness int
	colorTemp  int
}

func newBulbESL100CW(base BaseDevice) *BulbESL100CW {
	return &BulbESL100CW{BaseDevice: base}
}

func (b *BulbESL100CW) Brightness() int {
	if !b.profile.HasFeature(classify.FeatureDimmable) {
		return 0
	}
	return b.brightness
}

// ColorTempPct returns the last-known color temperature in percent.
func (b *BulbESL100CW) ColorTempPct() int {
	if !b.profile.HasFeature(classify.FeatureColorTemp) {
		return 0
	}
	return b.colorTemp
}

// ColorTempKelvin returns the last-known color temperature in kelvin.
func (b *BulbESL100CW) ColorTempKelvin() int {
	if !b.profile.HasFeature(classify.FeatureColorTemp) {
		return 0
	}
	return PctToKelvin(b.colorTemp)
}

type lightStatus struct {
	Action     string `json:"action"`
	Brightness int    `json:"brightness"`
	ColorTempe int    `json:"colorTempe"`
}

type bypassLightResponse struct {
	codeResponse
	Result struct {
		Light *lightStatus `json:"light"`
	} `json:"result"`
}

func (b *BulbESL100CW) bypassBody(jsonCmd requestBody) requestBody {
	body := b.manager.reqBody("bypass")
	body["cid"] = b.cid
	body["configModule"] = b.configModule
	body["jsonCmd"] = jsonCmd
	return body
}

// Update fetches live light status. The recognized offline code forces
// the offline/off fallback state and is a normal, non-error outcome.
func (b *BulbESL100CW) Update() error {
	body := b.bypassBody(requestBody{"getLightStatus": "get"})

	var resp bypassLightResponse
	if err := b.manager.call(http.MethodPost, "/cloud/v1/deviceManaged/bypass", body, &resp); err != nil {
		return err
	}

	switch {
	case resp.ok() && resp.Result.Light != nil:
		light := resp.Result.Light
		b.connectionStatus = StatusOnline
		b.deviceStatus = light.Action
		if b.profile.HasFeature(classify.FeatureDimmable) {
			b.brightness = light.Brightness
		}
		if b.profile.HasFeature(classify.FeatureColorTemp) {
			b.colorTemp = light.ColorTempe
		}
		return nil
	case resp.offline():
		b.manager.logger.Debug("Device offline", zap.String("name", b.name))
		b.setOffline()
		return nil
	default:
		return resp.errorf("error getting details", b.name)
	}
}

// Toggle issues an on/off command through the bypass envelope. The
// offline code forces the fallback state and the call reports failure.
func (b *BulbESL100CW) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, b.name)
	}

	body := b.bypassBody(requestBody{"light": requestBody{"action": status}})

	var resp codeResponse
	if err := b.manager.call(http.MethodPost, "/cloud/v1/deviceManaged/bypass", body, &resp); err != nil {
		return err
	}
	if resp.offline() {
		b.setOffline()
		return resp.errorf("device offline toggling", b.name)
	}
	if !resp.ok() {
		return resp.errorf("error toggling", b.name)
	}

	b.deviceStatus = status
	return nil
}

// SetBrightness validates the percent to (0, 100] and issues the
// command; out-of-range input is rejected with no network call.
func (b *BulbESL100CW) SetBrightness(brightness int) error {
	if !b.profile.HasFeature(classify.FeatureDimmable) {
		return fmt.Errorf("%s is not dimmable", b.name)
	}
	if brightness <= 0 || brightness > 100 {
		return fmt.Errorf("invalid brightness %d for %s: must be in (0, 100]", brightness, b.name)
	}

	light := requestBody{"brightness": brightness}
	if b.deviceStatus == StatusOff {
		light["action"] = StatusOn
	}
	body := b.bypassBody(requestBody{"light": light})

	var resp codeResponse
	if err := b.manager.call(http.MethodPost, "/cloud/v1/deviceManaged/bypass", body, &resp); err != nil {
		return err
	}
	if resp.offline() {
		b.setOffline()
		return resp.errorf("device offline setting brightness", b.name)
	}
	if !resp.ok() {
		return resp.errorf("error setting brightness", b.name)
	}

	b.deviceStatus = StatusOn
	b.brightness = brightness
	return nil
}

// SetColorTemp sets the color temperature in percent, validated to
// [0, 100]; out-of-range input is rejected with no network call.
func (b *BulbESL100CW) SetColorTemp(pct int) error {
	if !b.profile.HasFeature(classify.FeatureColorTemp) {
		return fmt.Errorf("%s does not support color temperature", b.name)
	}
	if pct < 0 || pct > 100 {
		return fmt.Errorf("invalid color temperature %d for %s: must be in [0, 100]", pct, b.name)
	}

	light := requestBody{"colorTempe": pct}
	if b.deviceStatus == StatusOff {
		light["action"] = StatusOn
	}
	body := b.bypassBody(requestBody{"light": light})

	var resp codeResponse
	if err := b.manager.call(http.MethodPost, "/cloud/v1/deviceManaged/bypass", body, &resp); err != nil {
		return err
	}
	if resp.offline() {
		b.setOffline()
		return resp.errorf("device offline setting color temperature", b.name)
	}
	if !resp.ok() {
		return resp.errorf("error setting color temperature", b.name)
	}

	b.deviceStatus = StatusOn
	b.colorTemp = pct
	return nil
}
