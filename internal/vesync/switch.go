package vesync

import (
	"fmt"
	"net/http"
)

// WallSwitch is an in-wall switch without dimming.
type WallSwitch struct {
	BaseDevice
	ActiveTime int
}

func newWallSwitch(base BaseDevice) *WallSwitch {
	return &WallSwitch{BaseDevice: base}
}

type switchDetailResponse struct {
	codeResponse
	DeviceStatus     string `json:"deviceStatus"`
	ConnectionStatus string `json:"connectionStatus"`
	ActiveTime       int    `json:"activeTime"`
}

func (s *WallSwitch) Update() error {
	body := s.manager.reqBody("devicedetail")
	body["uuid"] = s.uuid

	var resp switchDetailResponse
	if err := s.manager.call(http.MethodPost, "/inwallswitch/v1/device/devicedetail", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error getting details", s.name)
	}

	s.deviceStatus = resp.DeviceStatus
	s.connectionStatus = resp.ConnectionStatus
	s.ActiveTime = resp.ActiveTime
	return nil
}

func (s *WallSwitch) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, s.name)
	}

	body := s.manager.reqBody("devicestatus")
	body["uuid"] = s.uuid
	body["status"] = status

	var resp codeResponse
	if err := s.manager.call(http.MethodPut, "/inwallswitch/v1/device/devicestatus", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error toggling", s.name)
	}

	s.deviceStatus = status
	return nil
}

// RGB is an indicator-light color value.
type RGB struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

func (c RGB) valid() bool {
	for _, v := range []int{c.Red, c.Green, c.Blue} {
		if v < 0 || v > 255 {
			return false
		}
	}
	return true
}

// Dimmer is an in-wall dimming switch with an RGB indicator light,
// exposed as a light.
type Dimmer struct {
	BaseDevice
	brightness     int
	indicatorColor RGB
}

func newDimmer(base BaseDevice) *Dimmer {
	return &Dimmer{BaseDevice: base}
}

// Brightness returns the last-known brightness percent.
func (d *Dimmer) Brightness() int {
	return d.brightness
}

// IndicatorColor returns the last color set on the indicator light.
func (d *Dimmer) IndicatorColor() RGB {
	return d.indicatorColor
}

type dimmerDetailResponse struct {
	codeResponse
	DeviceStatus     string `json:"deviceStatus"`
	ConnectionStatus string `json:"connectionStatus"`
	Brightness       int    `json:"brightness"`
	ActiveTime       int    `json:"activeTime"`
}

func (d *Dimmer) Update() error {
	body := d.manager.reqBody("devicedetail")
	body["uuid"] = d.uuid

	var resp dimmerDetailResponse
	if err := d.manager.call(http.MethodPost, "/dimmer/v1/device/devicedetail", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error getting details", d.name)
	}

	d.deviceStatus = resp.DeviceStatus
	d.connectionStatus = resp.ConnectionStatus
	d.brightness = resp.Brightness
	return nil
}

func (d *Dimmer) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, d.name)
	}

	body := d.manager.reqBody("devicestatus")
	body["uuid"] = d.uuid
	body["status"] = status

	var resp codeResponse
	if err := d.manager.call(http.MethodPut, "/dimmer/v1/device/devicestatus", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error toggling", d.name)
	}

	d.deviceStatus = status
	return nil
}

// SetBrightness validates the percent to (0, 100] and issues the
// command; out-of-range input is rejected with no network call.
func (d *Dimmer) SetBrightness(brightness int) error {
	if brightness <= 0 || brightness > 100 {
		return fmt.Errorf("invalid brightness %d for %s: must be in (0, 100]", brightness, d.name)
	}

	body := d.manager.reqBody("devicestatus")
	body["uuid"] = d.uuid
	body["status"] = StatusOn
	body["brightness"] = brightness

	var resp codeResponse
	if err := d.manager.call(http.MethodPut, "/dimmer/v1/device/updatebrightness", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error setting brightness", d.name)
	}

	d.brightness = brightness
	return nil
}

// SetIndicatorColor sets the RGB indicator light; channel values are
// validated to [0, 255] with no network call on invalid input.
func (d *Dimmer) SetIndicatorColor(color RGB) error {
	if !color.valid() {
		return fmt.Errorf("invalid indicator color %+v for %s: channels must be in [0, 255]", color, d.name)
	}

	body := d.manager.reqBody("devicestatus")
	body["uuid"] = d.uuid
	body["status"] = StatusOn
	body["rgbValue"] = color

	var resp codeResponse
	if err := d.manager.call(http.MethodPut, "/dimmer/v1/device/devicergbstatus", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error setting indicator color", d.name)
	}

	d.indicatorColor = color
	return nil
}
