package vesync

import (
	"fmt"
	"net/http"
)

// Air purifier fan speed levels and modes.
const (
	MinFanSpeed = 1
	MaxFanSpeed = 3
)

var purifierModes = []string{"auto", "manual", "sleep"}

// PurifierDetails mirrors the air-quality readings of a purifier.
type PurifierDetails struct {
	ActiveTime   int
	FilterLife   int
	AirQuality   string
	ScreenStatus string
	Mode         string
	FanSpeed     int
}

// AirPurifier is the LV-PUR131S family purifier, driven over the fixed
// REST endpoints.
type AirPurifier struct {
	BaseDevice
	Details PurifierDetails
}

func newAirPurifier(base BaseDevice) *AirPurifier {
	return &AirPurifier{BaseDevice: base}
}

type purifierDetailResponse struct {
	codeResponse
	DeviceStatus     string `json:"deviceStatus"`
	ConnectionStatus string `json:"connectionStatus"`
	ActiveTime       int    `json:"activeTime"`
	FilterLife       struct {
		Percent int `json:"percent"`
	} `json:"filterLife"`
	AirQuality   string `json:"airQuality"`
	ScreenStatus string `json:"screenStatus"`
	Mode         string `json:"mode"`
	Level        int    `json:"level"`
}

func (p *AirPurifier) Update() error {
	body := p.manager.reqBody("devicedetail")
	body["uuid"] = p.uuid

	var resp purifierDetailResponse
	if err := p.manager.call(http.MethodPost, "/131airPurifier/v1/device/deviceDetail", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error getting details", p.name)
	}

	p.deviceStatus = resp.DeviceStatus
	p.connectionStatus = resp.ConnectionStatus
	p.Details = PurifierDetails{
		ActiveTime:   resp.ActiveTime,
		FilterLife:   resp.FilterLife.Percent,
		AirQuality:   resp.AirQuality,
		ScreenStatus: resp.ScreenStatus,
		Mode:         resp.Mode,
		FanSpeed:     resp.Level,
	}
	return nil
}

func (p *AirPurifier) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, p.name)
	}

	body := p.manager.reqBody("devicestatus")
	body["uuid"] = p.uuid
	body["status"] = status

	var resp codeResponse
	if err := p.manager.call(http.MethodPut, "/131airPurifier/v1/device/deviceStatus", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error toggling", p.name)
	}

	p.deviceStatus = status
	return nil
}

// SetFanSpeed validates the level to [1, 3] and issues the command;
// out-of-range input is rejected with no network call.
func (p *AirPurifier) SetFanSpeed(level int) error {
	if level < MinFanSpeed || level > MaxFanSpeed {
		return fmt.Errorf("invalid fan speed %d for %s: must be in [%d, %d]",
			level, p.name, MinFanSpeed, MaxFanSpeed)
	}

	body := p.manager.reqBody("devicestatus")
	body["uuid"] = p.uuid
	body["level"] = level

	var resp codeResponse
	if err := p.manager.call(http.MethodPut, "/131airPurifier/v1/device/updateSpeed", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error setting fan speed", p.name)
	}

	p.Details.FanSpeed = level
	return nil
}

// SetMode switches the purifier between auto, manual and sleep.
func (p *AirPurifier) SetMode(mode string) error {
	valid := false
	for _, m := range purifierModes {
		if m == mode {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid mode %q for %s", mode, p.name)
	}

	body := p.manager.reqBody("devicestatus")
	body["uuid"] = p.uuid
	body["mode"] = mode

	var resp codeResponse
	if err := p.manager.call(http.MethodPut, "/131airPurifier/v1/device/updateMode", body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error setting mode", p.name)
	}

	p.Details.Mode = mode
	return nil
}
