package vesync

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Humidifier setter bounds.
const (
	MinMistLevel = 1
	MaxMistLevel = 9
	MinHumidity  = 30
	MaxHumidity  = 80
)

// Humidifier modes.
const (
	HumidifierModeAuto   = "auto"
	HumidifierModeManual = "manual"
	HumidifierModeSleep  = "sleep"
)

// humidifierModes maps a humidifier device type to its supported modes.
var humidifierModes = map[string][]string{
	"Classic300S":    {HumidifierModeAuto, HumidifierModeManual, HumidifierModeSleep},
	"Classic200S":    {HumidifierModeAuto, HumidifierModeManual, HumidifierModeSleep},
	"Dual200S":       {HumidifierModeAuto, HumidifierModeManual, HumidifierModeSleep},
	"LUH-D301S-WEU":  {HumidifierModeAuto, HumidifierModeManual, HumidifierModeSleep},
	"LUH-A601S-WUSB": {HumidifierModeAuto, HumidifierModeManual, HumidifierModeSleep},
}

// HumidifierAvailableModes returns the supported modes for a device
// type, nil for non-humidifier types.
func HumidifierAvailableModes(deviceType string) []string {
	modes := humidifierModes[deviceType]
	if modes == nil {
		return nil
	}
	out := make([]string, len(modes))
	copy(out, modes)
	return out
}

// HumidifierDetails mirrors the live readings of a humidifier.
type HumidifierDetails struct {
	Enabled                  bool   `json:"enabled"`
	Humidity                 int    `json:"humidity"`
	MistVirtualLevel         int    `json:"mist_virtual_level"`
	MistLevel                int    `json:"mist_level"`
	Mode                     string `json:"mode"`
	WaterLacks               bool   `json:"water_lacks"`
	WaterTankLifted          bool   `json:"water_tank_lifted"`
	HumidityHigh             bool   `json:"humidity_high"`
	Display                  bool   `json:"display"`
	AutomaticStopReachTarget bool   `json:"automatic_stop_reach_target"`
}

// HumidifierConfig mirrors the device-side configuration block.
type HumidifierConfig struct {
	AutoTargetHumidity int  `json:"auto_target_humidity"`
	Display            bool `json:"display"`
	AutomaticStop      bool `json:"automatic_stop"`
}

// Humidifier covers the Classic/Dual/LUH families, driven over the
// bypassV2 command envelope.
type Humidifier struct {
	BaseDevice
	Details HumidifierDetails
	Config  HumidifierConfig
}

func newHumidifier(base BaseDevice) *Humidifier {
	return &Humidifier{BaseDevice: base}
}

type humidifierStatusResponse struct {
	codeResponse
	Result struct {
		Code   int `json:"code"`
		Result struct {
			HumidifierDetails
			Configuration HumidifierConfig `json:"configuration"`
		} `json:"result"`
	} `json:"result"`
}

// bypassV2Body builds the bypassV2 envelope around one command payload.
func (h *Humidifier) bypassV2Body(method string, data requestBody) requestBody {
	body := h.manager.reqBody("bypassV2")
	body["cid"] = h.cid
	body["configModule"] = h.configModule
	body["payload"] = requestBody{
		"method": method,
		"source": "APP",
		"data":   data,
	}
	return body
}

// command issues one bypassV2 call and applies the shared failure
// policy: offline code forces the fallback state and reports failure,
// any other non-success code leaves local state unchanged.
func (h *Humidifier) command(op, method string, data requestBody) error {
	body := h.bypassV2Body(method, data)

	var resp codeResponse
	if err := h.manager.call(http.MethodPost, "/cloud/v2/deviceManaged/bypassV2", body, &resp); err != nil {
		return err
	}
	if resp.offline() {
		h.setOffline()
		return resp.errorf("device offline during "+op, h.name)
	}
	if !resp.ok() {
		return resp.errorf("error during "+op, h.name)
	}
	return nil
}

// Update fetches live status. The recognized offline code forces the
// offline/off fallback state and is a normal, non-error outcome.
func (h *Humidifier) Update() error {
	body := h.bypassV2Body("getHumidifierStatus", requestBody{})

	var resp humidifierStatusResponse
	if err := h.manager.call(http.MethodPost, "/cloud/v2/deviceManaged/bypassV2", body, &resp); err != nil {
		return err
	}
	if resp.offline() {
		h.manager.logger.Debug("Device offline", zap.String("name", h.name))
		h.setOffline()
		return nil
	}
	if !resp.ok() || resp.Result.Code != 0 {
		return resp.errorf("error getting details", h.name)
	}

	h.Details = resp.Result.Result.HumidifierDetails
	h.Config = resp.Result.Result.Configuration
	h.connectionStatus = StatusOnline
	if h.Details.Enabled {
		h.deviceStatus = StatusOn
	} else {
		h.deviceStatus = StatusOff
	}
	return nil
}

func (h *Humidifier) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, h.name)
	}

	enabled := status == StatusOn
	if err := h.command("toggle", "setSwitch", requestBody{"enabled": enabled, "id": 0}); err != nil {
		return err
	}

	h.deviceStatus = status
	h.Details.Enabled = enabled
	return nil
}

// SetMistLevel validates the level to [1, 9] and issues the command;
// out-of-range input is rejected with no network call.
func (h *Humidifier) SetMistLevel(level int) error {
	if level < MinMistLevel || level > MaxMistLevel {
		return fmt.Errorf("invalid mist level %d for %s: must be in [%d, %d]",
			level, h.name, MinMistLevel, MaxMistLevel)
	}

	data := requestBody{"id": 0, "level": level, "type": "mist"}
	if err := h.command("set mist level", "setVirtualLevel", data); err != nil {
		return err
	}

	h.Details.MistVirtualLevel = level
	h.Details.Mode = HumidifierModeManual
	return nil
}

// SetHumidity validates the target to [30, 80] and issues the command;
// out-of-range input is rejected with no network call.
func (h *Humidifier) SetHumidity(humidity int) error {
	if humidity < MinHumidity || humidity > MaxHumidity {
		return fmt.Errorf("invalid target humidity %d for %s: must be in [%d, %d]",
			humidity, h.name, MinHumidity, MaxHumidity)
	}

	if err := h.command("set humidity", "setTargetHumidity", requestBody{"target_humidity": humidity}); err != nil {
		return err
	}

	h.Config.AutoTargetHumidity = humidity
	return nil
}

// SetHumidityMode switches between the modes the model supports.
func (h *Humidifier) SetHumidityMode(mode string) error {
	supported := false
	for _, m := range humidifierModes[h.deviceType] {
		if m == mode {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("invalid mode %q for %s", mode, h.name)
	}

	if err := h.command("set mode", "setHumidityMode", requestBody{"mode": mode}); err != nil {
		return err
	}

	h.Details.Mode = mode
	return nil
}

// SetAutomaticStop toggles automatic stop on reaching target humidity.
func (h *Humidifier) SetAutomaticStop(enabled bool) error {
	if err := h.command("set automatic stop", "setAutomaticStop", requestBody{"enabled": enabled}); err != nil {
		return err
	}

	h.Config.AutomaticStop = enabled
	return nil
}
