package vesync

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// outletPathPrefix maps an outlet device type to its endpoint family.
// The legacy 7A outlet (wifi-switch-1.3) uses its own path scheme and
// is handled separately.
var outletPathPrefix = map[string]string{
	"ESW03-USA": "/10a",
	"ESW01-EU":  "/10a",
	"ESW15-USA": "/15a",
	"ESO15-TB":  "/outdoorsocket15a",
}

// OutletDetails mirrors the energy-monitor readings of an outlet.
type OutletDetails struct {
	ActiveTime           int
	Energy               float64
	Power                float64
	Voltage              float64
	NightLightStatus     string
	NightLightBrightness int
}

// Outlet is a smart plug with energy monitoring.
type Outlet struct {
	BaseDevice
	Details OutletDetails
}

func newOutlet(base BaseDevice) *Outlet {
	return &Outlet{BaseDevice: base}
}

type outletDetailResponse struct {
	codeResponse
	DeviceStatus         string  `json:"deviceStatus"`
	ConnectionStatus     string  `json:"connectionStatus"`
	ActiveTime           int     `json:"activeTime"`
	Energy               float64 `json:"energy"`
	Power                float64 `json:"power"`
	Voltage              float64 `json:"voltage"`
	NightLightStatus     string  `json:"nightLightStatus"`
	NightLightBrightness int     `json:"nightLightBrightness"`
}

// legacyDetailResponse is the 7A outlet's detail payload: no code
// field, power and voltage as "a:b" hex pairs.
type legacyDetailResponse struct {
	DeviceStatus string  `json:"deviceStatus"`
	ActiveTime   int     `json:"activeTime"`
	Energy       float64 `json:"energy"`
	Power        string  `json:"power"`
	Voltage      string  `json:"voltage"`
}

// Update fetches live status and refreshes the local mirror. On a
// non-success response the prior local state is left unchanged.
func (o *Outlet) Update() error {
	if o.deviceType == "wifi-switch-1.3" {
		return o.updateLegacy()
	}

	body := o.manager.reqBody("devicedetail")
	body["uuid"] = o.uuid

	var resp outletDetailResponse
	path := outletPathPrefix[o.deviceType] + "/v1/device/devicedetail"
	if err := o.manager.call(http.MethodPost, path, body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error getting details", o.name)
	}

	o.deviceStatus = resp.DeviceStatus
	o.connectionStatus = resp.ConnectionStatus
	o.Details = OutletDetails{
		ActiveTime:           resp.ActiveTime,
		Energy:               resp.Energy,
		Power:                resp.Power,
		Voltage:              resp.Voltage,
		NightLightStatus:     resp.NightLightStatus,
		NightLightBrightness: resp.NightLightBrightness,
	}
	return nil
}

func (o *Outlet) updateLegacy() error {
	var resp legacyDetailResponse
	if err := o.manager.call(http.MethodGet, "/v1/device/"+o.cid+"/detail", nil, &resp); err != nil {
		return err
	}

	power, err := calculateHex(resp.Power)
	if err != nil {
		o.manager.logger.Debug("Unreadable power reading",
			zap.String("name", o.name), zap.Error(err))
	}
	voltage, err := calculateHex(resp.Voltage)
	if err != nil {
		o.manager.logger.Debug("Unreadable voltage reading",
			zap.String("name", o.name), zap.Error(err))
	}

	o.deviceStatus = resp.DeviceStatus
	o.connectionStatus = StatusOnline
	o.Details = OutletDetails{
		ActiveTime: resp.ActiveTime,
		Energy:     resp.Energy,
		Power:      power,
		Voltage:    voltage,
	}
	return nil
}

// Toggle issues an on/off command; the local mirror changes only on a
// success response.
func (o *Outlet) Toggle(status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid status %q for %s", status, o.name)
	}

	if o.deviceType == "wifi-switch-1.3" {
		path := "/v1/wifi-switch-1.3/" + o.cid + "/status/" + status
		if err := o.manager.call(http.MethodPut, path, nil, nil); err != nil {
			return err
		}
		o.deviceStatus = status
		return nil
	}

	body := o.manager.reqBody("devicestatus")
	body["uuid"] = o.uuid
	body["status"] = status

	var resp codeResponse
	path := outletPathPrefix[o.deviceType] + "/v1/device/devicestatus"
	if err := o.manager.call(http.MethodPut, path, body, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.errorf("error toggling", o.name)
	}

	o.deviceStatus = status
	return nil
}
