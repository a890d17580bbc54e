// Package testutil provides testing utilities for the bridge. It
// contains a mock VeSync cloud server and helpers for writing package
// and integration tests without touching the real API.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// CodeDeviceOffline mirrors the cloud's reserved "device offline"
// response code.
const CodeDeviceOffline = -11300027

// MockToken and MockAccountID are the credentials the mock cloud hands
// out on a successful login.
const (
	MockToken     = "mock-token"
	MockAccountID = "mock-account"
)

// DeviceFixture is one simulated cloud device with its live readings.
type DeviceFixture struct {
	CID              string
	UUID             string
	DeviceName       string
	DeviceType       string
	ConfigModule     string
	ConnectionStatus string
	DeviceStatus     string

	Brightness     int
	ColorTemp      int
	Power          float64
	Voltage        float64
	Energy         float64
	Humidity       int
	MistLevel      int
	Mode           string
	TargetHumidity int
	WaterLacks     bool
	AirQuality     string
	FilterLife     int
	FanSpeed       int
}

// RecordedCall captures one request for verification.
type RecordedCall struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// MockCloud simulates the VeSync cloud API over HTTP.
type MockCloud struct {
	server *httptest.Server

	mu        sync.Mutex
	devices   []DeviceFixture
	offline   map[string]bool
	failLogin bool
	calls     []RecordedCall
}

// NewMockCloud starts a mock cloud server. Callers must Close it.
func NewMockCloud() *MockCloud {
	c := &MockCloud{
		offline: make(map[string]bool),
	}
	c.server = httptest.NewServer(http.HandlerFunc(c.handle))
	return c
}

// URL returns the base URL of the mock cloud.
func (c *MockCloud) URL() string {
	return c.server.URL
}

// Close shuts down the server.
func (c *MockCloud) Close() {
	c.server.Close()
}

// AddDevice registers a device fixture.
func (c *MockCloud) AddDevice(fixture DeviceFixture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = append(c.devices, fixture)
}

// SetOffline marks a device as unreachable; bypass calls against it
// return the reserved offline code.
func (c *MockCloud) SetOffline(cid string, offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline[cid] = offline
}

// SetLoginFailure makes subsequent logins fail with a non-zero code.
func (c *MockCloud) SetLoginFailure(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLogin = fail
}

// Calls returns a copy of every recorded request.
func (c *MockCloud) Calls() []RecordedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RecordedCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many recorded requests have a path containing
// the given substring.
func (c *MockCloud) CallCount(pathSubstring string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, call := range c.calls {
		if strings.Contains(call.Path, pathSubstring) {
			count++
		}
	}
	return count
}

// TotalCalls returns how many requests the mock has received.
func (c *MockCloud) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *MockCloud) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	c.mu.Lock()
	c.calls = append(c.calls, RecordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
	c.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/cloud/v1/user/login":
		c.handleLogin(w)
	case path == "/cloud/v1/deviceManaged/devices":
		c.handleDeviceList(w, body)
	case path == "/cloud/v1/deviceManaged/bypass":
		c.handleBypass(w, body)
	case path == "/cloud/v2/deviceManaged/bypassV2":
		c.handleBypassV2(w, body)
	case strings.HasPrefix(path, "/v1/device/") && strings.HasSuffix(path, "/detail"):
		c.handleLegacyDetail(w, path)
	case strings.HasPrefix(path, "/v1/wifi-switch-1.3/"):
		// Legacy toggle: success is a bare 200.
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(path, "/devicedetail") || strings.HasSuffix(path, "/deviceDetail"):
		c.handleDetail(w, path, body)
	default:
		// Status and setter endpoints acknowledge with code 0.
		writeJSON(w, map[string]interface{}{"code": 0, "msg": ""})
	}
}

func (c *MockCloud) handleLogin(w http.ResponseWriter) {
	c.mu.Lock()
	fail := c.failLogin
	c.mu.Unlock()

	if fail {
		writeJSON(w, map[string]interface{}{"code": -11201000, "msg": "password error"})
		return
	}
	writeJSON(w, map[string]interface{}{
		"code": 0,
		"msg":  "",
		"result": map[string]interface{}{
			"token":     MockToken,
			"accountID": MockAccountID,
		},
	})
}

func (c *MockCloud) handleDeviceList(w http.ResponseWriter, body map[string]interface{}) {
	pageNo, _ := strconv.Atoi(stringField(body, "pageNo"))
	pageSize, _ := strconv.Atoi(stringField(body, "pageSize"))
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	c.mu.Lock()
	devices := make([]DeviceFixture, len(c.devices))
	copy(devices, c.devices)
	c.mu.Unlock()

	start := (pageNo - 1) * pageSize
	if start > len(devices) {
		start = len(devices)
	}
	end := start + pageSize
	if end > len(devices) {
		end = len(devices)
	}

	list := make([]map[string]interface{}, 0, end-start)
	for _, d := range devices[start:end] {
		list = append(list, map[string]interface{}{
			"cid":              d.CID,
			"uuid":             d.UUID,
			"deviceName":       d.DeviceName,
			"deviceType":       d.DeviceType,
			"configModule":     d.ConfigModule,
			"connectionStatus": d.ConnectionStatus,
			"deviceStatus":     d.DeviceStatus,
		})
	}

	writeJSON(w, map[string]interface{}{
		"code": 0,
		"msg":  "",
		"result": map[string]interface{}{
			"total": len(devices),
			"list":  list,
		},
	})
}

func (c *MockCloud) handleBypass(w http.ResponseWriter, body map[string]interface{}) {
	cid := stringField(body, "cid")
	device, found := c.findByCID(cid)
	if !found {
		writeJSON(w, map[string]interface{}{"code": -11000000, "msg": "device not found"})
		return
	}
	if c.isOffline(cid) {
		writeJSON(w, map[string]interface{}{"code": CodeDeviceOffline, "msg": "device offline"})
		return
	}

	jsonCmd, _ := body["jsonCmd"].(map[string]interface{})
	if _, isGet := jsonCmd["getLightStatus"]; isGet {
		writeJSON(w, map[string]interface{}{
			"code": 0,
			"msg":  "",
			"result": map[string]interface{}{
				"light": map[string]interface{}{
					"action":     device.DeviceStatus,
					"brightness": device.Brightness,
					"colorTempe": device.ColorTemp,
				},
			},
		})
		return
	}
	writeJSON(w, map[string]interface{}{"code": 0, "msg": ""})
}

func (c *MockCloud) handleBypassV2(w http.ResponseWriter, body map[string]interface{}) {
	cid := stringField(body, "cid")
	device, found := c.findByCID(cid)
	if !found {
		writeJSON(w, map[string]interface{}{"code": -11000000, "msg": "device not found"})
		return
	}
	if c.isOffline(cid) {
		writeJSON(w, map[string]interface{}{"code": CodeDeviceOffline, "msg": "device offline"})
		return
	}

	payload, _ := body["payload"].(map[string]interface{})
	if stringField(payload, "method") == "getHumidifierStatus" {
		writeJSON(w, map[string]interface{}{
			"code": 0,
			"msg":  "",
			"result": map[string]interface{}{
				"code": 0,
				"result": map[string]interface{}{
					"enabled":                     device.DeviceStatus == "on",
					"humidity":                    device.Humidity,
					"mist_virtual_level":          device.MistLevel,
					"mist_level":                  device.MistLevel,
					"mode":                        device.Mode,
					"water_lacks":                 device.WaterLacks,
					"water_tank_lifted":           false,
					"humidity_high":               false,
					"display":                     true,
					"automatic_stop_reach_target": false,
					"configuration": map[string]interface{}{
						"auto_target_humidity": device.TargetHumidity,
						"display":              true,
						"automatic_stop":       true,
					},
				},
			},
		})
		return
	}
	writeJSON(w, map[string]interface{}{"code": 0, "msg": ""})
}

func (c *MockCloud) handleDetail(w http.ResponseWriter, path string, body map[string]interface{}) {
	device, found := c.findByUUID(stringField(body, "uuid"))
	if !found {
		writeJSON(w, map[string]interface{}{"code": -11000000, "msg": "device not found"})
		return
	}

	resp := map[string]interface{}{
		"code":             0,
		"msg":              "",
		"deviceStatus":     device.DeviceStatus,
		"connectionStatus": device.ConnectionStatus,
		"activeTime":       100,
	}

	switch {
	case strings.HasPrefix(path, "/SmartBulb/"):
		resp["brightNess"] = strconv.Itoa(device.Brightness)
	case strings.HasPrefix(path, "/dimmer/"):
		resp["brightness"] = device.Brightness
	case strings.HasPrefix(path, "/131airPurifier/"):
		resp["filterLife"] = map[string]interface{}{"percent": device.FilterLife}
		resp["airQuality"] = device.AirQuality
		resp["screenStatus"] = "on"
		resp["mode"] = device.Mode
		resp["level"] = device.FanSpeed
	case strings.HasPrefix(path, "/inwallswitch/"):
		// Base fields only.
	default:
		// Outlet families.
		resp["energy"] = device.Energy
		resp["power"] = device.Power
		resp["voltage"] = device.Voltage
	}
	writeJSON(w, resp)
}

func (c *MockCloud) handleLegacyDetail(w http.ResponseWriter, path string) {
	cid := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/device/"), "/detail")
	device, found := c.findByCID(cid)
	if !found {
		http.NotFound(w, nil)
		return
	}

	writeJSON(w, map[string]interface{}{
		"deviceStatus": device.DeviceStatus,
		"activeTime":   100,
		"energy":       device.Energy,
		"power":        "1000:1000",
		"voltage":      "1000:1000",
	})
}

func (c *MockCloud) findByCID(cid string) (DeviceFixture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		if d.CID == cid {
			return d, true
		}
	}
	return DeviceFixture{}, false
}

func (c *MockCloud) findByUUID(uuid string) (DeviceFixture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		if d.UUID == uuid {
			return d, true
		}
	}
	return DeviceFixture{}, false
}

func (c *MockCloud) isOffline(cid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline[cid]
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
