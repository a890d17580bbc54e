// Package vesync implements the cloud registry client: one Manager per
// account plus per-family device records that mirror live status and
// issue commands over the vendor's JSON API.
package vesync

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const apiTimeout = 5 * time.Second

// Manager holds one account session: credentials, auth token, timezone
// and the most recently fetched device list. It is created at setup and
// torn down at unload; a single reconciliation flow owns it at a time.
type Manager struct {
	username  string
	password  string
	timeZone  string
	token     string
	accountID string
	loggedIn  bool

	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	devices []Device
}

// NewManager creates a session manager for one configured account.
func NewManager(username, password, timeZone string, logger *zap.Logger) *Manager {
	return &Manager{
		username:   username,
		password:   password,
		timeZone:   timeZone,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: apiTimeout},
		logger:     logger.Named("vesync"),
	}
}

// SetBaseURL overrides the cloud endpoint, used for tests and regional
// deployments.
func (m *Manager) SetBaseURL(url string) {
	m.baseURL = url
}

// LoggedIn reports whether Login has succeeded.
func (m *Manager) LoggedIn() bool {
	return m.loggedIn
}

type loginResponse struct {
	codeResponse
	Result struct {
		Token     string `json:"token"`
		AccountID string `json:"accountID"`
	} `json:"result"`
}

// Login authenticates against the cloud and stores the session token
// and account id. A rejected login is a hard failure; setup aborts.
func (m *Manager) Login() error {
	var resp loginResponse
	if err := m.call(http.MethodPost, "/cloud/v1/user/login", m.reqBody("login"), &resp); err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("login rejected: code %d (%s)", resp.Code, resp.Msg)
	}
	if resp.Result.Token == "" || resp.Result.AccountID == "" {
		return fmt.Errorf("login response missing token or account id")
	}

	m.token = resp.Result.Token
	m.accountID = resp.Result.AccountID
	m.loggedIn = true
	m.logger.Info("Logged in to VeSync cloud", zap.String("account_id", m.accountID))
	return nil
}

type deviceListResponse struct {
	codeResponse
	Result struct {
		Total int               `json:"total"`
		List  []deviceListEntry `json:"list"`
	} `json:"result"`
}

// GetDevices pages through the account's device list and rebuilds the
// typed device records. Devices with unrecognized types are logged and
// excluded. The returned list is deduplicated by cid.
func (m *Manager) GetDevices() ([]Device, error) {
	if !m.loggedIn {
		return nil, fmt.Errorf("not logged in")
	}

	var entries []deviceListEntry
	for page := 1; ; page++ {
		body := m.reqBody("devicelist")
		body["pageNo"] = strconv.Itoa(page)

		var resp deviceListResponse
		if err := m.call(http.MethodPost, "/cloud/v1/deviceManaged/devices", body, &resp); err != nil {
			return nil, fmt.Errorf("device list request failed: %w", err)
		}
		if !resp.ok() {
			return nil, fmt.Errorf("device list rejected: code %d (%s)", resp.Code, resp.Msg)
		}

		entries = append(entries, resp.Result.List...)
		if len(resp.Result.List) < devicePageSize {
			break
		}
	}

	seen := make(map[string]struct{}, len(entries))
	devices := make([]Device, 0, len(entries))
	for _, entry := range entries {
		if entry.CID == "" {
			m.logger.Warn("Skipping device without cid", zap.String("name", entry.DeviceName))
			continue
		}
		if _, dup := seen[entry.CID]; dup {
			continue
		}
		seen[entry.CID] = struct{}{}

		dev, err := m.buildDevice(entry)
		if err != nil {
			m.logger.Warn("Skipping device",
				zap.String("name", entry.DeviceName),
				zap.String("device_type", entry.DeviceType),
				zap.Error(err))
			continue
		}
		devices = append(devices, dev)
	}

	m.devices = devices
	m.logger.Debug("Device list refreshed", zap.Int("devices", len(devices)))
	return devices, nil
}

// Devices returns the device records from the last successful fetch.
func (m *Manager) Devices() []Device {
	return m.devices
}

// Update re-fetches the device list and refreshes the live status of
// every known device. Per-device failures are logged, not propagated.
func (m *Manager) Update() error {
	devices, err := m.GetDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		if err := dev.Update(); err != nil {
			m.logger.Warn("Failed to update device",
				zap.String("name", dev.Name()),
				zap.Error(err))
		}
	}
	return nil
}
