package vesync

import "vesyncbridge/internal/classify"

// Power and connection states as the cloud reports them.
const (
	StatusOn      = "on"
	StatusOff     = "off"
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Device is the common surface every device family implements.
type Device interface {
	// ID returns the cloud identifier (cid), unique per device.
	ID() string
	UUID() string
	Name() string
	Type() string
	Profile() classify.Profile
	ConnectionStatus() string
	Status() string
	IsOn() bool
	Online() bool

	// Update fetches live status from the cloud and refreshes the
	// local mirror. A recognized offline response is not an error.
	Update() error

	// Toggle issues an on/off command. The local mirror changes only
	// when the cloud reports success.
	Toggle(status string) error
}

// deviceListEntry is one record of the paged device list response.
type deviceListEntry struct {
	CID              string `json:"cid"`
	UUID             string `json:"uuid"`
	DeviceName       string `json:"deviceName"`
	DeviceType       string `json:"deviceType"`
	ConfigModule     string `json:"configModule"`
	ConnectionStatus string `json:"connectionStatus"`
	DeviceStatus     string `json:"deviceStatus"`
}

// BaseDevice mirrors a cloud device's identity and last-known status.
// Every family embeds it; mutation happens in place after successful
// API calls.
type BaseDevice struct {
	cid              string
	uuid             string
	name             string
	deviceType       string
	configModule     string
	connectionStatus string
	deviceStatus     string
	profile          classify.Profile
	manager          *Manager
}

func newBaseDevice(entry deviceListEntry, profile classify.Profile, manager *Manager) BaseDevice {
	return BaseDevice{
		cid:              entry.CID,
		uuid:             entry.UUID,
		name:             entry.DeviceName,
		deviceType:       entry.DeviceType,
		configModule:     entry.ConfigModule,
		connectionStatus: entry.ConnectionStatus,
		deviceStatus:     entry.DeviceStatus,
		profile:          profile,
		manager:          manager,
	}
}

func (d *BaseDevice) ID() string                { return d.cid }
func (d *BaseDevice) UUID() string              { return d.uuid }
func (d *BaseDevice) Name() string              { return d.name }
func (d *BaseDevice) Type() string              { return d.deviceType }
func (d *BaseDevice) Profile() classify.Profile { return d.profile }
func (d *BaseDevice) ConnectionStatus() string  { return d.connectionStatus }
func (d *BaseDevice) Status() string            { return d.deviceStatus }

func (d *BaseDevice) IsOn() bool {
	return d.deviceStatus == StatusOn
}

func (d *BaseDevice) Online() bool {
	return d.connectionStatus == StatusOnline
}

// setOffline applies the fallback state for a recognized offline
// response: connection offline, power off, regardless of prior state.
func (d *BaseDevice) setOffline() {
	d.connectionStatus = StatusOffline
	d.deviceStatus = StatusOff
}

func validStatus(status string) bool {
	return status == StatusOn || status == StatusOff
}
