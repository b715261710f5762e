package mqttsession

import "fmt"

// Topics builds the topic names for one device ID.
type Topics struct {
	DeviceID string
}

func (t Topics) AppStatus() string {
	return fmt.Sprintf("micronav/app/%s/status", t.DeviceID)
}

func (t Topics) AppPosition() string {
	return fmt.Sprintf("micronav/app/%s/position", t.DeviceID)
}

func (t Topics) DeviceCommands() string {
	return fmt.Sprintf("micronav/device/%s/commands", t.DeviceID)
}

func (t Topics) DeviceSystemInfo() string {
	return fmt.Sprintf("micronav/device/%s/system/info", t.DeviceID)
}

func (t Topics) DeviceStatus() string {
	return fmt.Sprintf("micronav/device/%s/status", t.DeviceID)
}

func (t Topics) DeviceConnections() string {
	return fmt.Sprintf("micronav/device/%s/status/connections", t.DeviceID)
}

func (t Topics) DeviceStatusRequest() string {
	return fmt.Sprintf("micronav/device/%s/status/request", t.DeviceID)
}

func (t Topics) DeviceRouteData() string {
	return fmt.Sprintf("micronav/device/%s/route/data", t.DeviceID)
}

func (t Topics) DeviceRouteStep() string {
	return fmt.Sprintf("micronav/device/%s/route/step", t.DeviceID)
}

func (t Topics) DeviceTest() string {
	return fmt.Sprintf("micronav/device/%s/test", t.DeviceID)
}

// Subscriptions lists the topics the app listens on.
func (t Topics) Subscriptions() []string {
	return []string{
		t.DeviceCommands(),
		t.DeviceSystemInfo(),
		t.DeviceStatus(),
		t.DeviceConnections(),
	}
}
