package models

import (
	"fmt"

	"github.com/relabs-tech/dysonrest/core/pointers"
	"github.com/relabs-tech/dysonrest/core/validation"
)

// VendorName prefixes the synthesized name of devices without a name.
const VendorName = "Dyson"

// Device is one entry of the account's device manifest.
type Device struct {
	SerialNumber string
	// Name is never empty. Devices without a name get "Dyson <serial>".
	Name               string
	Model              *string
	Type               string
	Variant            *string
	Category           DeviceCategory
	ConnectionCategory ConnectionCategory
	// ConnectedConfiguration is nil for devices without cloud connectivity.
	ConnectedConfiguration *ConnectedConfiguration
}

// DeviceFromMap builds a Device from the manifest entry m.
func DeviceFromMap(m map[string]any) (Device, error) {
	return deviceFromMap(m, "")
}

func deviceFromMap(m map[string]any, path string) (Device, error) {
	var d Device
	var err error

	if d.SerialNumber, err = validation.String(m, "serialNumber", path); err != nil {
		return Device{}, err
	}
	name, err := validation.OptionalString(m, "name", path)
	if err != nil {
		return Device{}, err
	}
	d.Name = pointers.SafeString(name)
	if d.Name == "" {
		d.Name = fmt.Sprintf("%s %s", VendorName, d.SerialNumber)
	}
	if d.Model, err = validation.OptionalString(m, "model", path); err != nil {
		return Device{}, err
	}
	if d.Type, err = validation.String(m, "type", path); err != nil {
		return Device{}, err
	}
	if d.Variant, err = validation.OptionalString(m, "variant", path); err != nil {
		return Device{}, err
	}
	if d.Category, err = validation.Enum(m, "category", path, deviceCategories...); err != nil {
		return Device{}, err
	}
	if d.ConnectionCategory, err = validation.Enum(m, "connectionCategory", path, connectionCategories...); err != nil {
		return Device{}, err
	}

	cc, err := validation.OptionalDict(m, "connectedConfiguration", path)
	if err != nil {
		return Device{}, err
	}
	if cc != nil {
		config, err := connectedConfigurationFromMap(cc, validation.Join(path, "connectedConfiguration"))
		if err != nil {
			return Device{}, err
		}
		d.ConnectedConfiguration = &config
	}
	return d, nil
}

// DevicesFromList builds the devices of a manifest. Errors name the offending
// element, e.g. "Missing required field: [1].serialNumber".
func DevicesFromList(l []any) ([]Device, error) {
	devices := make([]Device, 0, len(l))
	for i, item := range l {
		path := validation.Index("", i)
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &validation.Error{Message: fmt.Sprintf("Expected dict for %s, got %s", path, validation.TypeName(item))}
		}
		d, err := deviceFromMap(m, path)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// ToMap returns the wire representation of d.
func (d Device) ToMap() map[string]any {
	m := map[string]any{
		"serialNumber":       d.SerialNumber,
		"name":               d.Name,
		"type":               d.Type,
		"category":           string(d.Category),
		"connectionCategory": string(d.ConnectionCategory),
	}
	pointers.PutIfSet(m, "model", d.Model)
	pointers.PutIfSet(m, "variant", d.Variant)
	if d.ConnectedConfiguration != nil {
		m["connectedConfiguration"] = d.ConnectedConfiguration.ToMap()
	}
	return m
}

// ConnectedConfiguration is the cloud related part of a device entry.
type ConnectedConfiguration struct {
	Firmware Firmware
	MQTT     MQTT
}

// ConnectedConfigurationFromMap builds a ConnectedConfiguration from m.
func ConnectedConfigurationFromMap(m map[string]any) (ConnectedConfiguration, error) {
	return connectedConfigurationFromMap(m, "")
}

func connectedConfigurationFromMap(m map[string]any, path string) (ConnectedConfiguration, error) {
	fw, err := validation.Dict(m, "firmware", path)
	if err != nil {
		return ConnectedConfiguration{}, err
	}
	firmware, err := firmwareFromMap(fw, validation.Join(path, "firmware"))
	if err != nil {
		return ConnectedConfiguration{}, err
	}
	mq, err := validation.Dict(m, "mqtt", path)
	if err != nil {
		return ConnectedConfiguration{}, err
	}
	mqtt, err := mqttFromMap(mq, validation.Join(path, "mqtt"))
	if err != nil {
		return ConnectedConfiguration{}, err
	}
	return ConnectedConfiguration{Firmware: firmware, MQTT: mqtt}, nil
}

// ToMap returns the wire representation of c.
func (c ConnectedConfiguration) ToMap() map[string]any {
	return map[string]any{
		"firmware": c.Firmware.ToMap(),
		"mqtt":     c.MQTT.ToMap(),
	}
}

// Firmware describes the firmware installed on a device.
type Firmware struct {
	Version             string
	AutoUpdateEnabled   bool
	NewVersionAvailable bool
	// Capabilities is nil when the vendor did not send any.
	Capabilities      []Capability
	MinimumAppVersion *string
}

// FirmwareFromMap builds a Firmware from m.
func FirmwareFromMap(m map[string]any) (Firmware, error) {
	return firmwareFromMap(m, "")
}

func firmwareFromMap(m map[string]any, path string) (Firmware, error) {
	var f Firmware
	var err error
	if f.Version, err = validation.String(m, "version", path); err != nil {
		return Firmware{}, err
	}
	if f.AutoUpdateEnabled, err = validation.Bool(m, "autoUpdateEnabled", path); err != nil {
		return Firmware{}, err
	}
	if f.NewVersionAvailable, err = validation.Bool(m, "newVersionAvailable", path); err != nil {
		return Firmware{}, err
	}
	caps, ok, err := validation.StringList(m, "capabilities", path)
	if err != nil {
		return Firmware{}, err
	}
	if ok {
		f.Capabilities = make([]Capability, len(caps))
		for i, c := range caps {
			f.Capabilities[i] = Capability(c)
		}
	}
	if f.MinimumAppVersion, err = validation.OptionalString(m, "minimumAppVersion", path); err != nil {
		return Firmware{}, err
	}
	return f, nil
}

// HasCapability reports whether the firmware announces c.
func (f Firmware) HasCapability(c Capability) bool {
	for _, have := range f.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// ToMap returns the wire representation of f.
func (f Firmware) ToMap() map[string]any {
	m := map[string]any{
		"version":             f.Version,
		"autoUpdateEnabled":   f.AutoUpdateEnabled,
		"newVersionAvailable": f.NewVersionAvailable,
	}
	if f.Capabilities != nil {
		caps := make([]any, len(f.Capabilities))
		for i, c := range f.Capabilities {
			caps[i] = string(c)
		}
		m["capabilities"] = caps
	}
	pointers.PutIfSet(m, "minimumAppVersion", f.MinimumAppVersion)
	return m
}

// BrokerCredentials are the credentials of the broker running on the device
// itself. Older firmware sends an encrypted blob, newer firmware may send an
// object instead.
type BrokerCredentials struct {
	// Encrypted is the base64 ciphertext. Empty for devices without MQTT.
	Encrypted string
	// Fields is set instead of Encrypted when the vendor sent an object.
	Fields map[string]any
}

// IsStructured reports whether the credentials came as an object.
func (c BrokerCredentials) IsStructured() bool {
	return c.Fields != nil
}

// MQTT is the MQTT configuration of a connected device.
type MQTT struct {
	LocalBrokerCredentials BrokerCredentials
	MQTTRootTopicLevel     string
	RemoteBrokerType       RemoteBrokerType
}

// MQTTFromMap builds an MQTT configuration from m.
func MQTTFromMap(m map[string]any) (MQTT, error) {
	return mqttFromMap(m, "")
}

func mqttFromMap(m map[string]any, path string) (MQTT, error) {
	var q MQTT
	v, ok := m["localBrokerCredentials"]
	if !ok {
		return MQTT{}, &validation.Error{Message: "Missing required field: " + validation.Join(path, "localBrokerCredentials")}
	}
	switch creds := v.(type) {
	case string:
		q.LocalBrokerCredentials.Encrypted = creds
	case map[string]any:
		q.LocalBrokerCredentials.Fields = creds
	default:
		return MQTT{}, &validation.Error{Message: fmt.Sprintf("Expected str or dict for %s, got %s",
			validation.Join(path, "localBrokerCredentials"), validation.TypeName(v))}
	}

	var err error
	if q.MQTTRootTopicLevel, err = validation.String(m, "mqttRootTopicLevel", path); err != nil {
		return MQTT{}, err
	}
	if q.RemoteBrokerType, err = validation.Enum(m, "remoteBrokerType", path, RemoteBrokerTypeWSS); err != nil {
		return MQTT{}, err
	}
	return q, nil
}

// ToMap returns the wire representation of q.
func (q MQTT) ToMap() map[string]any {
	var creds any = q.LocalBrokerCredentials.Encrypted
	if q.LocalBrokerCredentials.IsStructured() {
		creds = q.LocalBrokerCredentials.Fields
	}
	return map[string]any{
		"localBrokerCredentials": creds,
		"mqttRootTopicLevel":     q.MQTTRootTopicLevel,
		"remoteBrokerType":       string(q.RemoteBrokerType),
	}
}
