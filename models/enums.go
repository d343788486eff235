package models

// DeviceCategory is the product family of a device.
type DeviceCategory string

const (
	DeviceCategoryEnvironmentCleaner DeviceCategory = "ec"
	DeviceCategoryFloorCleaner       DeviceCategory = "flrc"
	DeviceCategoryHairCare           DeviceCategory = "hc"
	DeviceCategoryLight              DeviceCategory = "light"
	DeviceCategoryRobot              DeviceCategory = "robot"
	DeviceCategoryWearable           DeviceCategory = "wearable"
)

var deviceCategories = []DeviceCategory{
	DeviceCategoryEnvironmentCleaner,
	DeviceCategoryFloorCleaner,
	DeviceCategoryHairCare,
	DeviceCategoryLight,
	DeviceCategoryRobot,
	DeviceCategoryWearable,
}

// ConnectionCategory tells how a device talks to the outside world.
type ConnectionCategory string

const (
	ConnectionCategoryLecAndWifi   ConnectionCategory = "lecAndWifi"
	ConnectionCategoryLecOnly      ConnectionCategory = "lecOnly"
	ConnectionCategoryNonConnected ConnectionCategory = "nonConnected"
	ConnectionCategoryWifiOnly     ConnectionCategory = "wifiOnly"
)

var connectionCategories = []ConnectionCategory{
	ConnectionCategoryLecAndWifi,
	ConnectionCategoryLecOnly,
	ConnectionCategoryNonConnected,
	ConnectionCategoryWifiOnly,
}

// RemoteBrokerType is the transport of the cloud MQTT broker.
type RemoteBrokerType string

const (
	RemoteBrokerTypeWSS RemoteBrokerType = "wss"
)

// TokenType is the type of a login token.
type TokenType string

const (
	TokenTypeBearer TokenType = "Bearer"
)

// AccountStatus is the registration status of an account.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "ACTIVE"
	AccountStatusUnregistered AccountStatus = "UNREGISTERED"
)

// AuthenticationMethod is the login method the vendor expects for an account.
type AuthenticationMethod string

const (
	AuthenticationMethodEmailPassword2FA  AuthenticationMethod = "EMAIL_PWD_2FA"
	AuthenticationMethodMobilePassword2FA AuthenticationMethod = "MOBILE_PWD_2FA"
)

// Capability is a firmware capability flag. The set is open: the vendor adds
// new flags over time and unknown values are kept as they are.
type Capability string

const (
	CapabilityAdvanceOscillationDay1 Capability = "AdvanceOscillationDay1"
	CapabilityScheduling             Capability = "Scheduling"
	CapabilityEnvironmentalData      Capability = "EnvironmentalData"
	CapabilityExtendedAQ             Capability = "ExtendedAQ"
	CapabilityChangeWifi             Capability = "ChangeWifi"
)
