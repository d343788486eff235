package models

import (
	"github.com/google/uuid"
	"github.com/relabs-tech/dysonrest/core/validation"
)

// IoTCredentials authenticate a client against the vendor's cloud MQTT
// broker through a custom authorizer.
type IoTCredentials struct {
	ClientID             uuid.UUID
	CustomAuthorizerName string
	TokenKey             string
	TokenSignature       string
	TokenValue           uuid.UUID
}

// IoTCredentialsFromMap builds IoTCredentials from m.
func IoTCredentialsFromMap(m map[string]any) (IoTCredentials, error) {
	return iotCredentialsFromMap(m, "")
}

func iotCredentialsFromMap(m map[string]any, path string) (IoTCredentials, error) {
	var c IoTCredentials
	var err error
	if c.ClientID, err = validation.UUID(m, "ClientId", path); err != nil {
		return IoTCredentials{}, err
	}
	if c.CustomAuthorizerName, err = validation.String(m, "CustomAuthorizerName", path); err != nil {
		return IoTCredentials{}, err
	}
	if c.TokenKey, err = validation.String(m, "TokenKey", path); err != nil {
		return IoTCredentials{}, err
	}
	if c.TokenSignature, err = validation.String(m, "TokenSignature", path); err != nil {
		return IoTCredentials{}, err
	}
	if c.TokenValue, err = validation.UUID(m, "TokenValue", path); err != nil {
		return IoTCredentials{}, err
	}
	return c, nil
}

// ToMap returns the wire representation of c.
func (c IoTCredentials) ToMap() map[string]any {
	return map[string]any{
		"ClientId":             c.ClientID.String(),
		"CustomAuthorizerName": c.CustomAuthorizerName,
		"TokenKey":             c.TokenKey,
		"TokenSignature":       c.TokenSignature,
		"TokenValue":           c.TokenValue.String(),
	}
}

// IoTData is the cloud broker endpoint together with the credentials for it.
// The client never connects to the broker itself.
type IoTData struct {
	Endpoint       string
	IoTCredentials IoTCredentials
}

// IoTDataFromMap builds IoTData from m.
func IoTDataFromMap(m map[string]any) (IoTData, error) {
	var d IoTData
	var err error
	if d.Endpoint, err = validation.String(m, "Endpoint", ""); err != nil {
		return IoTData{}, err
	}
	creds, err := validation.Dict(m, "IoTCredentials", "")
	if err != nil {
		return IoTData{}, err
	}
	if d.IoTCredentials, err = iotCredentialsFromMap(creds, "IoTCredentials"); err != nil {
		return IoTData{}, err
	}
	return d, nil
}

// ToMap returns the wire representation of d.
func (d IoTData) ToMap() map[string]any {
	return map[string]any{
		"Endpoint":       d.Endpoint,
		"IoTCredentials": d.IoTCredentials.ToMap(),
	}
}
