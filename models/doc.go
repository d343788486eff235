/*
Package models contains the records returned by the Dyson cloud API.

Every record is built by a XFromMap function from a decoded JSON object and
can be turned back into its wire form with ToMap. The FromMap functions
validate eagerly and stop at the first missing or mistyped field; the error
is a *validation.Error naming the field path:

	device, err := models.DeviceFromMap(entry)
	// err: "Missing required field: connectedConfiguration.mqtt.mqttRootTopicLevel"

Optional fields are pointers or nil slices. Enumerations are closed except
for firmware capabilities, which keep every value the vendor sends.
*/
package models
