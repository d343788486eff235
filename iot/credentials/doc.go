/*
Package credentials decrypts the local MQTT broker credentials of a device.

Connected devices run their own MQTT broker. The device manifest carries the
password for it as a base64 encoded blob in
connectedConfiguration.mqtt.localBrokerCredentials. The blob is AES-256-CBC
ciphertext with a fixed, well-known key and a zero IV. The plaintext is a JSON
object padded with NUL bytes to the block size:

	{"apPasswordHash": "<password>"}

DecryptLocalCredentials returns the password. EncryptLocalCredentials produces
blobs in the same format; it exists for tests and the fake cloud.

Both functions are pure and safe for concurrent use.
*/
package credentials
