package credentials

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/relabs-tech/dysonrest/core/errs"
	"github.com/relabs-tech/dysonrest/core/logger"
)

// LocalCredentialsKey is the AES-256 key shared by all devices: the bytes 1 to 32.
var LocalCredentialsKey = [32]byte{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
}

// ErrNoMQTTCredentials is returned for an empty credential blob. It is not an
// API error: the device simply has nothing to decrypt.
var ErrNoMQTTCredentials = errors.New("Device has no MQTT credentials")

const passwordField = "apPasswordHash"

type localCredentials struct {
	APPasswordHash *string `json:"apPasswordHash"`
}

// DecryptLocalCredentials decrypts the base64 blob ciphertext of the device
// with the given serial number and returns the broker password.
//
// Every failure except an empty blob is reported as an API error with the
// message "Failed to decrypt local credentials: <cause>".
func DecryptLocalCredentials(ciphertext, serial string) (string, error) {
	if ciphertext == "" {
		return "", ErrNoMQTTCredentials
	}
	logger.Default().WithField("serial", serial).Debug("decrypting local credentials")

	password, err := decrypt(ciphertext)
	if err != nil {
		return "", errs.API(fmt.Sprintf("Failed to decrypt local credentials: %v", err), err)
	}
	return password, nil
}

func decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))
	}

	block, err := aes.NewCipher(LocalCredentialsKey[:])
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, raw)
	plain = bytes.TrimRight(plain, "\x00")

	var creds localCredentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}
	if creds.APPasswordHash == nil {
		return "", fmt.Errorf("payload has no %s", passwordField)
	}
	return *creds.APPasswordHash, nil
}

// EncryptLocalCredentials is the inverse of DecryptLocalCredentials.
func EncryptLocalCredentials(password string) (string, error) {
	plain, err := json.Marshal(localCredentials{APPasswordHash: &password})
	if err != nil {
		return "", err
	}
	if rem := len(plain) % aes.BlockSize; rem != 0 {
		plain = append(plain, make([]byte, aes.BlockSize-rem)...)
	}

	block, err := aes.NewCipher(LocalCredentialsKey[:])
	if err != nil {
		return "", err
	}
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, plain)
	return base64.StdEncoding.EncodeToString(out), nil
}
