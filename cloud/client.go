package cloud

import (
	"context"

	"github.com/google/uuid"
	"github.com/relabs-tech/dysonrest/core/client"
	"github.com/relabs-tech/dysonrest/models"
)

// Client is the blocking binding. Every call returns when the response has
// been processed. A Client owns its connection pool; call Close when done.
type Client struct {
	s *session
}

// NewClient creates a client talking to the regional host of config.Country,
// or to config.BaseURL if set.
func NewClient(config Config) (*Client, error) {
	return NewClientWithExecutor(config, nil)
}

// NewClientWithExecutor creates a client sending requests through executor.
// A nil executor selects the network. The client takes ownership of executor.
func NewClientWithExecutor(config Config, executor client.Executor) (*Client, error) {
	s, err := newSession(config, executor)
	if err != nil {
		return nil, err
	}
	return &Client{s: s}, nil
}

// Close releases the connection pool. Further calls are no-ops.
func (c *Client) Close() error {
	return c.s.close()
}

// State returns the authentication state.
func (c *Client) State() State {
	return c.s.currentState()
}

// AuthToken returns the bearer token, or "" before login.
func (c *Client) AuthToken() string {
	return c.s.token()
}

// SetAuthToken reuses a token obtained earlier. The session becomes
// authenticated; an empty token logs it out.
func (c *Client) SetAuthToken(token string) {
	c.s.setAuthToken(token)
}

// AccountID returns the account of the last completed login.
func (c *Client) AccountID() uuid.UUID {
	return c.s.account()
}

// APIVersion returns the version reported by Provision.
func (c *Client) APIVersion() string {
	return c.s.version()
}

// Provision confirms the API version. It may be called again at any time.
func (c *Client) Provision(ctx context.Context) (string, error) {
	return c.s.provision(ctx)
}

// GetUserStatus looks up the account of the configured email address.
func (c *Client) GetUserStatus(ctx context.Context) (models.UserStatus, error) {
	return c.s.getUserStatus(ctx, c.s.identifier(EmailIdentifier))
}

// BeginLogin starts a login for the configured email address. The vendor
// sends a one-time code as a side effect.
func (c *Client) BeginLogin(ctx context.Context) (models.Challenge, error) {
	return c.s.beginLogin(ctx, c.s.identifier(EmailIdentifier))
}

// CompleteLogin finishes a login with the code the vendor sent.
func (c *Client) CompleteLogin(ctx context.Context, challengeID, otpCode string) (models.LoginInformation, error) {
	return c.s.completeLogin(ctx, c.s.identifier(EmailIdentifier), challengeID, otpCode)
}

// GetUserStatusMobile is GetUserStatus for the configured mobile number.
func (c *Client) GetUserStatusMobile(ctx context.Context) (models.UserStatus, error) {
	return c.s.getUserStatus(ctx, c.s.identifier(MobileIdentifier))
}

// BeginLoginMobile is BeginLogin for the configured mobile number.
func (c *Client) BeginLoginMobile(ctx context.Context) (models.Challenge, error) {
	return c.s.beginLogin(ctx, c.s.identifier(MobileIdentifier))
}

// CompleteLoginMobile is CompleteLogin for the configured mobile number.
func (c *Client) CompleteLoginMobile(ctx context.Context, challengeID, otpCode string) (models.LoginInformation, error) {
	return c.s.completeLogin(ctx, c.s.identifier(MobileIdentifier), challengeID, otpCode)
}

// Authenticate runs Provision, BeginLogin and CompleteLogin in one go and
// asks otp for the code in between.
func (c *Client) Authenticate(ctx context.Context, otp OTPProvider) (models.LoginInformation, error) {
	return c.s.authenticate(ctx, otp)
}

// GetDevices returns the devices of the account.
func (c *Client) GetDevices(ctx context.Context) ([]models.Device, error) {
	return c.s.getDevices(ctx)
}

// GetIoTCredentials returns the cloud broker credentials of a device.
func (c *Client) GetIoTCredentials(ctx context.Context, serial string) (models.IoTData, error) {
	return c.s.getIoTCredentials(ctx, serial)
}

// GetPendingRelease returns the firmware release waiting for a device.
func (c *Client) GetPendingRelease(ctx context.Context, serial string) (models.PendingRelease, error) {
	return c.s.getPendingRelease(ctx, serial)
}

// TriggerFirmwareUpdate starts the installation of the pending release.
func (c *Client) TriggerFirmwareUpdate(ctx context.Context, serial string) error {
	return c.s.triggerFirmwareUpdate(ctx, serial)
}

// DecryptLocalCredentials returns the password of the device's local MQTT
// broker. It does not touch the network.
func (c *Client) DecryptLocalCredentials(ciphertext, serial string) (string, error) {
	return decryptLocalCredentials(ciphertext, serial)
}
