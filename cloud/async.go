package cloud

import (
	"context"

	"github.com/google/uuid"
	"github.com/relabs-tech/dysonrest/core/client"
	"github.com/relabs-tech/dysonrest/models"
)

// Future is the pending result of an AsyncClient call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func goFuture[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await waits for the result. If ctx ends first, Await returns ctx.Err();
// the call itself keeps running under the context it was started with.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncClient is the non-blocking binding. Network calls return a Future
// immediately. It shares its state machine with Client and has the same
// rules: at most one state changing call in flight per instance.
type AsyncClient struct {
	s *session
}

// NewAsyncClient creates an AsyncClient, see NewClient.
func NewAsyncClient(config Config) (*AsyncClient, error) {
	return NewAsyncClientWithExecutor(config, nil)
}

// NewAsyncClientWithExecutor creates an AsyncClient, see NewClientWithExecutor.
func NewAsyncClientWithExecutor(config Config, executor client.Executor) (*AsyncClient, error) {
	s, err := newSession(config, executor)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{s: s}, nil
}

// Close releases idle connections of the pool. Further calls are no-ops.
func (c *AsyncClient) Close() error { return c.s.close() }

// State returns the authentication state.
func (c *AsyncClient) State() State { return c.s.currentState() }

// AuthToken returns the bearer token, or "" before login.
func (c *AsyncClient) AuthToken() string { return c.s.token() }

// SetAuthToken reuses a token obtained earlier, see Client.SetAuthToken.
func (c *AsyncClient) SetAuthToken(token string) { c.s.setAuthToken(token) }

// AccountID returns the account of the last completed login.
func (c *AsyncClient) AccountID() uuid.UUID { return c.s.account() }

// APIVersion returns the version reported by Provision.
func (c *AsyncClient) APIVersion() string { return c.s.version() }

// Provision confirms the API version.
func (c *AsyncClient) Provision(ctx context.Context) *Future[string] {
	return goFuture(ctx, c.s.provision)
}

// GetUserStatus looks up the account of the configured email address.
func (c *AsyncClient) GetUserStatus(ctx context.Context) *Future[models.UserStatus] {
	id := c.s.identifier(EmailIdentifier)
	return goFuture(ctx, func(ctx context.Context) (models.UserStatus, error) {
		return c.s.getUserStatus(ctx, id)
	})
}

// BeginLogin starts a login for the configured email address. The session
// is in ChallengeIssued once the future resolves without error.
func (c *AsyncClient) BeginLogin(ctx context.Context) *Future[models.Challenge] {
	id := c.s.identifier(EmailIdentifier)
	return goFuture(ctx, func(ctx context.Context) (models.Challenge, error) {
		return c.s.beginLogin(ctx, id)
	})
}

// CompleteLogin finishes a login with the code the vendor sent.
func (c *AsyncClient) CompleteLogin(ctx context.Context, challengeID, otpCode string) *Future[models.LoginInformation] {
	id := c.s.identifier(EmailIdentifier)
	return goFuture(ctx, func(ctx context.Context) (models.LoginInformation, error) {
		return c.s.completeLogin(ctx, id, challengeID, otpCode)
	})
}

// GetUserStatusMobile is GetUserStatus for the configured mobile number.
func (c *AsyncClient) GetUserStatusMobile(ctx context.Context) *Future[models.UserStatus] {
	id := c.s.identifier(MobileIdentifier)
	return goFuture(ctx, func(ctx context.Context) (models.UserStatus, error) {
		return c.s.getUserStatus(ctx, id)
	})
}

// BeginLoginMobile is BeginLogin for the configured mobile number.
func (c *AsyncClient) BeginLoginMobile(ctx context.Context) *Future[models.Challenge] {
	id := c.s.identifier(MobileIdentifier)
	return goFuture(ctx, func(ctx context.Context) (models.Challenge, error) {
		return c.s.beginLogin(ctx, id)
	})
}

// CompleteLoginMobile is CompleteLogin for the configured mobile number.
func (c *AsyncClient) CompleteLoginMobile(ctx context.Context, challengeID, otpCode string) *Future[models.LoginInformation] {
	id := c.s.identifier(MobileIdentifier)
	return goFuture(ctx, func(ctx context.Context) (models.LoginInformation, error) {
		return c.s.completeLogin(ctx, id, challengeID, otpCode)
	})
}

// Authenticate runs the whole login flow, see Client.Authenticate. otp is
// called from the goroutine resolving the future.
func (c *AsyncClient) Authenticate(ctx context.Context, otp OTPProvider) *Future[models.LoginInformation] {
	return goFuture(ctx, func(ctx context.Context) (models.LoginInformation, error) {
		return c.s.authenticate(ctx, otp)
	})
}

// GetDevices returns the devices of the account. Without a login the
// future fails without a request being sent.
func (c *AsyncClient) GetDevices(ctx context.Context) *Future[[]models.Device] {
	return goFuture(ctx, c.s.getDevices)
}

// GetIoTCredentials returns the cloud broker credentials of a device.
func (c *AsyncClient) GetIoTCredentials(ctx context.Context, serial string) *Future[models.IoTData] {
	return goFuture(ctx, func(ctx context.Context) (models.IoTData, error) {
		return c.s.getIoTCredentials(ctx, serial)
	})
}

// GetPendingRelease returns the firmware release waiting for a device.
func (c *AsyncClient) GetPendingRelease(ctx context.Context, serial string) *Future[models.PendingRelease] {
	return goFuture(ctx, func(ctx context.Context) (models.PendingRelease, error) {
		return c.s.getPendingRelease(ctx, serial)
	})
}

// TriggerFirmwareUpdate starts the installation of the pending release.
func (c *AsyncClient) TriggerFirmwareUpdate(ctx context.Context, serial string) *Future[struct{}] {
	return goFuture(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.s.triggerFirmwareUpdate(ctx, serial)
	})
}

// DecryptLocalCredentials runs synchronously; there is nothing to wait for.
func (c *AsyncClient) DecryptLocalCredentials(ciphertext, serial string) (string, error) {
	return decryptLocalCredentials(ciphertext, serial)
}
