package cloud_test

import (
	"context"
	"sync"
	"testing"

	"github.com/relabs-tech/dysonrest/cloud"
	"github.com/relabs-tech/dysonrest/cloud/fakecloud"
	"github.com/relabs-tech/dysonrest/core/client"
	"github.com/relabs-tech/dysonrest/core/errs"
	"github.com/relabs-tech/dysonrest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAsyncClient(t *testing.T, fake *fakecloud.Server, config cloud.Config) *cloud.AsyncClient {
	t.Helper()
	c, err := cloud.NewAsyncClientWithExecutor(config, client.NewRouterExecutor(fake))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAsyncLoginFlow(t *testing.T) {
	ctx := context.Background()
	fake, account := newFake(t)
	fake.SetPendingRelease(testSerial, models.PendingRelease{Version: "438KPF.00.01.004.0001"})
	c := newAsyncClient(t, fake, defaultConfig())

	version, err := c.Provision(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakecloud.DefaultVersion, version)

	status, err := c.GetUserStatus(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusActive, status.AccountStatus)

	challenge, err := c.BeginLogin(ctx).Await(ctx)
	require.NoError(t, err)
	info, err := c.CompleteLogin(ctx, challenge.ChallengeID.String(), fake.OTPCode()).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.Token, c.AuthToken())
	assert.Equal(t, account.ID, c.AccountID())
	assert.Equal(t, cloud.Authenticated, c.State())

	devices, err := c.GetDevices(ctx).Await(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	data, err := c.GetIoTCredentials(ctx, testSerial).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakecloud.IoTEndpoint, data.Endpoint)

	release, err := c.GetPendingRelease(ctx, testSerial).Await(ctx)
	require.NoError(t, err)
	assert.False(t, release.Pushed)

	_, err = c.TriggerFirmwareUpdate(ctx, testSerial).Await(ctx)
	require.NoError(t, err)

	blob := devices[0].ConnectedConfiguration.MQTT.LocalBrokerCredentials.Encrypted
	password, err := c.DecryptLocalCredentials(blob, testSerial)
	require.NoError(t, err)
	assert.Equal(t, localSecret, password)
}

func TestAsyncMobileAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	fake, _ := newFake(t)
	c := newAsyncClient(t, fake, cloud.Config{Mobile: testMobile, Password: testPassword})

	status, err := c.GetUserStatusMobile(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AuthenticationMethodMobilePassword2FA, status.AuthenticationMethod)

	challenge, err := c.BeginLoginMobile(ctx).Await(ctx)
	require.NoError(t, err)
	_, err = c.CompleteLoginMobile(ctx, challenge.ChallengeID.String(), fake.OTPCode()).Await(ctx)
	require.NoError(t, err)

	c2 := newAsyncClient(t, fake, cloud.Config{Mobile: testMobile, Password: testPassword})
	_, err = c2.Authenticate(ctx, func(context.Context, models.Challenge) (string, error) {
		return fake.OTPCode(), nil
	}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, cloud.Authenticated, c2.State())
	assert.Equal(t, 2, fake.Calls(fakecloud.RouteVerify))
}

func TestAsyncPreconditions(t *testing.T) {
	ctx := context.Background()
	fake, _ := newFake(t)
	c := newAsyncClient(t, fake, cloud.Config{})

	_, err := c.GetDevices(ctx).Await(ctx)
	assert.EqualError(t, err, "Must authenticate before getting devices")
	_, err = c.GetIoTCredentials(ctx, testSerial).Await(ctx)
	assert.EqualError(t, err, "Must authenticate before getting IoT credentials")
	_, err = c.GetPendingRelease(ctx, testSerial).Await(ctx)
	assert.EqualError(t, err, "Must authenticate before getting pending release info")
	_, err = c.TriggerFirmwareUpdate(ctx, testSerial).Await(ctx)
	assert.ErrorIs(t, err, errs.ErrAuth)
	_, err = c.BeginLogin(ctx).Await(ctx)
	assert.EqualError(t, err, "Email required")

	assert.Zero(t, fake.TotalCalls())
}

func TestAsyncTokenAccessors(t *testing.T) {
	fake, account := newFake(t)
	token, err := fake.IssueToken(account.ID)
	require.NoError(t, err)

	c := newAsyncClient(t, fake, cloud.Config{})
	assert.Empty(t, c.APIVersion())
	c.SetAuthToken(token)
	assert.Equal(t, token, c.AuthToken())
	assert.Equal(t, cloud.Authenticated, c.State())

	_, err = c.GetDevices(context.Background()).Await(context.Background())
	assert.NoError(t, err)
}

// Independent clients share nothing and can run side by side.
func TestAsyncClientsInParallel(t *testing.T) {
	ctx := context.Background()
	fake, _ := newFake(t)

	var wg sync.WaitGroup
	errors := make([]error, 8)
	for i := range errors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := cloud.NewAsyncClientWithExecutor(defaultConfig(), client.NewRouterExecutor(fake))
			if err != nil {
				errors[i] = err
				return
			}
			defer c.Close()
			_, errors[i] = c.Authenticate(ctx, func(context.Context, models.Challenge) (string, error) {
				return fake.OTPCode(), nil
			}).Await(ctx)
		}(i)
	}
	wg.Wait()
	for _, err := range errors {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, fake.Calls(fakecloud.RouteVerify))
}
