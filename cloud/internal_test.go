package cloud

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/relabs-tech/dysonrest/cloud/fakecloud"
	"github.com/relabs-tech/dysonrest/core/client"
	"github.com/relabs-tech/dysonrest/core/errs"
	"github.com/relabs-tech/dysonrest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	f := goFuture(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 42, nil
	})

	select {
	case <-f.Done():
		t.Fatal("future resolved early")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// awaiting again returns the same result
	v, _ = f.Await(context.Background())
	assert.Equal(t, 42, v)
}

func TestFutureError(t *testing.T) {
	boom := errors.New("boom")
	f := goFuture(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	})
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("future did not resolve")
	}
	_, err := f.Await(context.Background())
	assert.Equal(t, boom, err)
}

func TestStatusError(t *testing.T) {
	req := &client.Request{Method: http.MethodGet, Path: "/v1/assets/devices/S1/pendingrelease"}
	site := deviceSite("get pending release", "pending release", "S1")

	testCases := []struct {
		name    string
		site    callSite
		status  int
		body    []byte
		kind    errs.Kind
		message string
	}{
		{"ok", site, http.StatusOK, nil, 0, ""},
		{"no content", site, http.StatusNoContent, nil, 0, ""},
		{"bad request", site, http.StatusBadRequest, []byte(" nope \n"), errs.KindAuth,
			"Bad request to Dyson API (400): GET /v1/assets/devices/S1/pendingrelease: nope"},
		{"binary body", site, http.StatusBadRequest, []byte{0xff, 0xfe}, errs.KindAuth,
			"Bad request to Dyson API (400): GET /v1/assets/devices/S1/pendingrelease: <2 bytes of binary data>"},
		{"unauthorized", site, http.StatusUnauthorized, nil, errs.KindAuth,
			"Authentication token expired or invalid"},
		{"not found", site, http.StatusNotFound, nil, errs.KindAPI,
			"Device S1 not found or no pending firmware update available"},
		{"not found without serial", siteDevices, http.StatusNotFound, nil, errs.KindAPI,
			"Failed to get devices: unexpected status 404"},
		{"unauthorized without message", siteBeginLogin, http.StatusUnauthorized, nil, errs.KindAPI,
			"Failed to begin login: unexpected status 401"},
		{"server error", site, http.StatusBadGateway, nil, errs.KindAPI,
			"Failed to get pending release: unexpected status 502"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.site.statusError(req, &client.Response{StatusCode: tc.status, Body: tc.body})
			if tc.message == "" {
				assert.NoError(t, err)
				return
			}
			kind, ok := errs.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind)
			assert.EqualError(t, err, tc.message)
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := siteDevices.transportError(cause)
	assert.EqualError(t, err, "Failed to get devices: connection reset by peer")
	assert.ErrorIs(t, err, errs.ErrConnection)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, context.Canceled, siteDevices.transportError(context.Canceled))

	err = siteDevices.transportError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, errs.ErrConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDiagnosticBody(t *testing.T) {
	assert.Equal(t, "<empty body>", diagnosticBody(nil))
	long := diagnosticBody([]byte(strings.Repeat("a", 500)))
	assert.Len(t, long, maxDiagnosticBody+3)
	assert.True(t, strings.HasSuffix(long, "..."))

	// a multibyte rune straddling the limit is dropped whole
	split := diagnosticBody([]byte(strings.Repeat("a", maxDiagnosticBody-1) + "é" + "tail"))
	assert.True(t, utf8.ValidString(split))
	assert.Equal(t, strings.Repeat("a", maxDiagnosticBody-1)+"...", split)

	fits := diagnosticBody([]byte(strings.Repeat("a", maxDiagnosticBody-2) + "é" + "tail"))
	assert.Equal(t, strings.Repeat("a", maxDiagnosticBody-2)+"é...", fits)
}

func TestSessionStateNeverMovesBackwards(t *testing.T) {
	s, err := newSession(Config{}, client.NewRouterExecutor(http.NotFoundHandler()))
	require.NoError(t, err)
	s.advance(ChallengeIssued)
	s.advance(Provisioned)
	assert.Equal(t, ChallengeIssued, s.currentState())
	assert.Equal(t, "challenge issued", s.currentState().String())
}

func TestLoginPublishesAccountWithState(t *testing.T) {
	ctx := context.Background()
	fake := fakecloud.New()
	account := fake.AddAccount(fakecloud.Account{Email: "jane@example.com", Password: "pw"})

	s, err := newSession(Config{Email: "jane@example.com", Password: "pw"}, client.NewRouterExecutor(fake))
	require.NoError(t, err)

	var (
		wg           sync.WaitGroup
		stop         atomic.Bool
		inconsistent atomic.Int32
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				if s.currentState() == Authenticated && s.account() == uuid.Nil {
					inconsistent.Add(1)
				}
			}
		}()
	}

	_, err = s.authenticate(ctx, func(context.Context, models.Challenge) (string, error) {
		return fake.OTPCode(), nil
	})
	stop.Store(true)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, account.ID, s.account())
	assert.Zero(t, inconsistent.Load())
}
