package cloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/relabs-tech/dysonrest/core/client"
	"github.com/relabs-tech/dysonrest/core/errs"
	"github.com/relabs-tech/dysonrest/core/logger"
	"github.com/relabs-tech/dysonrest/core/validation"
	"github.com/relabs-tech/dysonrest/iot/credentials"
	"github.com/relabs-tech/dysonrest/models"
)

// UserAgent is sent with every request.
const UserAgent = "android client"

const (
	pathProvision      = "/v1/provisioningservice/application/Android/version"
	pathManifest       = "/v2/provisioningservice/manifest"
	pathIoTCredentials = "/v2/authorize/iot-credentials"
)

func pendingReleasePath(serial string) string {
	return "/v1/assets/devices/" + url.PathEscape(serial) + "/pendingrelease"
}

// OTPProvider returns the one-time code the vendor sent for challenge.
type OTPProvider func(ctx context.Context, challenge models.Challenge) (string, error)

// session is the state machine shared by Client and AsyncClient. The state
// fields are only written by the call that completes a transition.
type session struct {
	config   Config
	executor client.Executor

	mu         sync.RWMutex
	state      State
	apiVersion string
	authToken  string
	accountID  uuid.UUID

	closeOnce sync.Once
	closeErr  error
}

func newSession(config Config, executor client.Executor) (*session, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if executor == nil {
		executor = client.NewHTTPExecutor(config.baseURL(), config.Timeout)
	}
	executor.SetHeader("User-Agent", UserAgent)

	s := &session{config: config, executor: executor}
	if config.AuthToken != "" {
		s.setAuthToken(config.AuthToken)
	}
	return s, nil
}

func (s *session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.executor.Close()
	})
	return s.closeErr
}

func (s *session) currentState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *session) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authToken
}

func (s *session) account() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

func (s *session) version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiVersion
}

// setAuthToken installs token as the session's bearer token. An empty token
// logs the session out.
func (s *session) setAuthToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installTokenLocked(token)
}

// login records a successful login. Token, account and state change together.
func (s *session) login(token string, account uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installTokenLocked(token)
	s.accountID = account
}

// installTokenLocked requires s.mu to be held for writing.
func (s *session) installTokenLocked(token string) {
	s.authToken = token
	if token == "" {
		s.executor.DelHeader("Authorization")
		s.accountID = uuid.Nil
		s.state = Unprovisioned
		if s.apiVersion != "" {
			s.state = Provisioned
		}
		return
	}
	s.executor.SetHeader("Authorization", "Bearer "+token)
	s.state = Authenticated
}

// advance moves the session forward to state. It never moves backwards.
func (s *session) advance(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state > s.state {
		s.state = state
	}
}

// requireAuthenticated fails locally when the session holds no token.
func (s *session) requireAuthenticated(what string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated || s.authToken == "" {
		return errs.Auth("Must authenticate before "+what, nil)
	}
	return nil
}

func (s *session) identifier(kind IdentifierKind) Identifier {
	if kind == MobileIdentifier {
		return Mobile(s.config.Mobile)
	}
	return Email(s.config.Email)
}

// call sends r and returns the decoded body of a 2xx response. Bodies of 204
// responses decode to nil.
func (s *session) call(ctx context.Context, site callSite, r *client.Request) (any, error) {
	res, err := s.send(ctx, site, r)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusNoContent || len(res.Body) == 0 {
		return nil, nil
	}
	v, err := validation.Decode(res.Body)
	if err != nil {
		return nil, site.invalidResponse(err)
	}
	return v, nil
}

// send sends r and maps transport and status failures. It returns the raw
// response of every 2xx status.
func (s *session) send(ctx context.Context, site callSite, r *client.Request) (*client.Response, error) {
	ctx, rlog := logger.ContextWithOperation(ctx, site.action)
	rlog = rlog.WithField("method", r.Method).WithField("path", r.Path)
	rlog.Debug("request")

	res, err := s.executor.Do(ctx, r)
	if err != nil {
		rlog.WithError(err).Debug("request failed")
		return nil, site.transportError(err)
	}
	rlog.WithField("status", res.StatusCode).Debug("response")
	if err := site.statusError(r, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *session) provision(ctx context.Context) (string, error) {
	v, err := s.call(ctx, siteProvision, &client.Request{Method: http.MethodGet, Path: pathProvision})
	if err != nil {
		return "", err
	}
	var version string
	switch x := v.(type) {
	case string:
		version = x
	case fmt.Stringer:
		// numeric versions such as 1.2 arrive as json.Number
		version = x.String()
	default:
		return "", siteProvision.invalidResponse(&validation.Error{
			Message: "Expected str for version, got " + validation.TypeName(v),
		})
	}

	s.mu.Lock()
	s.apiVersion = version
	s.mu.Unlock()
	s.advance(Provisioned)
	return version, nil
}

func (s *session) getUserStatus(ctx context.Context, id Identifier) (models.UserStatus, error) {
	if id.Value == "" {
		return models.UserStatus{}, errs.Auth(id.missingMessage(), nil)
	}
	v, err := s.call(ctx, siteUserStatus, &client.Request{
		Method: http.MethodPost,
		Path:   id.registrationPath("userstatus"),
		Query:  url.Values{"country": {s.config.Country}},
		Body:   map[string]string{id.key(): id.Value},
	})
	if err != nil {
		return models.UserStatus{}, err
	}
	m, err := validation.Response(v, "UserStatus")
	if err == nil {
		var status models.UserStatus
		if status, err = models.UserStatusFromMap(m); err == nil {
			return status, nil
		}
	}
	return models.UserStatus{}, siteUserStatus.invalidResponse(err)
}

func (s *session) beginLogin(ctx context.Context, id Identifier) (models.Challenge, error) {
	if id.Value == "" {
		return models.Challenge{}, errs.Auth(id.missingMessage(), nil)
	}
	v, err := s.call(ctx, siteBeginLogin, &client.Request{
		Method: http.MethodPost,
		Path:   id.registrationPath("auth"),
		Query:  url.Values{"country": {s.config.Country}, "culture": {s.config.Culture}},
		Body:   map[string]string{id.key(): id.Value},
	})
	if err != nil {
		return models.Challenge{}, err
	}
	m, err := validation.Response(v, "Challenge")
	if err == nil {
		var challenge models.Challenge
		if challenge, err = models.ChallengeFromMap(m); err == nil {
			s.advance(ChallengeIssued)
			return challenge, nil
		}
	}
	return models.Challenge{}, siteBeginLogin.invalidResponse(err)
}

func (s *session) completeLogin(ctx context.Context, id Identifier, challengeID, otpCode string) (models.LoginInformation, error) {
	if id.Value == "" || s.config.Password == "" {
		return models.LoginInformation{}, errs.Auth(id.missingCredentialsMessage(), nil)
	}
	v, err := s.call(ctx, siteCompleteLogin, &client.Request{
		Method: http.MethodPost,
		Path:   id.registrationPath("verify"),
		Body: map[string]string{
			id.key():      id.Value,
			"password":    s.config.Password,
			"challengeId": challengeID,
			"otpCode":     otpCode,
		},
	})
	if err != nil {
		return models.LoginInformation{}, err
	}
	m, err := validation.Response(v, "LoginInformation")
	if err != nil {
		return models.LoginInformation{}, siteCompleteLogin.invalidResponse(err)
	}
	login, err := models.LoginInformationFromMap(m)
	if err != nil {
		return models.LoginInformation{}, siteCompleteLogin.invalidResponse(err)
	}

	s.login(login.Token, login.Account)
	logger.FromContext(ctx).WithField("account", login.Account).Debug("logged in")
	return login, nil
}

// authenticate runs the whole login flow for the configured identifier,
// preferring the email address over the mobile number.
func (s *session) authenticate(ctx context.Context, otp OTPProvider) (models.LoginInformation, error) {
	id := s.identifier(EmailIdentifier)
	if id.Value == "" && s.config.Mobile != "" {
		id = s.identifier(MobileIdentifier)
	}
	if id.Value == "" || s.config.Password == "" {
		return models.LoginInformation{}, errs.Auth(id.missingCredentialsMessage(), nil)
	}
	if otp == nil {
		return models.LoginInformation{}, errs.Auth("OTP provider required", nil)
	}

	if _, err := s.provision(ctx); err != nil {
		return models.LoginInformation{}, err
	}
	challenge, err := s.beginLogin(ctx, id)
	if err != nil {
		return models.LoginInformation{}, err
	}
	code, err := otp(ctx, challenge)
	if err != nil {
		return models.LoginInformation{}, fmt.Errorf("reading OTP code: %w", err)
	}
	return s.completeLogin(ctx, id, challenge.ChallengeID.String(), code)
}

func (s *session) getDevices(ctx context.Context) ([]models.Device, error) {
	if err := s.requireAuthenticated("getting devices"); err != nil {
		return nil, err
	}
	v, err := s.call(ctx, siteDevices, &client.Request{Method: http.MethodGet, Path: pathManifest})
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		return nil, siteDevices.invalidResponse(&validation.Error{
			Message: "Expected list for devices, got " + validation.TypeName(v),
		})
	}
	devices, err := models.DevicesFromList(l)
	if err != nil {
		return nil, siteDevices.invalidResponse(err)
	}
	return devices, nil
}

func (s *session) getIoTCredentials(ctx context.Context, serial string) (models.IoTData, error) {
	if err := s.requireAuthenticated("getting IoT credentials"); err != nil {
		return models.IoTData{}, err
	}
	site := deviceSite("get IoT credentials", "IoT credentials", serial)
	v, err := s.call(ctx, site, &client.Request{
		Method: http.MethodPost,
		Path:   pathIoTCredentials,
		Body:   map[string]string{"Serial": serial},
	})
	if err != nil {
		return models.IoTData{}, err
	}
	m, err := validation.Response(v, "IoTData")
	if err == nil {
		var data models.IoTData
		if data, err = models.IoTDataFromMap(m); err == nil {
			return data, nil
		}
	}
	return models.IoTData{}, site.invalidResponse(err)
}

func (s *session) getPendingRelease(ctx context.Context, serial string) (models.PendingRelease, error) {
	if err := s.requireAuthenticated("getting pending release info"); err != nil {
		return models.PendingRelease{}, err
	}
	site := deviceSite("get pending release", "pending release", serial)
	v, err := s.call(ctx, site, &client.Request{Method: http.MethodGet, Path: pendingReleasePath(serial)})
	if err != nil {
		return models.PendingRelease{}, err
	}
	m, err := validation.Response(v, "PendingRelease")
	if err == nil {
		var release models.PendingRelease
		if release, err = models.PendingReleaseFromMap(m); err == nil {
			return release, nil
		}
	}
	return models.PendingRelease{}, site.invalidResponse(err)
}

// triggerFirmwareUpdate asks the device to install its pending release. The
// vendor answers 204; any other success status is an error.
func (s *session) triggerFirmwareUpdate(ctx context.Context, serial string) error {
	if err := s.requireAuthenticated("triggering firmware update"); err != nil {
		return err
	}
	site := deviceSite("trigger firmware update", "firmware update", serial)
	res, err := s.send(ctx, site, &client.Request{
		Method: http.MethodPost,
		Path:   pendingReleasePath(serial),
		Header: map[string]string{
			"Cache-Control":  "no-cache",
			"Content-Length": "0",
		},
	})
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusNoContent {
		return errs.API(fmt.Sprintf("Unexpected response status: %d", res.StatusCode), nil)
	}
	return nil
}

func decryptLocalCredentials(ciphertext, serial string) (string, error) {
	return credentials.DecryptLocalCredentials(ciphertext, serial)
}
