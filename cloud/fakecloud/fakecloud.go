/*
Package fakecloud is an in-memory stand-in for the Dyson device cloud.

It implements the endpoints used by package cloud with the same paths,
bodies and status codes. Request bodies are checked against the JSON schemas
in schemas/, logins issue HS256 signed JWTs and every route counts its calls,
so tests can prove that a failing precondition never reached the network.

	fake := fakecloud.New()
	fake.AddAccount(fakecloud.Account{Email: "jane@example.com", Password: "secret"})
	fake.AddDevice(fakecloud.ConnectedDevice("XX1-EU-ABC1234A", "Bedroom", "local-password"))

	c, _ := cloud.NewClientWithExecutor(config, client.NewRouterExecutor(fake))
*/
package fakecloud

import (
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/relabs-tech/dysonrest/core/logger"
	"github.com/relabs-tech/dysonrest/core/schema"
	"github.com/relabs-tech/dysonrest/iot/credentials"
	"github.com/relabs-tech/dysonrest/models"
)

//go:embed schemas
var schemasFS embed.FS

const schemaPrefix = "https://fakecloud.dysonrest/"

// requestSchemas are the bodies the fake validates.
var requestSchemas = []string{"userstatus", "auth", "verify", "iot-credentials"}

// Route names, used for call counters and overrides.
const (
	RouteProvision      = "provision"
	RouteUserStatus     = "userstatus"
	RouteAuth           = "auth"
	RouteVerify         = "verify"
	RouteManifest       = "manifest"
	RouteIoTCredentials = "iot-credentials"
	RoutePendingRelease = "pendingrelease"
	RouteTriggerUpdate  = "trigger-update"
)

const (
	DefaultVersion       = "5.0.21061"
	DefaultOTPCode       = "123456"
	DefaultTokenLifetime = time.Hour
	IoTEndpoint          = "fake-ats.iot.eu-west-1.amazonaws.com"

	// RequestIDHeader carries the id the fake logs each request under.
	RequestIDHeader = "X-Request-Id"
)

// Account is a registered user.
type Account struct {
	ID       uuid.UUID
	Email    string
	Mobile   string
	Password string
}

// RecordedRequest is the last request a route received.
type RecordedRequest struct {
	Header http.Header
	Query  url.Values
	Body   []byte
}

type override struct {
	status int
	body   []byte
}

// Server is the fake cloud. It is an http.Handler and safe for concurrent use.
type Server struct {
	handler    http.Handler
	validator  *schema.Validator
	signingKey []byte

	mu             sync.Mutex
	version        string
	otpCode        string
	tokenLifetime  time.Duration
	now            func() time.Time
	accounts       []*Account
	challenges     map[uuid.UUID]*Account
	devices        []map[string]any
	pendingRelease map[string]*models.PendingRelease
	calls          map[string]int
	last           map[string]RecordedRequest
	overrides      map[string]override
}

// New creates an empty fake cloud.
func New() *Server {
	sub, err := fs.Sub(schemasFS, "schemas")
	if err != nil {
		panic(err)
	}
	validator, err := schema.NewValidatorFromFS(sub)
	if err != nil {
		panic(err)
	}
	for _, name := range requestSchemas {
		if !validator.HasSchema(schemaPrefix + name + ".json") {
			panic("fakecloud: missing request schema " + name)
		}
	}

	s := &Server{
		validator:      validator,
		signingKey:     []byte(uuid.NewString()),
		version:        DefaultVersion,
		otpCode:        DefaultOTPCode,
		tokenLifetime:  DefaultTokenLifetime,
		now:            time.Now,
		challenges:     map[uuid.UUID]*Account{},
		pendingRelease: map[string]*models.PendingRelease{},
		calls:          map[string]int{},
		last:           map[string]RecordedRequest{},
		overrides:      map[string]override{},
	}

	router := mux.NewRouter()
	logger.AddRequestID(router)
	s.handleRoutes(router)
	s.handler = handlers.CompressHandler(handlers.RecoveryHandler()(router))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SetVersion sets the version returned by the provisioning endpoint.
func (s *Server) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

// SetOTPCode sets the one-time code every login must present.
func (s *Server) SetOTPCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otpCode = code
}

// OTPCode returns the one-time code every login must present.
func (s *Server) OTPCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otpCode
}

// SetClock replaces the clock used for token expiry.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetTokenLifetime sets the lifetime of issued tokens.
func (s *Server) SetTokenLifetime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenLifetime = d
}

// AddAccount registers an account and returns it. A nil ID is replaced by a random one.
func (s *Server) AddAccount(a Account) Account {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, &a)
	return a
}

// AddDevice adds a manifest entry. All accounts see all devices.
func (s *Server) AddDevice(entry map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, entry)
}

// SetPendingRelease makes release available for the device serial.
func (s *Server) SetPendingRelease(serial string, release models.PendingRelease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRelease[serial] = &release
}

// PendingRelease returns the pending release of serial.
func (s *Server) PendingRelease(serial string) (models.PendingRelease, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.pendingRelease[serial]
	if !ok {
		return models.PendingRelease{}, false
	}
	return *r, true
}

// Override makes route answer with status and body until ClearOverrides.
// Calls are still counted and recorded.
func (s *Server) Override(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[route] = override{status: status, body: []byte(body)}
}

// ClearOverrides removes all overrides.
func (s *Server) ClearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = map[string]override{}
}

// Calls returns how often route was called.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// LastRequest returns the last request route received.
func (s *Server) LastRequest(route string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.last[route]
	return r, ok
}

// IssueToken returns a valid bearer token for account, as a login would.
func (s *Server) IssueToken(account uuid.UUID) (string, error) {
	s.mu.Lock()
	now, lifetime := s.now(), s.tokenLifetime
	s.mu.Unlock()
	claims := jwt.MapClaims{
		"sub": account.String(),
		"iat": now.Unix(),
		"exp": now.Add(lifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ConnectedDevice returns a manifest entry of a Wi-Fi device whose local
// broker password is password.
func ConnectedDevice(serial, name, password string) map[string]any {
	blob, err := credentials.EncryptLocalCredentials(password)
	if err != nil {
		panic(err)
	}
	return map[string]any{
		"serialNumber":       serial,
		"name":               name,
		"model":              "TP09",
		"type":               "438",
		"variant":            "K",
		"category":           string(models.DeviceCategoryEnvironmentCleaner),
		"connectionCategory": string(models.ConnectionCategoryLecAndWifi),
		"connectedConfiguration": map[string]any{
			"firmware": map[string]any{
				"version":             "438KPF.00.01.003.0011",
				"autoUpdateEnabled":   true,
				"newVersionAvailable": false,
				"capabilities":        []any{string(models.CapabilityAdvanceOscillationDay1), string(models.CapabilityScheduling)},
				"minimumAppVersion":   "5.0.21061",
			},
			"mqtt": map[string]any{
				"localBrokerCredentials": blob,
				"mqttRootTopicLevel":     "438K",
				"remoteBrokerType":       string(models.RemoteBrokerTypeWSS),
			},
		},
	}
}

// LocalDevice returns a manifest entry of a device without cloud connectivity.
func LocalDevice(serial, name string) map[string]any {
	return map[string]any{
		"serialNumber":       serial,
		"name":               name,
		"type":               "527",
		"category":           string(models.DeviceCategoryHairCare),
		"connectionCategory": string(models.ConnectionCategoryLecOnly),
	}
}

func (s *Server) handleRoutes(router *mux.Router) {
	registration := "/v3/userregistration/{kind:email|mobile}/"
	router.Handle("/v1/provisioningservice/application/Android/version",
		s.route(RouteProvision, false, s.provision)).Methods(http.MethodGet)
	router.Handle(registration+"userstatus",
		s.route(RouteUserStatus, false, s.userStatus)).Methods(http.MethodPost)
	router.Handle(registration+"auth",
		s.route(RouteAuth, false, s.auth)).Methods(http.MethodPost)
	router.Handle(registration+"verify",
		s.route(RouteVerify, false, s.verify)).Methods(http.MethodPost)
	router.Handle("/v2/provisioningservice/manifest",
		s.route(RouteManifest, true, s.manifest)).Methods(http.MethodGet)
	router.Handle("/v2/authorize/iot-credentials",
		s.route(RouteIoTCredentials, true, s.iotCredentials)).Methods(http.MethodPost)
	router.Handle("/v1/assets/devices/{serial}/pendingrelease",
		s.route(RoutePendingRelease, true, s.pendingReleaseInfo)).Methods(http.MethodGet)
	router.Handle("/v1/assets/devices/{serial}/pendingrelease",
		s.route(RouteTriggerUpdate, true, s.triggerUpdate)).Methods(http.MethodPost)
}

// handlerFunc serves a request whose body has been read already.
type handlerFunc func(w http.ResponseWriter, r *http.Request, body []byte)

// route counts and records calls, applies overrides and checks the bearer
// token of authenticated routes.
func (s *Server) route(name string, authenticated bool, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context()).WithField("route", name)
		w.Header().Set(RequestIDHeader, logger.RequestIDFromContext(r.Context()))
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.calls[name]++
		s.last[name] = RecordedRequest{Header: r.Header.Clone(), Query: r.URL.Query(), Body: body}
		o, overridden := s.overrides[name]
		s.mu.Unlock()

		if overridden {
			rlog.WithField("status", o.status).Debug("override")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(o.status)
			_, _ = w.Write(o.body)
			return
		}
		if authenticated {
			if err := s.checkToken(r.Header.Get("Authorization")); err != nil {
				rlog.WithError(err).Debug("rejected token")
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}
		h(w, r, body)
	})
}

func (s *Server) checkToken(header string) error {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return errors.New("missing bearer token")
	}
	s.mu.Lock()
	now := s.now
	s.mu.Unlock()

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return err
	}
	if !claims.VerifyExpiresAt(now().Unix(), true) {
		return errors.New("token expired")
	}
	return nil
}

func (s *Server) validate(w http.ResponseWriter, body []byte, schemaName string) bool {
	if err := s.validator.ValidateBytes(body, schemaPrefix+schemaName+".json"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// lookup finds the account addressed by body for the identifier kind of the path.
func (s *Server) lookup(r *http.Request, body []byte) (*Account, string, bool) {
	kind := mux.Vars(r)["kind"]
	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, "", false
	}
	value, ok := fields[kind]
	if !ok {
		return nil, "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if (kind == "email" && strings.EqualFold(a.Email, value)) || (kind == "mobile" && a.Mobile == value) {
			return a, kind, true
		}
	}
	return nil, kind, true
}

func (s *Server) provision(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, version)
}

func (s *Server) userStatus(w http.ResponseWriter, r *http.Request, body []byte) {
	if !s.validate(w, body, "userstatus") {
		return
	}
	account, kind, ok := s.lookup(r, body)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "identifier does not match path")
		return
	}
	method := models.AuthenticationMethodEmailPassword2FA
	if kind == "mobile" {
		method = models.AuthenticationMethodMobilePassword2FA
	}
	status := models.UserStatus{AccountStatus: models.AccountStatusUnregistered, AuthenticationMethod: method}
	if account != nil {
		status.AccountStatus = models.AccountStatusActive
	}
	writeJSON(w, http.StatusOK, status.ToMap())
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request, body []byte) {
	if !s.validate(w, body, "auth") {
		return
	}
	account, _, ok := s.lookup(r, body)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "identifier does not match path")
		return
	}
	if account == nil {
		writeMessage(w, http.StatusBadRequest, "account not registered")
		return
	}
	challenge := models.Challenge{ChallengeID: uuid.New()}
	s.mu.Lock()
	s.challenges[challenge.ChallengeID] = account
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, challenge.ToMap())
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, body []byte) {
	if !s.validate(w, body, "verify") {
		return
	}
	var req struct {
		Password    string    `json:"password"`
		ChallengeID uuid.UUID `json:"challengeId"`
		OTPCode     string    `json:"otpCode"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	account, _, ok := s.lookup(r, body)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "identifier does not match path")
		return
	}

	s.mu.Lock()
	challenged, known := s.challenges[req.ChallengeID]
	otpCode := s.otpCode
	s.mu.Unlock()
	if account == nil || !known || challenged != account || req.Password != account.Password || req.OTPCode != otpCode {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	s.mu.Lock()
	delete(s.challenges, req.ChallengeID)
	s.mu.Unlock()

	token, err := s.IssueToken(account.ID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	login := models.LoginInformation{Account: account.ID, Token: token, TokenType: models.TokenTypeBearer}
	writeJSON(w, http.StatusOK, login.ToMap())
}

func (s *Server) manifest(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	devices := append([]map[string]any{}, s.devices...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) hasDevice(serial string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d["serialNumber"] == serial {
			return true
		}
	}
	return false
}

func (s *Server) iotCredentials(w http.ResponseWriter, r *http.Request, body []byte) {
	if !s.validate(w, body, "iot-credentials") {
		return
	}
	var req struct {
		Serial string `json:"Serial"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.hasDevice(req.Serial) {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	tokenValue := uuid.New()
	data := models.IoTData{
		Endpoint: IoTEndpoint,
		IoTCredentials: models.IoTCredentials{
			ClientID:             uuid.New(),
			CustomAuthorizerName: "CustomerIoTAuthorizer",
			TokenKey:             "token",
			TokenSignature:       base64.StdEncoding.EncodeToString([]byte(req.Serial + ":" + tokenValue.String())),
			TokenValue:           tokenValue,
		},
	}
	writeJSON(w, http.StatusOK, data.ToMap())
}

func (s *Server) pendingReleaseInfo(w http.ResponseWriter, r *http.Request, _ []byte) {
	release, ok := s.PendingRelease(mux.Vars(r)["serial"])
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, release.ToMap())
}

func (s *Server) triggerUpdate(w http.ResponseWriter, r *http.Request, body []byte) {
	if len(body) != 0 {
		writeMessage(w, http.StatusBadRequest, "body must be empty")
		return
	}
	serial := mux.Vars(r)["serial"]
	s.mu.Lock()
	release, ok := s.pendingRelease[serial]
	if ok {
		release.Pushed = true
	}
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"Message": message})
}
