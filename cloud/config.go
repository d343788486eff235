package cloud

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/relabs-tech/dysonrest/core/errs"
)

const (
	DefaultCountry = "US"
	DefaultCulture = "en-US"
	DefaultTimeout = 30 * time.Second
)

// Config configures a session. Zero values are replaced by the defaults.
type Config struct {
	Email    string `env:"DYSON_EMAIL"`
	Mobile   string `env:"DYSON_MOBILE"`
	Password string `env:"DYSON_PASSWORD"`
	// Country is a two letter uppercase code. It selects the regional API host.
	Country string        `env:"DYSON_COUNTRY,default=US" validate:"len=2,alpha,uppercase"`
	Culture string        `env:"DYSON_CULTURE,default=en-US" validate:"culture"`
	Timeout time.Duration `env:"DYSON_TIMEOUT,default=30s"`
	// AuthToken starts the session authenticated.
	AuthToken string `env:"DYSON_AUTH_TOKEN"`
	// BaseURL overrides the regional host, e.g. to talk to a fake cloud.
	BaseURL string `env:"DYSON_BASE_URL"`
}

var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("culture", isCulture); err != nil {
		panic(err)
	}
	return v
}

// isCulture accepts language-region tags of the form xx-XX.
func isCulture(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != '-' {
		return false
	}
	for i, c := range []byte(s) {
		switch {
		case i < 2 && (c < 'a' || c > 'z'):
			return false
		case i > 2 && (c < 'A' || c > 'Z'):
			return false
		}
	}
	return true
}

// ConfigFromEnv reads the configuration from DYSON_* environment variables.
// Values that do not parse, such as a malformed DYSON_TIMEOUT, are errors.
func ConfigFromEnv() (Config, error) {
	var config Config
	if err := envdecode.StrictDecode(&config); err != nil {
		return Config{}, err
	}
	config = config.withDefaults()
	return config, config.Validate()
}

func (c Config) withDefaults() Config {
	if c.Country == "" {
		c.Country = DefaultCountry
	}
	if c.Culture == "" {
		c.Culture = DefaultCulture
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks country and culture. Missing credentials are not an error
// here; the operations that need them fail instead.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.Auth("Invalid configuration: "+err.Error(), err)
	}
	switch verrs[0].StructField() {
	case "Country":
		return errs.Auth("Country must be a 2-character uppercase code, got "+quote(c.Country), nil)
	default:
		return errs.Auth("Culture must be in the form xx-XX, got "+quote(c.Culture), nil)
	}
}

// baseURL is the API host the session talks to.
func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return APIHostname(c.Country)
}

func quote(s string) string {
	return "'" + s + "'"
}
