package cloud_test

import (
	"testing"
	"time"

	"github.com/relabs-tech/dysonrest/cloud"
	"github.com/relabs-tech/dysonrest/core/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIHostname(t *testing.T) {
	testCases := map[string]string{
		"AU":  "https://appapi.cp.dyson.au",
		"NZ":  "https://appapi.cp.dyson.nz",
		"CN":  "https://appapi.cp.dyson.cn",
		"US":  cloud.DefaultAPIHost,
		"GB":  cloud.DefaultAPIHost,
		"DE":  cloud.DefaultAPIHost,
		"au":  cloud.DefaultAPIHost,
		"nz":  cloud.DefaultAPIHost,
		"cn":  cloud.DefaultAPIHost,
		"":    cloud.DefaultAPIHost,
		"USA": cloud.DefaultAPIHost,
		"AUS": cloud.DefaultAPIHost,
		"A":   cloud.DefaultAPIHost,
		"!@#": cloud.DefaultAPIHost,
	}
	for country, want := range testCases {
		assert.Equal(t, want, cloud.APIHostname(country), country)
		assert.Equal(t, cloud.APIHostname(country), cloud.APIHostname(country))
	}
	assert.Equal(t, "https://appapi.cp.dyson.com", cloud.DefaultAPIHost)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		config  cloud.Config
		wantErr string
	}{
		{"valid", cloud.Config{Country: "US", Culture: "en-US"}, ""},
		{"uk", cloud.Config{Country: "UK", Culture: "en-GB"}, ""},
		{"lowercase country", cloud.Config{Country: "us", Culture: "en-US"}, "Country must be a 2-character uppercase code, got 'us'"},
		{"long country", cloud.Config{Country: "USA", Culture: "en-US"}, "Country must be a 2-character uppercase code, got 'USA'"},
		{"empty country", cloud.Config{Culture: "en-US"}, "Country must be a 2-character uppercase code, got ''"},
		{"bad culture", cloud.Config{Country: "US", Culture: "en_US"}, "Culture must be in the form xx-XX, got 'en_US'"},
		{"culture case", cloud.Config{Country: "US", Culture: "EN-us"}, "Culture must be in the form xx-XX, got 'EN-us'"},
		{"digit in country", cloud.Config{Country: "U1", Culture: "en-US"}, "Country must be a 2-character uppercase code, got 'U1'"},
		{"symbols in country", cloud.Config{Country: "!@", Culture: "en-US"}, "Country must be a 2-character uppercase code, got '!@'"},
		{"lowercase region", cloud.Config{Country: "US", Culture: "en-us"}, "Culture must be in the form xx-XX, got 'en-us'"},
		{"long region", cloud.Config{Country: "US", Culture: "en-USA"}, "Culture must be in the form xx-XX, got 'en-USA'"},
		{"empty culture", cloud.Config{Country: "US"}, "Culture must be in the form xx-XX, got ''"},
		{"both invalid", cloud.Config{Country: "us", Culture: "x"}, "Country must be a 2-character uppercase code, got 'us'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr)
			assert.ErrorIs(t, err, errs.ErrAuth)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DYSON_EMAIL", "jane@example.com")
	t.Setenv("DYSON_PASSWORD", "secret")
	t.Setenv("DYSON_COUNTRY", "AU")
	t.Setenv("DYSON_TIMEOUT", "5s")

	config, err := cloud.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", config.Email)
	assert.Equal(t, "secret", config.Password)
	assert.Equal(t, "AU", config.Country)
	assert.Equal(t, cloud.DefaultCulture, config.Culture)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Empty(t, config.AuthToken)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"DYSON_EMAIL", "DYSON_MOBILE", "DYSON_PASSWORD", "DYSON_COUNTRY",
		"DYSON_CULTURE", "DYSON_TIMEOUT", "DYSON_AUTH_TOKEN", "DYSON_BASE_URL"} {
		t.Setenv(key, "")
	}
	config, err := cloud.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cloud.DefaultCountry, config.Country)
	assert.Equal(t, cloud.DefaultCulture, config.Culture)
	assert.Equal(t, cloud.DefaultTimeout, config.Timeout)
}

func TestConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("DYSON_COUNTRY", "usa")
	_, err := cloud.ConfigFromEnv()
	assert.ErrorIs(t, err, errs.ErrAuth)

	t.Setenv("DYSON_COUNTRY", "US")
	t.Setenv("DYSON_TIMEOUT", "soon")
	_, err = cloud.ConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"soon"`)
	assert.NotErrorIs(t, err, errs.ErrAuth)
}
