package cloud

// DefaultAPIHost serves every country without a regional deployment.
const DefaultAPIHost = "https://appapi.cp.dyson.com"

var regionalHosts = map[string]string{
	"AU": "https://appapi.cp.dyson.au",
	"NZ": "https://appapi.cp.dyson.nz",
	"CN": "https://appapi.cp.dyson.cn",
}

// APIHostname returns the base URL of the API for an ISO country code.
// Matching is exact: "au" gets the default host.
func APIHostname(country string) string {
	if host, ok := regionalHosts[country]; ok {
		return host
	}
	return DefaultAPIHost
}
