package auth

// publicPaths lists URL paths that bypass token validation entirely. These
// are infrastructure endpoints (health, metrics) and FHIR discovery
// endpoints that must be reachable without credentials.
var publicPaths = map[string]bool{
	"/health":                               true,
	"/metrics":                              true,
	"/.well-known/smart-configuration":      true,
	"/fhir/.well-known/smart-configuration": true,
	"/fhir/metadata":                        true,
}

// IsPublicPath reports whether the given path is a public infrastructure or
// discovery endpoint.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
