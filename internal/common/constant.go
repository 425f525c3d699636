package common

const (
	// AuthorizationHeader carries the bearer token on HTTP requests and gRPC metadata.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"
)
