// Package routes provides shared API route constants used by the identity
// client and the auth flows to prevent path mismatches.
package routes

const (
	// ConnectAuth is the OAuth authorization endpoint on the accounts host.
	ConnectAuth = "/connect/auth"

	// ConnectToken exchanges authorization codes and refresh tokens for
	// bearer tokens (form-encoded POST, no auth).
	ConnectToken = "/connect/token" // #nosec G101 -- route path, not a credential

	// ConnectTokenInfo is the token introspection endpoint. The token under
	// inspection travels as the access_token query parameter.
	ConnectTokenInfo = "/connect/tokeninfo" // #nosec G101 -- route path, not a credential

	// IdentityMe returns the account (PID) record for the bearer token's
	// user, wrapped in a {"pid": {...}} envelope.
	IdentityMe = "/proxy/identity/pids/me"

	// IdentityPersonas returns the personas linked to an account. The
	// response body may use one of several JSON container shapes or XML.
	IdentityPersonas = "/proxy/identity/pids/{pid}/personas"
)
