package mmapi

// Credentials authenticate a session: either a login_id and password, or a
// personal access token. Use PasswordCredentials or TokenCredentials to build
// one; the zero value holds neither and is rejected by the client.
type Credentials struct {
	loginID  string
	password string
	token    string
	kind     credentialKind
}

type credentialKind int

const (
	credentialNone credentialKind = iota
	credentialPassword
	credentialToken
)

// PasswordCredentials authenticates with a login_id (usually an email
// address) and password. The session token is obtained by StoreSessionToken.
func PasswordCredentials(loginID, password string) Credentials {
	return Credentials{loginID: loginID, password: password, kind: credentialPassword}
}

// TokenCredentials authenticates with a personal access token. Personal access
// tokens must be enabled by an administrator of the instance.
func TokenCredentials(token string) Credentials {
	return Credentials{token: token, kind: credentialToken}
}

// UsingPassword reports whether the credentials hold a login_id and password.
func (c Credentials) UsingPassword() bool { return c.kind == credentialPassword }

// UsingToken reports whether the credentials hold an access token.
func (c Credentials) UsingToken() bool { return c.kind == credentialToken }

// LoginID returns the login_id of password credentials.
func (c Credentials) LoginID() string { return c.loginID }

// Password returns the password of password credentials.
func (c Credentials) Password() string { return c.password }

// Token returns the access token of token credentials.
func (c Credentials) Token() string { return c.token }

// Valid reports whether the credentials were built by one of the constructors.
func (c Credentials) Valid() bool { return c.kind != credentialNone }

// String never prints the secret parts.
func (c Credentials) String() string {
	switch c.kind {
	case credentialPassword:
		return "password(" + c.loginID + ")"
	case credentialToken:
		return "token([REDACTED])"
	default:
		return "none"
	}
}
