package auth

// Credentials is a username/plaintext password pair provided on login
// or via HTTP basic auth. It only exists for the duration of a single
// validation call and is never persisted.
type Credentials struct {
	Username string
	Password Password
}
