package credential

import "errors"

var (
	ErrEmptyIdentity = errors.New("credential identity is required")
	ErrEmptySecret   = errors.New("credential secret is required")
	ErrNoCredentials = errors.New("no credentials resolved from configuration")
)

// Credential is one identity/secret pair to probe. The secret is carried
// verbatim: whitespace and delimiter characters are part of the value.
// Credentials are never written into persisted artifacts.
type Credential struct {
	Identity string
	Secret   string
}

// Validate checks that both halves of the pair are present.
func (c Credential) Validate() error {
	if c.Identity == "" {
		return ErrEmptyIdentity
	}
	if c.Secret == "" {
		return ErrEmptySecret
	}
	return nil
}
