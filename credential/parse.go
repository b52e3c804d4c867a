package credential

import (
	"fmt"
	"strings"
)

// Record is the structured configuration shape for one credential.
type Record struct {
	Identity string `mapstructure:"identity"`
	Secret   string `mapstructure:"secret"`
}

// FromRecords normalizes the structured configuration shape into an ordered
// credential list.
func FromRecords(records []Record) ([]Credential, error) {
	creds := make([]Credential, 0, len(records))
	for i, r := range records {
		c := Credential{Identity: r.Identity, Secret: r.Secret}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("credential record %d: %w", i, err)
		}
		creds = append(creds, c)
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	return creds, nil
}

// ParseText parses the newline-delimited fallback shape. Each non-blank line
// is split at the first ':' only, so the secret may itself contain ':' (or
// any other delimiter character). The secret is kept verbatim, including
// trailing spaces; only a trailing '\r' from CRLF input is removed.
func ParseText(text string) ([]Credential, error) {
	var creds []Credential
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		identity, secret, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("credentials line %d: missing ':' delimiter", i+1)
		}
		c := Credential{Identity: identity, Secret: secret}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("credentials line %d: %w", i+1, err)
		}
		creds = append(creds, c)
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	return creds, nil
}
