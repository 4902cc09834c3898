package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Credentials are the forum API credentials stored as a JSON secret.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	UserAgent    string `json:"user_agent"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// LoadCredentials reads and validates the credentials secret. A missing
// secret is an error here, unlike the cursor.
func LoadCredentials(ctx context.Context, p Provider, name string) (*Credentials, error) {
	raw, err := p.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials %s: %w", name, err)
	}
	return ParseCredentials(raw)
}

// ParseCredentials decodes the JSON credentials document.
func ParseCredentials(raw string) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON: %w", err)
	}

	var missing []string
	for _, f := range []struct {
		key   string
		value string
	}{
		{"client_id", creds.ClientID},
		{"client_secret", creds.ClientSecret},
		{"user_agent", creds.UserAgent},
		{"username", creds.Username},
		{"password", creds.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("credentials missing fields: %s", strings.Join(missing, ", "))
	}
	return &creds, nil
}
