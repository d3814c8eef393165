package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go"
)

// extractProjectRef extracts the project reference ID from a Supabase URL
// (e.g. akrqbuajqkirdekonpzy.supabase.co -> akrqbuajqkirdekonpzy).
func extractProjectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	parts := strings.Split(url, ".")
	return parts[0]
}

// Auth wraps the Supabase authentication client. It is the only auth
// collaborator the pipeline knows about.
type Auth struct {
	client gotrue.Client
}

// NewAuth initializes the Supabase authentication client and verifies
// connectivity.
func NewAuth(supabaseURL, serviceKey string) (*Auth, error) {
	client := gotrue.New(extractProjectRef(supabaseURL), serviceKey)
	if _, err := client.GetSettings(); err != nil {
		return nil, fmt.Errorf("failed to connect to Supabase: %w", err)
	}
	return &Auth{client: client}, nil
}

// ValidateCredentials signs the user in and returns their account id.
func (a *Auth) ValidateCredentials(email, password string) (string, error) {
	res, err := a.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	if res == nil || res.AccessToken == "" {
		return "", fmt.Errorf("authentication failed: empty session")
	}
	return res.User.ID.String(), nil
}
