package hawk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/roadrunner-server/errors"
)

// DecodedToken is the parsed contents of a Hawk integration token.
//
// The token is base64-encoded JSON:
//
//	{ "integrationId": "abc123...", "secret": "xyz789..." }
//
// Only integrationId is needed to derive the default collector endpoint.
// The secret is present in the token but not used by the SDK at runtime.
type DecodedToken struct {
	IntegrationID string `json:"integrationId"`
	Secret        string `json:"secret"`
}

// DecodeToken decodes a base64-encoded integration token into its
// structured form. The token comes from the Hawk project settings page.
func DecodeToken(token string) (*DecodedToken, error) {
	const op = errors.Op("hawk_token_decode")

	if token == "" {
		return nil, errors.E(op, errors.Str("integration token is empty"))
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.E(op, fmt.Errorf("failed to base64-decode integration token: %w", err))
	}

	decoded := &DecodedToken{}
	if err := json.Unmarshal(raw, decoded); err != nil {
		return nil, errors.E(op, fmt.Errorf("failed to parse integration token: %w", err))
	}

	if decoded.IntegrationID == "" {
		return nil, errors.E(op, errors.Str("invalid integration token: integrationId is empty"))
	}

	return decoded, nil
}

// DefaultEndpoint builds the default collector endpoint URL from an
// integration ID: https://{integrationId}.k1.hawk.so/
func DefaultEndpoint(integrationID string) string {
	return fmt.Sprintf("https://%s.k1.hawk.so/", integrationID)
}
