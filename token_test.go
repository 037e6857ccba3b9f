package hawk

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeToken(t *testing.T, payload string) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestDecodeToken_Valid(t *testing.T) {
	token := encodeToken(t, `{"integrationId":"test123","secret":"s3cret"}`)

	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "test123", decoded.IntegrationID)
	assert.Equal(t, "s3cret", decoded.Secret)
}

func TestDecodeToken_InvalidBase64(t *testing.T) {
	_, err := DecodeToken("not-valid-base64!!!")
	require.Error(t, err)
}

func TestDecodeToken_InvalidJSON(t *testing.T) {
	_, err := DecodeToken(encodeToken(t, "not json"))
	require.Error(t, err)
}

func TestDecodeToken_EmptyIntegrationID(t *testing.T) {
	_, err := DecodeToken(encodeToken(t, `{"integrationId":"","secret":"s3cret"}`))
	require.Error(t, err)
}

func TestDecodeToken_Empty(t *testing.T) {
	_, err := DecodeToken("")
	require.Error(t, err)
}

func TestDefaultEndpoint(t *testing.T) {
	assert.Equal(t, "https://abc123.k1.hawk.so/", DefaultEndpoint("abc123"))
}
