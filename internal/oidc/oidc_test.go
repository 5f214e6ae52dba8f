package oidc

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsecureVerifier_ParsesClaims(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"s1","email":"a@x.com"}`))
	tok, err := NewInsecureVerifier().Verify(context.Background(), "hdr."+payload+".sig")
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "a@x.com", claims["email"])
	require.Equal(t, "s1", claims["sub"])
}

func TestInsecureVerifier_Rejects(t *testing.T) {
	v := NewInsecureVerifier()
	_, err := v.Verify(context.Background(), "nodots")
	require.Error(t, err)
	_, err = v.Verify(context.Background(), "hdr.!!!.sig")
	require.Error(t, err)
	notJSON := base64.RawURLEncoding.EncodeToString([]byte("plain"))
	_, err = v.Verify(context.Background(), "hdr."+notJSON+".sig")
	require.Error(t, err)
}

func TestKeycloakIssuer(t *testing.T) {
	require.Equal(t, "https://kc.example/realms/snacks", KeycloakIssuer("https://kc.example/", "snacks"))
	require.Equal(t, "https://kc.example/realms/snacks", KeycloakIssuer("https://kc.example/realms/snacks", ""))
}
