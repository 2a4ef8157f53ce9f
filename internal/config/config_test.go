package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AWS_REGION", "KB_ID", "KB_BUCKET_NAME", "DYNAMODB_TABLE",
		"COGNITO_USER_POOL_ID", "COGNITO_CLIENT_ID", "PARAM_PREFIX",
		"LISTEN_ADDR", "BACKEND_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	require.Equal(t, "us-east-1", cfg.Region)
	require.Equal(t, ":8000", cfg.ListenAddr)
	require.Equal(t, ":8501", cfg.ShellListenAddr)
	require.Equal(t, "http://localhost:8000", cfg.BackendURL)
	require.Empty(t, cfg.KnowledgeBaseID)
	require.Empty(t, cfg.TableName)
	require.False(t, cfg.AuthConfigured())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("KB_ID", "KB123")
	t.Setenv("LISTEN_ADDR", ":9000")
	cfg := Load()

	require.Equal(t, "eu-west-1", cfg.Region)
	require.Equal(t, "KB123", cfg.KnowledgeBaseID)
	require.Equal(t, ":9000", cfg.ListenAddr)
	require.Equal(t, ":9000", cfg.ShellListenAddr)
}

func TestAuthConfigured_RequiresBothSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("COGNITO_USER_POOL_ID", "us-east-1_Abc123")
	require.False(t, Load().AuthConfigured())

	t.Setenv("COGNITO_CLIENT_ID", "client-1")
	require.True(t, Load().AuthConfigured())
}

func TestIssuerAndJWKSURLs(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("COGNITO_USER_POOL_ID", "us-east-1_Abc123")
	cfg := Load()

	require.Equal(t, "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Abc123", cfg.IssuerURL())
	require.Equal(t, cfg.IssuerURL()+"/.well-known/jwks.json", cfg.JWKSURL())
}
