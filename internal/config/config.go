package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries the environment-driven settings shared by the binaries.
// Everything is optional: features backed by an unset resource degrade or
// fail per-request rather than at startup (chat without KB_ID, upload
// without KB_BUCKET_NAME).
type Config struct {
	Region            string
	KnowledgeBaseID   string
	BucketName        string
	TableName         string
	CognitoUserPoolID string
	CognitoClientID   string
	ParamPrefix       string
	ListenAddr        string

	// Chat shell only. The shell reads the same LISTEN_ADDR variable but
	// defaults to the conventional frontend port.
	BackendURL      string
	ShellListenAddr string
}

// Load reads configuration from the environment after a best-effort .env load.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Region:            envOr("AWS_REGION", "us-east-1"),
		KnowledgeBaseID:   os.Getenv("KB_ID"),
		BucketName:        os.Getenv("KB_BUCKET_NAME"),
		TableName:         os.Getenv("DYNAMODB_TABLE"),
		CognitoUserPoolID: os.Getenv("COGNITO_USER_POOL_ID"),
		CognitoClientID:   os.Getenv("COGNITO_CLIENT_ID"),
		ParamPrefix:       os.Getenv("PARAM_PREFIX"),
		ListenAddr:        envOr("LISTEN_ADDR", ":8000"),
		BackendURL:        envOr("BACKEND_URL", "http://localhost:8000"),
		ShellListenAddr:   envOr("LISTEN_ADDR", ":8501"),
	}
}

// AuthConfigured reports whether the identity pool settings needed for token
// enforcement are present. When false the service runs in development mode
// with anonymous access.
func (c Config) AuthConfigured() bool {
	return c.CognitoUserPoolID != "" && c.CognitoClientID != ""
}

// IssuerURL is the Cognito issuer for the configured user pool.
func (c Config) IssuerURL() string {
	return "https://cognito-idp." + c.Region + ".amazonaws.com/" + c.CognitoUserPoolID
}

// JWKSURL is the user pool's well-known JSON Web Key Set location.
func (c Config) JWKSURL() string {
	return c.IssuerURL() + "/.well-known/jwks.json"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
