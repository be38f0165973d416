package awsclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
)

// isolateSharedConfig points the SDK at empty shared config files.
func isolateSharedConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_CA_BUNDLE", "")
}

// writeCABundle writes a self-signed certificate as a PEM file.
func writeCABundle(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "promptflow-test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return path
}

func TestLoadConfig_StaticCredentialsAndEndpoint(t *testing.T) {
	isolateSharedConfig(t)

	cfg, err := LoadConfig(context.Background(), config.AWSConfig{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDTEST", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.GreaterOrEqual(t, len(cfg.APIOptions), 2)
}

func TestLoadConfig_DefaultRegion(t *testing.T) {
	isolateSharedConfig(t)

	cfg, err := LoadConfig(context.Background(), config.AWSConfig{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRegion, cfg.Region)
	assert.Nil(t, cfg.BaseEndpoint)
}

func TestLoadConfig_MissingProfile(t *testing.T) {
	isolateSharedConfig(t)

	_, err := LoadConfig(context.Background(), config.AWSConfig{Profile: "does-not-exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load AWS config")
}

func TestLoadConfig_CustomCABundle(t *testing.T) {
	isolateSharedConfig(t)
	t.Setenv("AWS_CA_BUNDLE", writeCABundle(t))

	cfg, err := LoadConfig(context.Background(), config.AWSConfig{Region: "us-east-1"})
	require.NoError(t, err)
	assert.NotNil(t, cfg.HTTPClient)
	assert.GreaterOrEqual(t, len(cfg.APIOptions), 3)

	clients := NewFromConfig(cfg)
	assert.NotNil(t, clients.BedrockAgent)
}

func TestNew_BuildsEveryClient(t *testing.T) {
	isolateSharedConfig(t)

	clients, err := New(context.Background(), config.AWSConfig{Region: "us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", clients.Region())
	assert.NotNil(t, clients.CloudFormation)
	assert.NotNil(t, clients.DynamoDB)
	assert.NotNil(t, clients.IAM)
	assert.NotNil(t, clients.STS)
	assert.NotNil(t, clients.SNS)
	assert.NotNil(t, clients.BedrockAgent)
	assert.NotNil(t, clients.BedrockAgentRuntime)
}

type stubInitializeHandler struct{ err error }

func (h stubInitializeHandler) HandleInitialize(context.Context, middleware.InitializeInput) (
	middleware.InitializeOutput, middleware.Metadata, error,
) {
	return middleware.InitializeOutput{}, middleware.Metadata{}, h.err
}

func TestCallLogging_PassesErrorsThrough(t *testing.T) {
	want := errors.New("boom")
	_, _, err := callLogging{}.HandleInitialize(context.Background(), middleware.InitializeInput{}, stubInitializeHandler{err: want})
	assert.ErrorIs(t, err, want)

	stack := middleware.NewStack("test", nil)
	require.NoError(t, addCallLogging(stack))
	_, ok := stack.Initialize.Get("PromptFlowCallLogging")
	assert.True(t, ok)
}
