package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Azure/aks-orchestrators/pkg/arm"
	"github.com/Azure/aks-orchestrators/pkg/auth"
	"github.com/Azure/aks-orchestrators/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEnvelope = `{
	"id": "/subscriptions/abc-123/providers/Microsoft.ContainerService/locations/westeurope/orchestrators",
	"name": "default",
	"type": "Microsoft.ContainerService/locations/orchestrators",
	"properties": {
		"orchestrators": [
			{"orchestratorType": "Kubernetes", "orchestratorVersion": "1.20.7", "default": true},
			{"orchestratorType": "Kubernetes", "orchestratorVersion": "1.19.11"},
			{"orchestratorType": "Kubernetes", "orchestratorVersion": "1.21.1", "isPreview": true}
		]
	}
}`

func writeTokenFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("header.payload.signature"), 0600))
	return path
}

func testConfig(tokenFile string) config.Config {
	return config.Config{
		TenantID:       "test-tenant",
		ClientID:       "aabbccdd-0000-1111-2222-334455667788",
		TokenFilePath:  tokenFile,
		SubscriptionID: "abc-123",
		Location:       "westeurope",
		APIVersion:     config.DefaultAPIVersion,
	}
}

// fakeSTS counts token exchanges and hands out bearer tokens.
func fakeSTS(t *testing.T, exchanges *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(exchanges, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"token_type":"Bearer","expires_in":3600,"access_token":"arm-token-%d"}`, n)
	}))
}

func TestRunSingleExchangeSingleCall(t *testing.T) {
	var exchanges, calls int32

	sts := fakeSTS(t, &exchanges)
	defer sts.Close()

	armSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/subscriptions/abc-123/providers/Microsoft.ContainerService/locations/westeurope/orchestrators", r.URL.Path)
		assert.Equal(t, "2020-11-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "Bearer arm-token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testEnvelope)
	}))
	defer armSrv.Close()

	client, err := NewClient(testConfig(writeTokenFile(t)))
	require.NoError(t, err)
	client.Exchanger().AuthorityHost = sts.URL + "/"
	client.ARM().BaseURI = armSrv.URL

	result, err := client.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges), "expected exactly one token exchange")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "expected exactly one arm call")
	require.NotNil(t, result.Properties)
	require.NotNil(t, result.Properties.Orchestrators)
	assert.Len(t, *result.Properties.Orchestrators, 3)
}

func TestRunNoReuseAcrossRuns(t *testing.T) {
	var exchanges, calls int32

	sts := fakeSTS(t, &exchanges)
	defer sts.Close()

	armSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, fmt.Sprintf("Bearer arm-token-%d", n), r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testEnvelope)
	}))
	defer armSrv.Close()

	client, err := NewClient(testConfig(writeTokenFile(t)))
	require.NoError(t, err)
	client.Exchanger().AuthorityHost = sts.URL + "/"
	client.ARM().BaseURI = armSrv.URL

	for i := 0; i < 2; i++ {
		_, err := client.Run(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&exchanges), "each run must perform its own exchange")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRunMissingTokenFile(t *testing.T) {
	var exchanges int32
	sts := fakeSTS(t, &exchanges)
	defer sts.Close()

	cfg := testConfig(filepath.Join(t.TempDir(), "absent"))
	client, err := NewClient(cfg)
	require.NoError(t, err)
	client.Exchanger().AuthorityHost = sts.URL + "/"

	_, err = client.Run(context.Background())
	require.Error(t, err)
	assert.True(t, auth.IsCredentialUnavailableError(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&exchanges), "no network call without a token file")
}

func TestRunExchangeRejected(t *testing.T) {
	sts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"AADSTS70021: no matching federated identity record"}`)
	}))
	defer sts.Close()

	client, err := NewClient(testConfig(writeTokenFile(t)))
	require.NoError(t, err)
	client.Exchanger().AuthorityHost = sts.URL + "/"

	_, err = client.Run(context.Background())
	require.Error(t, err)
	assert.True(t, auth.IsTokenExchangeError(err))
	assert.False(t, arm.IsAPICallError(err))
}

func TestRunARMForbidden(t *testing.T) {
	var exchanges int32
	sts := fakeSTS(t, &exchanges)
	defer sts.Close()

	armSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":"AuthorizationFailed","message":"does not have authorization"}}`)
	}))
	defer armSrv.Close()

	client, err := NewClient(testConfig(writeTokenFile(t)))
	require.NoError(t, err)
	client.Exchanger().AuthorityHost = sts.URL + "/"
	client.ARM().BaseURI = armSrv.URL

	_, err = client.Run(context.Background())
	require.Error(t, err)
	assert.True(t, arm.IsAPICallError(err))
	assert.True(t, arm.IsAuthorizationError(err))
	assert.False(t, auth.IsTokenExchangeError(err))
}

func TestKubernetesVersions(t *testing.T) {
	var exchanges int32
	sts := fakeSTS(t, &exchanges)
	defer sts.Close()

	armSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testEnvelope)
	}))
	defer armSrv.Close()

	client, err := NewClient(testConfig(writeTokenFile(t)))
	require.NoError(t, err)
	client.Exchanger().AuthorityHost = sts.URL + "/"
	client.ARM().BaseURI = armSrv.URL

	got, err := client.KubernetesVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.19.11", "1.20.7"}, got)
}

func TestNewClientInvalidConfig(t *testing.T) {
	_, err := NewClient(config.Config{})
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	var result arm.OrchestratorVersionProfileListResult
	require.NoError(t, json.Unmarshal([]byte(testEnvelope), &result))
	require.NotNil(t, result.Properties)
	require.NotNil(t, result.Properties.Orchestrators)
	assert.Equal(t, "1.20.7", *(*result.Properties.Orchestrators)[0].OrchestratorVersion)
}
