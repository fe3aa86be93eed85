package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/aks-orchestrators/pkg/metrics"
	"github.com/Azure/aks-orchestrators/pkg/utils"
	"github.com/Azure/aks-orchestrators/version"

	"github.com/Azure/go-autorest/autorest"
	adal "github.com/Azure/go-autorest/autorest/adal"
	"github.com/Azure/go-autorest/autorest/azure"
	"k8s.io/klog/v2"
)

const (
	// ARMScope is the fixed target audience for ARM access tokens. It is
	// deliberately not user-configurable.
	ARMScope = "https://management.azure.com/.default"

	tokenExchangeGrantType = "urn:ietf:params:oauth:grant-type:token-exchange"
	requestedTokenType     = "urn:ietf:params:oauth:token-type:access_token"
	subjectTokenType       = "urn:ietf:params:oauth:token-type:jwt"

	tokenEndpointPath = "/oauth2/v2.0/token"

	// fallbackExpiresInSeconds is assumed when the token endpoint omits
	// expires_in. AAD access tokens are valid for at least an hour.
	fallbackExpiresInSeconds = 3600

	defaultRequestTimeout = 30 * time.Second
)

var reporter *metrics.Reporter

// tokenResponse is the token endpoint response envelope. AccessToken is a
// pointer so that an absent field and an empty field stay distinguishable.
type tokenResponse struct {
	TokenType   string      `json:"token_type"`
	ExpiresIn   json.Number `json:"expires_in"`
	AccessToken *string     `json:"access_token"`
	Scope       string      `json:"scope"`
}

// Exchanger exchanges a locally mounted federated identity token for an
// ARM access token using the OAuth2 token-exchange grant (RFC 8693).
// Tokens are held in memory only and are never cached across invocations.
type Exchanger struct {
	// AuthorityHost is the base URL of the identity provider token
	// endpoint, e.g. https://login.microsoftonline.com/.
	AuthorityHost string

	tenantID      string
	clientID      string
	tokenFilePath string
	sender        autorest.Sender
}

// NewExchanger returns an exchanger for the given workload identity.
// An empty authorityHost selects the public cloud AAD endpoint.
func NewExchanger(authorityHost, tenantID, clientID, tokenFilePath string) *Exchanger {
	if authorityHost == "" {
		authorityHost = azure.PublicCloud.ActiveDirectoryEndpoint
	}
	return &Exchanger{
		AuthorityHost: authorityHost,
		tenantID:      tenantID,
		clientID:      clientID,
		tokenFilePath: tokenFilePath,
		sender:        &http.Client{Timeout: defaultRequestTimeout},
	}
}

// ReadFederatedToken loads the projected service account token. A missing
// or empty file means the identity platform has not provisioned the
// credential yet; that is a precondition failure raised before any
// network call is attempted. The contents are never logged.
func (e *Exchanger) ReadFederatedToken() (string, error) {
	bytes, err := ioutil.ReadFile(e.tokenFilePath)
	if err != nil {
		return "", &CredentialUnavailableError{Path: e.tokenFilePath, Err: err}
	}
	token := strings.TrimSpace(string(bytes))
	if token == "" {
		return "", &CredentialUnavailableError{Path: e.tokenFilePath, Err: errors.New("token file is empty")}
	}
	return token, nil
}

// ExchangeForARMToken performs the token exchange and returns an ARM
// scoped access token. The returned token never carries an empty or
// literal-null access token value.
func (e *Exchanger) ExchangeForARMToken(ctx context.Context) (*adal.Token, error) {
	begin := time.Now()

	federatedToken, err := e.ReadFederatedToken()
	if err != nil {
		return nil, err
	}

	klog.V(2).Infof("exchanging federated credential for client %s in tenant %s with scope %s",
		utils.RedactClientID(e.clientID), e.tenantID, ARMScope)

	v := url.Values{}
	v.Set("grant_type", tokenExchangeGrantType)
	v.Set("requested_token_type", requestedTokenType)
	v.Set("subject_token", federatedToken)
	v.Set("subject_token_type", subjectTokenType)
	v.Set("client_id", e.clientID)
	v.Set("scope", ARMScope)

	preparer := autorest.CreatePreparer(
		autorest.AsPost(),
		autorest.WithBaseURL(e.AuthorityHost),
		autorest.WithPath(e.tenantID+tokenEndpointPath),
		autorest.WithFormData(v),
		autorest.WithHeader("User-Agent", version.GetUserAgent("reader", version.ReaderVersion)))
	req, err := preparer.Prepare((&http.Request{}).WithContext(ctx))
	if err != nil {
		recordError(metrics.TokenExchangeOperationName)
		return nil, &TokenExchangeError{Reason: "preparing token request", Err: err}
	}

	resp, err := autorest.SendWithSender(e.sender, req, autorest.DoCloseIfError())
	if err != nil {
		recordError(metrics.TokenExchangeOperationName)
		return nil, &TokenExchangeError{Reason: "sending token request", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		recordError(metrics.TokenExchangeOperationName)
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Reason: "reading token response", Transient: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		recordError(metrics.TokenExchangeOperationName)
		// The error body carries the AADSTS error code and never the
		// credential, so it is safe to surface.
		return nil, &TokenExchangeError{
			StatusCode: resp.StatusCode,
			Reason:     "token endpoint rejected the exchange",
			Err:        fmt.Errorf("%s", truncate(body)),
		}
	}

	tr := tokenResponse{}
	if err := json.Unmarshal(body, &tr); err != nil {
		recordError(metrics.TokenExchangeOperationName)
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Reason: "decoding token response", Err: err}
	}
	if tr.AccessToken == nil || *tr.AccessToken == "" || *tr.AccessToken == "null" {
		recordError(metrics.TokenExchangeOperationName)
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Reason: "token response has no usable access_token"}
	}

	now := time.Now().UTC().Unix()
	expiresIn, err := tr.ExpiresIn.Int64()
	if err != nil {
		expiresIn = fallbackExpiresInSeconds
	}
	token := &adal.Token{
		AccessToken: *tr.AccessToken,
		Type:        tr.TokenType,
		ExpiresIn:   json.Number(strconv.FormatInt(expiresIn, 10)),
		ExpiresOn:   json.Number(strconv.FormatInt(now+expiresIn, 10)),
		NotBefore:   json.Number(strconv.FormatInt(now, 10)),
		Resource:    ARMScope,
	}

	recordDuration(metrics.TokenExchangeOperationName, time.Since(begin))
	klog.V(2).Infof("token exchange succeeded, token expires on %s", token.Expires().UTC().Format(time.RFC3339))
	return token, nil
}

// ValidateForUse rejects a token that must no longer be presented to ARM.
// Tokens are single-use-per-cycle; expiry is checked right before use
// instead of being tracked for reuse.
func ValidateForUse(token *adal.Token) error {
	if token == nil || token.AccessToken == "" {
		return &TokenExchangeError{Reason: "no usable access token"}
	}
	if token.IsExpired() {
		return &TokenExchangeError{Reason: "access token is expired"}
	}
	return nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// InitReporter initialize the reporter with given reporter
func InitReporter(reporterInstance *metrics.Reporter) {
	reporter = reporterInstance
}

// recordError records the error in appropriate metric
func recordError(operation string) {
	if reporter != nil {
		reporter.ReportOperation(
			operation,
			metrics.TokenExchangeErrorsCountM.M(1))
	}
}

// recordDuration records the duration in appropriate metric
func recordDuration(operation string, duration time.Duration) {
	if reporter != nil {
		reporter.ReportOperation(
			operation,
			metrics.TokenExchangeDurationM.M(duration.Seconds()))
	}
}
