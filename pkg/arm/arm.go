package arm

import (
	"context"
	"net/http"
	"time"

	"github.com/Azure/aks-orchestrators/pkg/metrics"
	"github.com/Azure/aks-orchestrators/version"

	"github.com/Azure/go-autorest/autorest"
	adal "github.com/Azure/go-autorest/autorest/adal"
	"github.com/Azure/go-autorest/autorest/azure"
	"k8s.io/klog/v2"
)

const orchestratorsPath = "/subscriptions/{subscriptionId}/providers/Microsoft.ContainerService/locations/{location}/orchestrators"

var reporter *metrics.Reporter

// Client calls the ARM orchestrators endpoint. It holds no credential;
// the caller supplies a fresh token per call.
type Client struct {
	// BaseURI is the resource manager endpoint, defaulting to the public
	// cloud. Exposed so tests can point the client at a fake.
	BaseURI string
	client  autorest.Client
}

// NewClient returns an ARM client. retryAttempts applies to retriable
// status codes only and defaults to zero, meaning every invocation issues
// at most one request.
func NewClient(retryAttempts int, retryInterval time.Duration) *Client {
	client := autorest.NewClientWithUserAgent(version.GetUserAgent("reader", version.ReaderVersion))
	client.RetryAttempts = retryAttempts
	client.RetryDuration = retryInterval
	return &Client{
		BaseURI: azure.PublicCloud.ResourceManagerEndpoint,
		client:  client,
	}
}

// ListOrchestrators performs one authenticated GET against the
// orchestrators endpoint for the given subscription, location and
// api-version, and returns the decoded envelope without interpreting it.
func (c *Client) ListOrchestrators(ctx context.Context, token *adal.Token, query OrchestratorQuery) (OrchestratorVersionProfileListResult, error) {
	result := OrchestratorVersionProfileListResult{}
	begin := time.Now()

	pathParameters := map[string]interface{}{
		"subscriptionId": autorest.Encode("path", query.SubscriptionID),
		"location":       autorest.Encode("path", query.Location),
	}
	queryParameters := map[string]interface{}{
		"api-version": query.APIVersion,
	}

	authorizer := autorest.NewBearerAuthorizer(token)
	preparer := autorest.CreatePreparer(
		autorest.AsGet(),
		autorest.WithBaseURL(c.BaseURI),
		autorest.WithPathParameters(orchestratorsPath, pathParameters),
		autorest.WithQueryParameters(queryParameters),
		authorizer.WithAuthorization())
	req, err := preparer.Prepare((&http.Request{}).WithContext(ctx))
	if err != nil {
		recordError(metrics.ListOrchestratorsOperationName)
		return result, &APICallError{Reason: "preparing orchestrators request", Err: err}
	}

	resp, err := autorest.SendWithSender(c.client, req, autorest.DoCloseIfError())
	if err != nil {
		recordError(metrics.ListOrchestratorsOperationName)
		return result, &APICallError{Reason: "sending orchestrators request", Transient: true, Err: err}
	}

	err = autorest.Respond(resp,
		azure.WithErrorUnlessStatusCode(http.StatusOK),
		autorest.ByUnmarshallingJSON(&result),
		autorest.ByClosing())
	if err != nil {
		recordError(metrics.ListOrchestratorsOperationName)
		if resp.StatusCode == http.StatusOK {
			// decoding failure, distinct from an HTTP error
			return OrchestratorVersionProfileListResult{}, &APICallError{StatusCode: resp.StatusCode, Reason: "decoding orchestrators response", Err: err}
		}
		return OrchestratorVersionProfileListResult{}, &APICallError{StatusCode: resp.StatusCode, Reason: "arm rejected the orchestrators request", Err: err}
	}

	recordDuration(metrics.ListOrchestratorsOperationName, time.Since(begin))
	klog.V(2).Infof("listed orchestrators for subscription %s in %s (api-version %s)",
		query.SubscriptionID, query.Location, query.APIVersion)
	return result, nil
}

// InitReporter initialize the reporter with given reporter
func InitReporter(reporterInstance *metrics.Reporter) {
	reporter = reporterInstance
}

func recordError(operation string) {
	if reporter != nil {
		reporter.ReportOperation(
			operation,
			metrics.ARMCallErrorsCountM.M(1))
	}
}

func recordDuration(operation string, duration time.Duration) {
	if reporter != nil {
		reporter.ReportOperation(
			operation,
			metrics.ARMCallDurationM.M(duration.Seconds()))
	}
}
