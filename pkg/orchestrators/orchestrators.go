package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/aks-orchestrators/pkg/arm"
	"github.com/Azure/aks-orchestrators/pkg/auth"
	"github.com/Azure/aks-orchestrators/pkg/config"
	"github.com/Azure/aks-orchestrators/pkg/metrics"
	"github.com/Azure/aks-orchestrators/pkg/retry"
	"github.com/Azure/aks-orchestrators/pkg/stats"
	"github.com/Azure/aks-orchestrators/pkg/utils"
	"github.com/Azure/aks-orchestrators/pkg/versions"

	adal "github.com/Azure/go-autorest/autorest/adal"
	"github.com/Azure/go-autorest/autorest/azure"
	"k8s.io/klog/v2"
)

// orchestratorsReadAction is the single ARM action the workload's custom
// role must grant. Logged so the role assignment can be audited out of
// band; never verified at runtime.
const orchestratorsReadAction = "Microsoft.ContainerService/locations/orchestrators/read"

var reporter *metrics.Reporter

// Client composes the token exchange and the scoped ARM call into one
// cycle. Each Run owns its own token; nothing is cached between runs.
type Client struct {
	cfg       config.Config
	exchanger *auth.Exchanger
	arm       *arm.Client
	retryer   *retry.Client
}

// NewClient validates the configuration and wires up both stages.
func NewClient(cfg config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	authorityHost := cfg.AuthorityHost
	armClient := arm.NewClient(cfg.RetryAttempts, time.Duration(cfg.RetryIntervalSeconds)*time.Second)
	if cfg.Cloud != "" {
		env, err := azure.EnvironmentFromName(cfg.Cloud)
		if err != nil {
			return nil, &config.Error{Field: "cloud", Reason: err.Error()}
		}
		if authorityHost == "" {
			authorityHost = env.ActiveDirectoryEndpoint
		}
		armClient.BaseURI = env.ResourceManagerEndpoint
	}

	retryer := retry.NewRetryClient(cfg.RetryAttempts, time.Duration(cfg.RetryIntervalSeconds)*time.Second)
	retryer.RegisterRetriableErrors("token exchange failed", "arm call failed")

	return &Client{
		cfg:       cfg,
		exchanger: auth.NewExchanger(authorityHost, cfg.TenantID, cfg.ClientID, cfg.TokenFilePath),
		arm:       armClient,
		retryer:   retryer,
	}, nil
}

// Exchanger returns the token exchange stage, exposed so callers can
// point it at a different endpoint in tests.
func (c *Client) Exchanger() *auth.Exchanger {
	return c.exchanger
}

// ARM returns the ARM call stage.
func (c *Client) ARM() *arm.Client {
	return c.arm
}

// Run executes one full cycle: acquire a fresh ARM token, call the
// orchestrators endpoint once, return the decoded envelope. The two
// stages fail with distinct error types so an authentication problem is
// never mistaken for an authorization or API problem.
func (c *Client) Run(ctx context.Context) (arm.OrchestratorVersionProfileListResult, error) {
	stats.Init()
	cycleBegin := time.Now()

	klog.Infof("starting cycle for client %s (tenant %s) against subscription %s, required role action: %s",
		utils.RedactClientID(c.cfg.ClientID), c.cfg.TenantID, c.cfg.SubscriptionID, orchestratorsReadAction)

	var token *adal.Token
	begin := time.Now()
	err := c.retryer.Do(func() error {
		var err error
		token, err = c.exchanger.ExchangeForARMToken(ctx)
		return err
	}, auth.IsRetryableExchangeError)
	stats.Put(stats.TokenExchange, time.Since(begin))
	if err != nil {
		return arm.OrchestratorVersionProfileListResult{}, err
	}

	if err := auth.ValidateForUse(token); err != nil {
		return arm.OrchestratorVersionProfileListResult{}, err
	}

	query := arm.OrchestratorQuery{
		SubscriptionID: c.cfg.SubscriptionID,
		Location:       c.cfg.Location,
		APIVersion:     c.cfg.APIVersion,
	}

	var result arm.OrchestratorVersionProfileListResult
	begin = time.Now()
	err = c.retryer.Do(func() error {
		var err error
		result, err = c.arm.ListOrchestrators(ctx, token, query)
		return err
	}, arm.IsRetryableAPIError)
	stats.Put(stats.ARMCall, time.Since(begin))
	if err != nil {
		return arm.OrchestratorVersionProfileListResult{}, err
	}

	stats.Put(stats.Total, time.Since(cycleBegin))
	recordCycle()
	return result, nil
}

// KubernetesVersions runs one cycle and reduces the envelope to the
// sorted list of available Kubernetes versions.
func (c *Client) KubernetesVersions(ctx context.Context) ([]string, error) {
	result, err := c.Run(ctx)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	list, err := versions.Kubernetes(result, c.cfg.ShowPreview)
	stats.Put(stats.Filter, time.Since(begin))
	if err != nil {
		return nil, &arm.APICallError{Reason: fmt.Sprintf("interpreting orchestrators envelope: %v", err)}
	}
	return list, nil
}

// InitReporter initialize the reporter with given reporter
func InitReporter(reporterInstance *metrics.Reporter) {
	reporter = reporterInstance
}

func recordCycle() {
	if reporter != nil {
		reporter.Report(metrics.CycleCountM.M(1))
	}
}
