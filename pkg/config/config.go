package config

import (
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/aks-orchestrators/pkg/utils"

	yaml "gopkg.in/yaml.v2"
	"k8s.io/klog/v2"
)

// DefaultAPIVersion is the orchestrators api-version used when none is provided.
const DefaultAPIVersion = "2020-11-01"

// Config carries every input the reader needs for a full cycle. It is
// constructed once at process start and passed into the components;
// nothing else reads ambient environment.
type Config struct {
	Cloud          string `json:"cloud" yaml:"cloud"`
	TenantID       string `json:"tenantId" yaml:"tenantId"`
	ClientID       string `json:"clientId" yaml:"clientId"`
	TokenFilePath  string `json:"tokenFilePath" yaml:"tokenFilePath"`
	AuthorityHost  string `json:"authorityHost" yaml:"authorityHost"`
	SubscriptionID string `json:"subscriptionId" yaml:"subscriptionId"`
	Location       string `json:"location" yaml:"location"`
	APIVersion     string `json:"apiVersion" yaml:"apiVersion"`
	ShowPreview    bool   `json:"showPreview" yaml:"showPreview"`

	// RetryAttempts is the number of retries per stage after the initial
	// attempt. Zero means a single attempt, which is the default.
	RetryAttempts        int `json:"retryAttempts" yaml:"retryAttempts"`
	RetryIntervalSeconds int `json:"retryIntervalSeconds" yaml:"retryIntervalSeconds"`
}

// Load populates a Config from a config file when one is given, otherwise
// from environment variables.
func Load(configFile string) (Config, error) {
	c := Config{}
	if configFile != "" {
		klog.V(6).Info("populate config from config file")
		bytes, err := ioutil.ReadFile(configFile)
		if err != nil {
			return c, &Error{Field: "configFile", Reason: err.Error()}
		}
		if err = yaml.Unmarshal(bytes, &c); err != nil {
			return c, &Error{Field: "configFile", Reason: err.Error()}
		}
	} else {
		klog.V(6).Info("populate config from environment variables")
		c.Cloud = os.Getenv("CLOUD")
		c.TenantID = os.Getenv("AZURE_TENANT_ID")
		c.ClientID = os.Getenv("AZURE_CLIENT_ID")
		c.TokenFilePath = os.Getenv("AZURE_FEDERATED_TOKEN_FILE")
		c.AuthorityHost = os.Getenv("AZURE_AUTHORITY_HOST")
		c.SubscriptionID = os.Getenv("SUBSCRIPTION_ID")
		c.Location = os.Getenv("LOCATION")
		c.APIVersion = os.Getenv("API_VERSION")
		c.ShowPreview = strings.EqualFold(os.Getenv("SHOW_PREVIEW"), "true")
		c.RetryAttempts = intFromEnv("RETRY_ATTEMPTS")
		c.RetryIntervalSeconds = intFromEnv("RETRY_INTERVAL_SECONDS")
	}

	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	return c, nil
}

// Validate reports the first missing or malformed required input. It runs
// before any credential is read or any network call is attempted.
func (c Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"clientId", c.ClientID},
		{"tenantId", c.TenantID},
		{"tokenFilePath", c.TokenFilePath},
		{"subscriptionId", c.SubscriptionID},
		{"location", c.Location},
		{"apiVersion", c.APIVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return &Error{Field: r.field, Reason: "must not be empty"}
		}
	}
	if err := utils.ValidateLocation(c.Location); err != nil {
		return &Error{Field: "location", Reason: err.Error()}
	}
	if err := utils.ValidateAPIVersion(c.APIVersion); err != nil {
		return &Error{Field: "apiVersion", Reason: err.Error()}
	}
	if c.RetryAttempts < 0 {
		return &Error{Field: "retryAttempts", Reason: "must not be negative"}
	}
	return nil
}

func intFromEnv(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		klog.Warningf("ignoring %s=%q: %v", name, v, err)
		return 0
	}
	return n
}
