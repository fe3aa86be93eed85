package main

import (
	"context"
	"encoding/json"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/aks-orchestrators/pkg/arm"
	"github.com/Azure/aks-orchestrators/pkg/auth"
	"github.com/Azure/aks-orchestrators/pkg/config"
	"github.com/Azure/aks-orchestrators/pkg/log"
	"github.com/Azure/aks-orchestrators/pkg/metrics"
	"github.com/Azure/aks-orchestrators/pkg/orchestrators"
	"github.com/Azure/aks-orchestrators/pkg/server"
	"github.com/Azure/aks-orchestrators/pkg/stats"
	"github.com/Azure/aks-orchestrators/version"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// Exit codes distinguish the failure stages so callers can react without
// parsing log output.
const (
	exitOK                    = 0
	exitUnknown               = 1
	exitConfiguration         = 2
	exitCredentialUnavailable = 3
	exitTokenExchange         = 4
	exitAPICall               = 5
)

const (
	defaultPort        = "8080"
	defaultProbePort   = "8085"
	defaultMetricsPort = "8888"
)

var (
	configFile         = pflag.String("config", "", "Path to a yaml configuration file. Environment variables are used when empty")
	serve              = pflag.Bool("serve", false, "Run as an http server instead of a one-shot query")
	port               = pflag.String("port", defaultPort, "Http server port, used with --serve")
	probePort          = pflag.String("probe-port", defaultProbePort, "Health probe port, used with --serve")
	metricsPort        = pflag.String("metrics-port", defaultMetricsPort, "Prometheus metrics port, used with --serve")
	kubernetesVersions = pflag.Bool("kubernetes-versions", false, "Print the sorted list of available Kubernetes versions instead of the raw envelope")
	versionInfo        = pflag.Bool("version", false, "Prints the version information")
)

// Log implements the metrics logger contract on top of klog.
type Log struct{}

// Info logs info using klog
func (l *Log) Info(msg string) {
	klog.Info(msg)
}

// Error logs error using klog
func (l *Log) Error(err error) {
	klog.Error(err)
}

// Infof logs formatted info using klog
func (l *Log) Infof(format string, args ...interface{}) {
	klog.Infof(format, args...)
}

// Errorf logs formatted error using klog
func (l *Log) Errorf(format string, args ...interface{}) {
	klog.Errorf(format, args...)
}

func main() {
	logOptions := log.NewOptions()
	logOptions.AddFlags()
	klog.InitFlags(nil)
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	pflag.Parse()

	if *versionInfo {
		version.PrintVersionAndExit()
	}

	code := run(logOptions)
	klog.Flush()
	os.Exit(code)
}

func run(logOptions *log.Options) int {
	if err := logOptions.Apply(); err != nil {
		klog.Errorf("%+v", err)
		return exitConfiguration
	}

	klog.Infof("starting aks-orchestrators reader. Version: %v. Build date: %v", version.ReaderVersion, version.BuildDate)

	cfg, err := config.Load(*configFile)
	if err != nil {
		klog.Errorf("%+v", err)
		return exitCode(err)
	}
	if err := cfg.Validate(); err != nil {
		klog.Errorf("%+v", err)
		return exitCode(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *serve {
		return runServer(ctx, cfg)
	}
	return runOnce(ctx, cfg)
}

func runServer(ctx context.Context, cfg config.Config) int {
	if err := metrics.RegisterAndExport(*metricsPort, &Log{}); err != nil {
		klog.Errorf("%+v", err)
		return exitUnknown
	}
	reporter, err := metrics.NewReporter()
	if err != nil {
		klog.Errorf("creating metrics reporter: %+v", err)
		return exitUnknown
	}
	auth.InitReporter(reporter)
	arm.InitReporter(reporter)
	orchestrators.InitReporter(reporter)

	s := server.NewServer(cfg, *port, *probePort)
	if err := s.Run(ctx); err != nil {
		klog.Errorf("%+v", err)
		return exitCode(err)
	}
	return exitOK
}

func runOnce(ctx context.Context, cfg config.Config) int {
	client, err := orchestrators.NewClient(cfg)
	if err != nil {
		klog.Errorf("%+v", err)
		return exitCode(err)
	}

	if *kubernetesVersions {
		versions, err := client.KubernetesVersions(ctx)
		if err != nil {
			klog.Errorf("%+v", err)
			return exitCode(err)
		}
		for _, v := range versions {
			fmt.Println(v)
		}
	} else {
		result, err := client.Run(ctx)
		if err != nil {
			klog.Errorf("%+v", err)
			return exitCode(err)
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			klog.Errorf("encoding orchestrators envelope: %+v", err)
			return exitUnknown
		}
		fmt.Println(string(out))
	}

	stats.PrintSync()
	return exitOK
}

// exitCode maps an error to its stage-specific exit code.
func exitCode(err error) int {
	switch {
	case config.IsConfigurationError(err):
		return exitConfiguration
	case auth.IsCredentialUnavailableError(err):
		return exitCredentialUnavailable
	case auth.IsTokenExchangeError(err):
		return exitTokenExchange
	case arm.IsAPICallError(err):
		return exitAPICall
	}
	return exitUnknown
}
