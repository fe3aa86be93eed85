package version

import (
	"flag"
	"fmt"
	"os"
)

var (
	// BuildDate is the date when the binary was built
	BuildDate string
	// GitCommit is the commit hash when the binary was built
	GitCommit string
	// ReaderVersion is the version of the orchestrator reader
	ReaderVersion string

	// custom user agent to append for token exchange and arm calls
	customUserAgent = flag.String("custom-user-agent", "", "User agent to append in addition to the component and version.")
)

// GetUserAgent is used to get the user agent string attached to every
// outbound HTTP request so token exchanges and ARM calls are attributable.
// The format is: aks-orchestrators/<component>/<version>/<Git commit>/<Build date>
func GetUserAgent(component, version string) string {
	if *customUserAgent != "" {
		return fmt.Sprintf("aks-orchestrators/%s/%s/%s/%s %s", component, version, GitCommit, BuildDate, *customUserAgent)
	}
	return fmt.Sprintf("aks-orchestrators/%s/%s/%s/%s", component, version, GitCommit, BuildDate)
}

// PrintVersionAndExit prints the version and exits
func PrintVersionAndExit() {
	fmt.Printf("Version: %s - Commit: %s - Date: %s\n", ReaderVersion, GitCommit, BuildDate)
	os.Exit(0)
}
