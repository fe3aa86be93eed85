package versions

import (
	"fmt"
	"sort"

	"github.com/Azure/aks-orchestrators/pkg/arm"

	"github.com/Masterminds/semver/v3"
)

// orchestratorTypeKubernetes filters out non-Kubernetes orchestrators
// (older envelopes also list DCOS and Swarm).
const orchestratorTypeKubernetes = "Kubernetes"

// Kubernetes reduces the orchestrators envelope to the available
// Kubernetes versions, sorted ascending by semantic version. Preview
// versions are dropped unless includePreview is set.
func Kubernetes(result arm.OrchestratorVersionProfileListResult, includePreview bool) ([]string, error) {
	if result.Properties == nil || result.Properties.Orchestrators == nil {
		return nil, fmt.Errorf("orchestrators envelope has no properties.orchestrators")
	}

	parsed := make([]*semver.Version, 0, len(*result.Properties.Orchestrators))
	for _, o := range *result.Properties.Orchestrators {
		if o.OrchestratorType == nil || *o.OrchestratorType != orchestratorTypeKubernetes {
			continue
		}
		if o.IsPreview != nil && *o.IsPreview && !includePreview {
			continue
		}
		if o.OrchestratorVersion == nil || *o.OrchestratorVersion == "" {
			return nil, fmt.Errorf("orchestrator entry has no orchestratorVersion")
		}
		v, err := semver.NewVersion(*o.OrchestratorVersion)
		if err != nil {
			return nil, fmt.Errorf("parsing orchestrator version %q: %v", *o.OrchestratorVersion, err)
		}
		parsed = append(parsed, v)
	}

	sort.Sort(semver.Collection(parsed))

	versions := make([]string, 0, len(parsed))
	for _, v := range parsed {
		versions = append(versions, v.Original())
	}
	return versions, nil
}
