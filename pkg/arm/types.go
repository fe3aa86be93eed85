package arm

// OrchestratorQuery identifies the ARM resource path to query. All three
// values are supplied by configuration and validated non-empty before use.
type OrchestratorQuery struct {
	SubscriptionID string
	Location       string
	APIVersion     string
}

// OrchestratorVersionProfileListResult is the orchestrators response
// envelope. Fields are pointers so absent and empty stay distinguishable;
// the envelope is handed to callers undigested.
type OrchestratorVersionProfileListResult struct {
	ID         *string                               `json:"id,omitempty"`
	Name       *string                               `json:"name,omitempty"`
	Type       *string                               `json:"type,omitempty"`
	Properties *OrchestratorVersionProfileProperties `json:"properties,omitempty"`
}

// OrchestratorVersionProfileProperties holds the list of orchestrator
// version profiles for the queried location.
type OrchestratorVersionProfileProperties struct {
	Orchestrators *[]OrchestratorVersionProfile `json:"orchestrators,omitempty"`
}

// OrchestratorVersionProfile describes one available orchestrator version.
type OrchestratorVersionProfile struct {
	OrchestratorType    *string                `json:"orchestratorType,omitempty"`
	OrchestratorVersion *string                `json:"orchestratorVersion,omitempty"`
	Default             *bool                  `json:"default,omitempty"`
	IsPreview           *bool                  `json:"isPreview,omitempty"`
	Upgrades            *[]OrchestratorProfile `json:"upgrades,omitempty"`
}

// OrchestratorProfile describes an orchestrator version an existing
// deployment can upgrade to.
type OrchestratorProfile struct {
	OrchestratorType    *string `json:"orchestratorType,omitempty"`
	OrchestratorVersion *string `json:"orchestratorVersion,omitempty"`
	IsPreview           *bool   `json:"isPreview,omitempty"`
}
