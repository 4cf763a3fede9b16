package tfstate

import "encoding/json"

// =============================================================================
// Terraform State Types
// =============================================================================

// State is the subset of a Terraform state document the planner reads.
type State struct {
	Version          int        `json:"version"`
	TerraformVersion string     `json:"terraform_version,omitempty"`
	Serial           int64      `json:"serial,omitempty"`
	Lineage          string     `json:"lineage,omitempty"`
	Resources        []Resource `json:"resources"`
}

// Resource is one resource block of the state.
type Resource struct {
	Mode      string     `json:"mode,omitempty"`
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Provider  string     `json:"provider,omitempty"`
	Instances []Instance `json:"instances"`
}

// Instance is one instance of a resource. Attributes stay raw because their
// shape depends on the resource type.
type Instance struct {
	SchemaVersion int                        `json:"schema_version,omitempty"`
	Attributes    map[string]json.RawMessage `json:"attributes"`

	// Dependencies is written by Terraform 0.12 and later, DependsOn by
	// older versions.
	Dependencies []string `json:"dependencies,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty"`
}

// AllDependencies returns the declared dependencies in declaration order.
func (i Instance) AllDependencies() []string {
	deps := make([]string, 0, len(i.Dependencies)+len(i.DependsOn))
	deps = append(deps, i.Dependencies...)
	deps = append(deps, i.DependsOn...)
	return deps
}

// StringAttribute returns a string attribute, and false when the attribute is
// missing or not a string.
func (i Instance) StringAttribute(name string) (string, bool) {
	raw, ok := i.Attributes[name]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// containerDefinition is one entry of the container_definitions attribute.
type containerDefinition struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}
