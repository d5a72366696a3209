package policy

import (
	"time"
)

// Policy is a Rego module consulted by the guard.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description is taken from the module's leading comments.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Source is the file the policy was loaded from, empty for built-ins.
	Source string `json:"source,omitempty"`

	// Enabled indicates if the policy is compiled into decisions.
	Enabled bool `json:"enabled"`

	// LoadedAt is when the policy was loaded.
	LoadedAt time.Time `json:"loaded_at"`
}

// Input is the document a decision is made on, available to Rego as
// input.
type Input struct {
	// Scheme is the scheme being dereferenced.
	Scheme string `json:"scheme"`

	// Name is the URI name, after relative resolution.
	Name string `json:"name"`

	// Fragment is the URI fragment, empty when absent.
	Fragment string `json:"fragment,omitempty"`

	// Params are the resolved parameters. Values that have no JSON form
	// are given as text.
	Params map[string]any `json:"params"`

	// URI is the raw URI text.
	URI string `json:"uri"`

	// Depth is the nesting depth of the dereference.
	Depth int `json:"depth"`
}

// Decision is the outcome of a policy query.
type Decision struct {
	// Allowed reports whether the dereference may proceed.
	Allowed bool `json:"allowed"`

	// Reasons are the deny messages produced alongside the decision.
	Reasons []string `json:"reasons,omitempty"`
}
