package policy

import (
	"time"
)

// BuiltinPolicyName names the base policy every engine starts with.
const BuiltinPolicyName = "urigraph-base"

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		basePolicy(),
	}
}

// basePolicy allows a dereference unless some rule in package urigraph
// denies it. Additional modules in the same package add deny rules.
func basePolicy() Policy {
	return Policy{
		Name:        BuiltinPolicyName,
		Description: "Allows dereferences that no deny rule matches; blocks file path traversal",
		Enabled:     true,
		LoadedAt:    time.Now(),
		Rego: `package urigraph

import rego.v1

default allow := false

allow if count(deny) == 0

# Relative file names may not climb out of their reference directory.
deny contains msg if {
	input.scheme == "file"
	some segment in split(input.name, "/")
	segment == ".."
	msg := sprintf("file path %q escapes its directory", [input.name])
}

# Schemes listed in data.urigraph_config.blocked_schemes are refused.
deny contains msg if {
	some blocked in data.urigraph_config.blocked_schemes
	input.scheme == blocked
	msg := sprintf("scheme %q is blocked", [input.scheme])
}
`,
	}
}
