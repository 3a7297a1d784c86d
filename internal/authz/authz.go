// Package authz answers whether a role holds a governance capability.
//
// Role assignment and authentication belong to the embedding application;
// this package only maps role names to capability sets. A Policy is loaded
// from YAML:
//
//	roles:
//	  secretary: ["governance:*"]
//	  director: ["governance:read", "governance:annotations:edit"]
//
// A capability entry of "*" grants everything, and an entry ending in ":*"
// grants every capability under that prefix.
package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Capabilities checked by the HTTP layer.
const (
	Read = "governance:read"

	MeetingsCreate = "governance:meetings:create"
	MeetingsEdit   = "governance:meetings:edit"
	MeetingsDelete = "governance:meetings:delete"

	MinutesEdit    = "governance:minutes:edit"
	MinutesSubmit  = "governance:minutes:submit"
	MinutesApprove = "governance:minutes:approve"
	MinutesPublish = "governance:minutes:publish"
	MinutesArchive = "governance:minutes:archive"

	MotionsEdit   = "governance:motions:edit"
	MotionsVote   = "governance:motions:vote"
	MotionsDelete = "governance:motions:delete"

	AnnotationsEdit            = "governance:annotations:edit"
	AnnotationsPublish         = "governance:annotations:publish"
	AnnotationsViewUnpublished = "governance:annotations:view_unpublished"

	FlagsView    = "governance:flags:view"
	FlagsEdit    = "governance:flags:edit"
	FlagsResolve = "governance:flags:resolve"

	AuditView = "governance:audit:view"
)

// Oracle decides capabilities for a role
type Oracle interface {
	HasCapability(role, capability string) bool
}

// Policy is a static role -> capabilities table
type Policy struct {
	Roles map[string][]string `yaml:"roles"`
}

var _ Oracle = (*Policy)(nil)

// HasCapability reports whether role is granted capability. Unknown roles
// hold nothing.
func (p *Policy) HasCapability(role, capability string) bool {
	if p == nil || capability == "" {
		return false
	}
	for _, grant := range p.Roles[role] {
		if grants(grant, capability) {
			return true
		}
	}
	return false
}

func grants(grant, capability string) bool {
	switch {
	case grant == "*":
		return true
	case strings.HasSuffix(grant, ":*"):
		return strings.HasPrefix(capability, strings.TrimSuffix(grant, "*"))
	default:
		return grant == capability
	}
}

// Validate rejects empty role names and malformed grants
func (p *Policy) Validate() error {
	for _, role := range p.roleNames() {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("policy has an empty role name")
		}
		for _, grant := range p.Roles[role] {
			if grant == "" {
				return fmt.Errorf("role %s: empty capability", role)
			}
			if grant != "*" && strings.Contains(strings.TrimSuffix(grant, ":*"), "*") {
				return fmt.Errorf("role %s: wildcard only allowed as the last segment: %q", role, grant)
			}
		}
	}
	return nil
}

func (p *Policy) roleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for name := range p.Roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParsePolicy parses a YAML policy document
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parsing policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// LoadPolicy reads a policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicy(data)
}

// DefaultPolicy grants the usual board office holders their duties.
func DefaultPolicy() *Policy {
	return &Policy{Roles: map[string][]string{
		"admin":     {"*"},
		"secretary": {"governance:*"},
		"chair": {
			Read,
			MeetingsCreate, MeetingsEdit,
			MinutesApprove, MinutesPublish, MinutesArchive,
			MotionsEdit, MotionsVote,
			AnnotationsEdit, AnnotationsPublish, AnnotationsViewUnpublished,
			FlagsView, FlagsEdit, FlagsResolve,
			AuditView,
		},
		"director": {
			Read,
			AnnotationsEdit, AnnotationsViewUnpublished,
			FlagsView,
		},
		"compliance": {
			Read,
			FlagsView, FlagsEdit, FlagsResolve,
			AuditView,
		},
		"member": {Read},
	}}
}

// Marshal renders the policy as YAML, e.g. for `govrec init`.
func (p *Policy) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling policy: %w", err)
	}
	return data, nil
}
