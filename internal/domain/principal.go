package domain

import "strings"

// Role represents an authorization role for a directory member.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleViewer     Role = "viewer"
)

// AllRoles lists every valid role for validation purposes.
var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleManager, RoleViewer}

// IsValidRole returns true if the given string represents a known role.
func IsValidRole(s string) bool {
	for _, r := range AllRoles {
		if string(r) == s {
			return true
		}
	}
	return false
}

// Permission represents a granular action bucket that can be authorized.
type Permission string

const (
	PermRead   Permission = "read"
	PermWrite  Permission = "write"
	PermSend   Permission = "send"
	PermUpdate Permission = "update"
	PermDelete Permission = "delete"
	PermAdmin  Permission = "admin"

	// PermWildcard grants every named permission.
	PermWildcard Permission = "*"
)

// NamedPermissions lists every concrete permission. PermWildcard expands to this set.
var NamedPermissions = []Permission{
	PermRead, PermWrite, PermSend, PermUpdate, PermDelete, PermAdmin,
}

// CampaignAccess describes how broadly a principal may see campaigns.
type CampaignAccess string

const (
	CampaignAccessAll        CampaignAccess = "all"
	CampaignAccessRestricted CampaignAccess = "restricted"
	CampaignAccessNone       CampaignAccess = "none"
)

// CampaignWildcard in AllowedCampaigns grants access to every campaign.
const CampaignWildcard = "*"

// Identity is a normalized phone-shaped caller reference used as the
// authorization key: a leading "+" followed by digits.
type Identity string

// NormalizeIdentity strips whitespace, parentheses and hyphens from a raw
// caller identifier and prepends "+" if absent. An empty or separator-only
// input yields the empty Identity.
func NormalizeIdentity(raw string) Identity {
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\n', '\r', '(', ')', '-':
			continue
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	return Identity(s)
}

// Principal is the resolved role/permission/scope bundle for an identity.
// Immutable for the lifetime of one request.
type Principal struct {
	Identity         Identity
	Name             string
	Role             Role
	Permissions      []Permission
	AllowedCampaigns []string
	CampaignAccess   CampaignAccess
}

// HasPermission reports whether the principal holds perm, either directly
// or through the wildcard permission.
func (p Principal) HasPermission(perm Permission) bool {
	for _, have := range p.Permissions {
		if have == PermWildcard || have == perm {
			return true
		}
	}
	return false
}

// CanAccessCampaign reports whether the principal may reference campaignID.
// A wildcard entry in AllowedCampaigns grants universal access; otherwise
// access is exactly the listed set.
func (p Principal) CanAccessCampaign(campaignID string) bool {
	for _, c := range p.AllowedCampaigns {
		if c == CampaignWildcard || c == campaignID {
			return true
		}
	}
	return false
}

// Directory resolves identities to principals. Read-only at runtime;
// directory changes are an out-of-band deployment concern.
type Directory interface {
	Lookup(identity Identity) (Principal, bool)
}
