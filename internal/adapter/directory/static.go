package directory

import (
	"fmt"

	"adpilot/internal/domain"
	"adpilot/internal/infra/config"
)

// Static is a read-only identity directory built from configuration at
// startup. Lookups are plain map reads, so the directory is safe for
// concurrent use without locking.
type Static struct {
	principals map[domain.Identity]domain.Principal
}

// NewStatic builds a directory from config entries. Phone numbers are
// normalized with the same rules applied to inbound identities, so a config
// entry written as "(555) 123-4567" matches the caller "+15551234567" only
// when both normalize identically.
func NewStatic(entries []config.DirectoryEntry) (*Static, error) {
	principals := make(map[domain.Identity]domain.Principal, len(entries))

	for i, e := range entries {
		identity := domain.NormalizeIdentity(e.Phone)
		if identity == "" {
			return nil, fmt.Errorf("directory entry %d: phone %q normalizes to empty", i, e.Phone)
		}
		if !domain.IsValidRole(e.Role) {
			return nil, fmt.Errorf("directory entry %d: unknown role %q", i, e.Role)
		}
		if _, dup := principals[identity]; dup {
			return nil, fmt.Errorf("directory entry %d: duplicate identity %s", i, identity)
		}

		principals[identity] = domain.Principal{
			Identity:         identity,
			Name:             e.Name,
			Role:             domain.Role(e.Role),
			Permissions:      expandPermissions(e.Permissions),
			AllowedCampaigns: e.AllowedCampaigns,
			CampaignAccess:   campaignAccess(e),
		}
	}

	return &Static{principals: principals}, nil
}

// Lookup resolves a normalized identity to its principal.
func (s *Static) Lookup(identity domain.Identity) (domain.Principal, bool) {
	p, ok := s.principals[identity]
	return p, ok
}

// Len reports the number of configured principals.
func (s *Static) Len() int { return len(s.principals) }

// expandPermissions converts config permission strings, expanding the
// wildcard to the full named set so HasPermission checks stay uniform.
func expandPermissions(raw []string) []domain.Permission {
	perms := make([]domain.Permission, 0, len(raw))
	for _, r := range raw {
		if r == string(domain.PermWildcard) {
			return append([]domain.Permission(nil), domain.NamedPermissions...)
		}
		perms = append(perms, domain.Permission(r))
	}
	return perms
}

// campaignAccess derives the access mode, inferring it from the campaign
// list when the config omits an explicit value.
func campaignAccess(e config.DirectoryEntry) domain.CampaignAccess {
	if e.CampaignAccess != "" {
		return domain.CampaignAccess(e.CampaignAccess)
	}
	for _, c := range e.AllowedCampaigns {
		if c == domain.CampaignWildcard {
			return domain.CampaignAccessAll
		}
	}
	if len(e.AllowedCampaigns) > 0 {
		return domain.CampaignAccessRestricted
	}
	return domain.CampaignAccessNone
}
