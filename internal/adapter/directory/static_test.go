package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpilot/internal/domain"
	"adpilot/internal/infra/config"
)

func TestStaticLookupNormalizesPhones(t *testing.T) {
	dir, err := NewStatic([]config.DirectoryEntry{
		{
			Phone:            "+1 (555) 123-4567",
			Name:             "Dana",
			Role:             "viewer",
			Permissions:      []string{"read"},
			AllowedCampaigns: []string{"camp_001"},
		},
	})
	require.NoError(t, err)

	p, ok := dir.Lookup("+15551234567")
	require.True(t, ok, "normalized identity not found")
	assert.Equal(t, "Dana", p.Name)
	assert.Equal(t, domain.RoleViewer, p.Role)
	assert.Equal(t, domain.CampaignAccessRestricted, p.CampaignAccess)
}

func TestStaticExpandsWildcardPermissions(t *testing.T) {
	dir, err := NewStatic([]config.DirectoryEntry{
		{
			Phone:            "15550001111",
			Role:             "admin",
			Permissions:      []string{"*"},
			AllowedCampaigns: []string{"*"},
		},
	})
	require.NoError(t, err)

	p, ok := dir.Lookup("+15550001111")
	require.True(t, ok)
	for _, perm := range domain.NamedPermissions {
		assert.True(t, p.HasPermission(perm), "wildcard principal missing %q", perm)
	}
	assert.Equal(t, domain.CampaignAccessAll, p.CampaignAccess)
}

func TestStaticRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []config.DirectoryEntry
	}{
		{"empty phone", []config.DirectoryEntry{{Phone: " - ", Role: "viewer"}}},
		{"unknown role", []config.DirectoryEntry{{Phone: "15551234567", Role: "root"}}},
		{"duplicate identity", []config.DirectoryEntry{
			{Phone: "15551234567", Role: "viewer"},
			{Phone: "+1 555 123 4567", Role: "admin"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestStaticUnknownIdentity(t *testing.T) {
	dir, err := NewStatic(nil)
	require.NoError(t, err)

	_, ok := dir.Lookup("+15559999999")
	assert.False(t, ok, "empty directory resolved an identity")
}
