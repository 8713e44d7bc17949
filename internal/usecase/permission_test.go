package usecase

import (
	"testing"

	"adpilot/internal/domain"
)

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Permission
	}{
		{"question about performance", "How are my campaigns doing?", domain.PermRead},
		{"explicit view", "view the summer campaign stats", domain.PermRead},
		{"list request", "list all active campaigns", domain.PermRead},
		{"send message", "send a thank-you note to Sarah", domain.PermSend},
		{"notify", "notify the team about the launch", domain.PermSend},
		{"create", "create a campaign for the Denver store", domain.PermWrite},
		{"update", "update the contact record for Mike", domain.PermUpdate},
		{"modify", "modify the budget on camp_001", domain.PermUpdate},
		{"delete", "delete the old holiday campaign", domain.PermDelete},
		{"cancel", "cancel tomorrow's appointment", domain.PermDelete},
		{"settings", "open the settings panel", domain.PermAdmin},
		{"configure", "configure the workspace defaults", domain.PermAdmin},
		{"no keyword defaults to read", "campaign performance please", domain.PermRead},
		{"empty defaults to read", "", domain.PermRead},
		{"case insensitive", "DELETE EVERYTHING OLD", domain.PermDelete},
		{"first bucket wins on mixed text", "show me what to delete", domain.PermRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiredPermission(tt.text); got != tt.want {
				t.Fatalf("RequiredPermission(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRequiredPermissionDeterministic(t *testing.T) {
	text := "send an update and remove the admin from the new list"
	first := RequiredPermission(text)
	for i := 0; i < 100; i++ {
		if got := RequiredPermission(text); got != first {
			t.Fatalf("run %d classified %q, first run %q", i, got, first)
		}
	}
}
