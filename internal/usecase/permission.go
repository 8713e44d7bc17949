package usecase

import (
	"strings"

	"adpilot/internal/domain"
)

// permissionKeywords maps intent keywords to the permission bucket an action
// description requires. Buckets are checked in order; the first bucket with a
// matching keyword wins, so classification is deterministic for any input.
var permissionKeywords = []struct {
	perm  domain.Permission
	words []string
}{
	{domain.PermRead, []string{"view", "get", "show", "list", "how"}},
	{domain.PermSend, []string{"send", "message", "email", "notify"}},
	{domain.PermWrite, []string{"create", "add", "new"}},
	{domain.PermUpdate, []string{"update", "change", "modify", "edit"}},
	{domain.PermDelete, []string{"delete", "remove", "cancel"}},
	{domain.PermAdmin, []string{"admin", "configure", "settings"}},
}

// RequiredPermission classifies an action description into the permission
// bucket it requires, defaulting to read when no keyword matches.
func RequiredPermission(actionDescription string) domain.Permission {
	lower := strings.ToLower(actionDescription)
	for _, bucket := range permissionKeywords {
		for _, w := range bucket.words {
			if strings.Contains(lower, w) {
				return bucket.perm
			}
		}
	}
	return domain.PermRead
}
