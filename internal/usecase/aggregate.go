package usecase

import (
	"fmt"
	"strings"

	"adpilot/internal/domain"
)

// sectionHeadings gives each capability's payload a recognizable lead-in,
// mirroring how answers were presented to callers historically.
var sectionHeadings = map[domain.CapabilityTarget]string{
	domain.TargetAdvertisingMetrics: "Campaign Data",
	domain.TargetCRMOperations:      "CRM Action",
}

// Aggregate merges capability results into one textual answer, in invocation
// order. Failures are rendered inline as warning lines so one failing
// capability never suppresses a succeeding one, and the result is never
// empty when at least one capability was invoked.
func Aggregate(results []domain.CapabilityResult) string {
	parts := make([]string, 0, len(results))

	for _, res := range results {
		if res.Err != nil {
			parts = append(parts, fmt.Sprintf("Warning: %s failed: %s",
				targetLabel(res.Target), res.Err))
			continue
		}
		if res.Payload == "" {
			continue
		}
		heading, ok := sectionHeadings[res.Target]
		if !ok {
			heading = targetLabel(res.Target)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", heading, res.Payload))
	}

	if len(parts) == 0 {
		return "No data available for your request."
	}
	return strings.Join(parts, "\n\n")
}

func targetLabel(t domain.CapabilityTarget) string {
	switch t {
	case domain.TargetAdvertisingMetrics:
		return "advertising metrics"
	case domain.TargetCRMOperations:
		return "CRM operations"
	default:
		return string(t)
	}
}
