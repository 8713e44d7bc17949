package classifier

import (
	"context"
	"regexp"
	"strings"

	"adpilot/internal/domain"
)

// Keyword vocabularies for intent scoring. Advertising words skew a request
// toward the metrics capability, CRM words toward the CRM capability; a
// request can legitimately hit both.
var (
	metricsWords = []string{
		"campaign", "ad", "ads", "roas", "spend", "budget", "impressions",
		"clicks", "ctr", "facebook", "instagram", "meta", "performance",
		"conversions", "reach",
	}
	crmWords = []string{
		"contact", "message", "sms", "email", "appointment", "lead",
		"crm", "follow up", "book", "schedule",
	}
	metricNames = []string{
		"roas", "spend", "budget", "impressions", "clicks", "ctr",
		"conversions", "reach",
	}
	knownLocations = []string{
		"brooklyn", "miami", "houston", "chicago", "los angeles",
		"new york", "denver",
	}
)

var campaignIDPattern = regexp.MustCompile(`\bcamp_[a-zA-Z0-9]+\b`)

// Keyword is a deterministic, dependency-free text classifier. It scores the
// request against the intent vocabularies and extracts entity slots by
// pattern. Deliberately conservative: confidence reflects keyword density,
// so vague requests fall below the router's threshold and take the default
// path instead of guessing.
type Keyword struct{}

// NewKeyword creates the keyword classifier.
func NewKeyword() *Keyword {
	return &Keyword{}
}

// Classify scores rawText against both intent vocabularies.
func (k *Keyword) Classify(_ context.Context, rawText string) (domain.Classification, error) {
	lower := strings.ToLower(rawText)

	metricsHits := countHits(lower, metricsWords)
	crmHits := countHits(lower, crmWords)

	var intents []domain.CapabilityTarget
	if metricsHits > 0 {
		intents = append(intents, domain.TargetAdvertisingMetrics)
	}
	if crmHits > 0 {
		intents = append(intents, domain.TargetCRMOperations)
	}
	if len(intents) == 0 {
		intents = append(intents, domain.TargetUndetermined)
	}

	return domain.Classification{
		Intents:    intents,
		Confidence: confidence(metricsHits + crmHits),
		Entities:   extractEntities(rawText, lower),
	}, nil
}

// countHits counts vocabulary matches. Single words match on token
// boundaries so "ad" never fires inside "read"; phrases match as substrings.
func countHits(lower string, words []string) int {
	tokens := tokenize(lower)
	hits := 0
	for _, w := range words {
		if strings.ContainsRune(w, ' ') {
			if strings.Contains(lower, w) {
				hits++
			}
			continue
		}
		if tokens[w] {
			hits++
		}
	}
	return hits
}

func tokenize(lower string) map[string]bool {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

// confidence maps keyword density onto [0, 0.95]. One hit sits just above
// the router's fallback threshold; three or more is treated as unambiguous.
func confidence(hits int) float64 {
	switch {
	case hits == 0:
		return 0.0
	case hits == 1:
		return 0.4
	case hits == 2:
		return 0.7
	default:
		return 0.95
	}
}

func extractEntities(raw, lower string) domain.Entities {
	tokens := tokenize(lower)
	e := domain.Entities{
		CampaignIDs: campaignIDPattern.FindAllString(raw, -1),
	}
	for _, loc := range knownLocations {
		if strings.ContainsRune(loc, ' ') {
			if strings.Contains(lower, loc) {
				e.Location = loc
				break
			}
			continue
		}
		if tokens[loc] {
			e.Location = loc
			break
		}
	}
	for _, m := range metricNames {
		if tokens[m] {
			e.Metric = m
			break
		}
	}
	switch {
	case tokens["send"]:
		e.Action = "send"
	case tokens["update"]:
		e.Action = "update"
	case tokens["get"], tokens["show"]:
		e.Action = "get"
	}
	return e
}
