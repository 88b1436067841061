package usecase

import "github.com/unimind/uniquery/internal/core/domain"

// Confidence thresholds of the routing policy. A score above the high
// threshold trusts the classification outright; the band between the two
// runs both paths and merges.
const (
	lowConfidenceThreshold  = 0.3
	highConfidenceThreshold = 0.7
)

// decideRoute maps one classified intent onto an execution route. The
// decision is a pure function of its inputs: re-running the same query with
// the same classification yields the same route. Per-request options force a
// path regardless of confidence.
func decideRoute(intent domain.QueryIntent, opts domain.SearchOptions, databasesConfigured bool) domain.RouteState {
	databaseEnabled := opts.EnableDatabaseSearch && databasesConfigured
	documentEnabled := opts.DocumentLikeEnabled()

	switch {
	case !databaseEnabled && !documentEnabled:
		return domain.RouteUnrouted
	case !databaseEnabled:
		return domain.RouteDocumentOnly
	case !documentEnabled:
		return domain.RouteDatabaseOnly
	}

	confidence := intent.Confidence
	hasTargets := len(intent.Databases) > 0
	switch {
	case confidence > highConfidenceThreshold && hasTargets:
		return domain.RouteDatabaseOnly
	case confidence > highConfidenceThreshold:
		return domain.RouteDocumentOnly
	case confidence >= lowConfidenceThreshold:
		return domain.RouteHybrid
	default:
		return domain.RouteDocumentOnly
	}
}
