package game

// matchedBy values reported on upsert results and run items. They name the
// resolution step that found the existing entity.
const (
	MatchedByExternalID  = "external_id"
	MatchedByCompetingID = "competing_id"
	MatchedBySlug        = "slug"
	MatchedByOGSlug      = "og_slug"
	MatchedByCandidate   = "candidate"
	MatchedByEngine      = "match_engine"
	MatchedByCaller      = "caller"
)

// companyCacheSize bounds the slug->company-id LRU cache. Company cardinality
// is small relative to games, so most batch items hit the cache.
const companyCacheSize = 2048

// Error message string constants
const (
	ErrMsgFailedToBeginTx       = "failed to begin transaction"
	ErrMsgFailedToCreateGame    = "failed to create game"
	ErrMsgFailedToUpdateGame    = "failed to update game"
	ErrMsgFailedToSyncDetail    = "failed to sync detail"
	ErrMsgFailedToSyncRelease   = "failed to sync release"
	ErrMsgFailedToSyncCompany   = "failed to sync company"
	ErrMsgMissingExternalID     = "record carries no external id"
	ErrMsgFailedToResolveRecord = "failed to resolve record"
)
