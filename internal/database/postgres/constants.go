package postgres

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
)

// Error Messages - Game Operations
const (
	ErrMsgFailedToGetGame           = "failed to get game"
	ErrMsgFailedToInsertGame        = "failed to insert game"
	ErrMsgFailedToUpdateGame        = "failed to update game"
	ErrMsgFailedToDeleteGame        = "failed to delete game"
	ErrMsgFailedToLockGames         = "failed to lock games"
	ErrMsgFailedToCheckSlug         = "failed to check slug"
	ErrMsgFailedToQueryCandidates   = "failed to query match candidates"
	ErrMsgFailedToUpdateSlugs       = "failed to update slugs"
	ErrMsgFailedToUpdateExternalIDs = "failed to update external ids"
	ErrMsgUnknownSource             = "unknown source system"
)

// Error Messages - Detail Operations
const (
	ErrMsgFailedToGetDetail    = "failed to get detail"
	ErrMsgFailedToUpsertDetail = "failed to upsert detail"
	ErrMsgFailedToDeleteDetail = "failed to delete detail"
)

// Error Messages - Release Operations
const (
	ErrMsgFailedToListReleases     = "failed to list releases"
	ErrMsgFailedToUpsertRelease    = "failed to upsert release"
	ErrMsgFailedToDeleteRelease    = "failed to delete release"
	ErrMsgFailedToReassignReleases = "failed to reassign releases"
)

// Error Messages - Company Operations
const (
	ErrMsgFailedToGetCompany        = "failed to get company"
	ErrMsgFailedToInsertCompany     = "failed to insert company"
	ErrMsgFailedToUpsertCompanyRole = "failed to upsert company role"
	ErrMsgFailedToListCompanyNames  = "failed to list company names"
)

// Error Messages - Run Operations
const (
	ErrMsgFailedToCreateRun  = "failed to create run"
	ErrMsgFailedToFinishRun  = "failed to finish run"
	ErrMsgFailedToAddRunItem = "failed to add run item"
	ErrMsgFailedToGetRun     = "failed to get run"
)

// Error Messages - Match Audit Operations
const (
	ErrMsgFailedToAppendDecision = "failed to append match decision"
	ErrMsgFailedToListDecisions  = "failed to list match decisions"
)
