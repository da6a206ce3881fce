package domain

// Source system identifiers. Steam is the primary catalog: once a game carries
// a steam_id, secondary-source updates may not overwrite its core fields.
const (
	SourceSteam = "steam"
	SourceRAWG  = "rawg"
)

// GameType classifies an entity.
type GameType string

const (
	GameTypeGame       GameType = "game"
	GameTypeDLC        GameType = "dlc"
	GameTypeDemo       GameType = "demo"
	GameTypeSoundtrack GameType = "soundtrack"
)

// ReleaseStatus is the lifecycle state of a game or release.
type ReleaseStatus string

const (
	ReleaseStatusReleased    ReleaseStatus = "released"
	ReleaseStatusEarlyAccess ReleaseStatus = "early_access"
	ReleaseStatusUnreleased  ReleaseStatus = "unreleased"
	ReleaseStatusCancelled   ReleaseStatus = "cancelled"
	ReleaseStatusUnknown     ReleaseStatus = "unknown"
)

// CompanyRoleType is the role a company plays for a game.
type CompanyRoleType string

const (
	RoleDeveloper CompanyRoleType = "developer"
	RolePublisher CompanyRoleType = "publisher"
)

// Platform identifiers used on releases.
const (
	PlatformPC          = "pc"
	PlatformPlayStation = "playstation"
	PlatformXbox        = "xbox"
	PlatformSwitch      = "switch"
	PlatformMac         = "mac"
	PlatformLinux       = "linux"
	PlatformIOS         = "ios"
	PlatformAndroid     = "android"
)

// MinDetailWeight is the popularity floor below which detail rows are not
// persisted for non-DLC games, and below which DLC child content is suppressed
// when the parent falls under it.
const MinDetailWeight = 40

// MaxScreenshots caps the screenshots stored on a game detail row.
const MaxScreenshots = 5
