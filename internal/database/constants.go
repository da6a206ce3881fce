package database

// Pool sizing.
const (
	// DefaultMinConnections keeps warm connections around so the first batch
	// after an idle stretch does not pay the connect cost.
	DefaultMinConnections = 2
)

// Error messages for pool construction.
const (
	ErrMsgFailedToParseConnString = "failed to parse connection string"
	ErrMsgFailedToCreatePool      = "failed to create connection pool"
	ErrMsgFailedToPingDatabase    = "failed to ping database"
)

// Log messages.
const (
	LogMsgConnectedToDatabase = "connected to the catalog database"
)
