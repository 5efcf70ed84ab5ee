package buffer

// Flush status label values.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Log field names.
const (
	logFieldInserted = "inserted"
	logFieldDeleted  = "deleted"
)
