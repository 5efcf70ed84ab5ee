package db

import "time"

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 10
	defaultMinConns          int32         = 2
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// Advisory lock ids
const (
	migrationLockID int64 = 1000
	// InstanceLockID guards buffer ownership: one running bot per database.
	InstanceLockID int64 = 1001
)

// insertBatchSize caps the rows sent in one pgx batch.
const insertBatchSize = 500
