// Package lifecycle holds shared limits for start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds start and shutdown hooks such as DB pings and server shutdown.
const DefaultTimeout = 10 * time.Second
