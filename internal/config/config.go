package config

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultTimezone is the zone used for calendar-day status boundaries.
	DefaultTimezone = "UTC"
)
