// Package testevents generates synthetic audit datasets: a registry directory,
// the mapping and correlation tables and an events file that references them.
package testevents

import "time"

// Config holds configuration for the dataset generator.
type Config struct {
	Dir           string // Output directory, created when missing
	Beneficiaries int    // Number of distinct beneficiaries
	Events        int    // Number of service events
	Codes         int    // Number of distinct procedure codes
	Year          int    // Year of the first registry period
	Periods       int    // Number of consecutive monthly periods from January
	Workers       int    // Number of concurrent generators
}

// DefaultConfig returns a small dataset configuration.
func DefaultConfig() Config {
	return Config{
		Beneficiaries: 200,
		Events:        1000,
		Codes:         20,
		Year:          2023,
		Periods:       3,
		Workers:       4,
	}
}

// Dataset lists the generated files.
type Dataset struct {
	EventsPath      string
	RegistryDir     string
	MappingPath     string
	CorrelationPath string
}

// Stats holds generation statistics.
type Stats struct {
	Beneficiaries int
	Events        int
	UndatedEvents int
	RegistryFiles int
	MappedCodes   int
	Duration      time.Duration
}

// timeline is the contract history of one beneficiary.
type timeline struct {
	id           string
	contracting  time.Time
	cancellation time.Time
	reactivation time.Time
}

// event is one generated service event row.
type event struct {
	beneficiary string
	service     time.Time
	code        string
}
