package domain

import "time"

// Outcome classifies a single fetch-and-parse run.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"     // at least one record parsed
	OutcomeEmpty  Outcome = "empty"  // well-formed feed with no features
	OutcomeFailed Outcome = "failed" // endpoint, network or parse failure
)

// Batch is the result of one poll. It replaces the previous batch wholesale.
type Batch struct {
	Endpoint    string
	Earthquakes []Earthquake
	Outcome     Outcome
	FetchedAt   time.Time
}

// OutcomeFor derives the outcome from the parsed records and the first error
// raised while fetching or parsing them.
func OutcomeFor(quakes []Earthquake, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case len(quakes) == 0:
		return OutcomeEmpty
	default:
		return OutcomeOK
	}
}
