package job

// Outcome is the terminal result of one WeatherJob run, reported to the scheduler.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeRetry asks the scheduler to re-run the job with backoff before the next tick.
	OutcomeRetry
	// OutcomePermanentFailure ends the cycle; the next regular tick runs as usual.
	OutcomePermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomePermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Input carries the flags a registration passes to every run.
type Input struct {
	IsTest bool `json:"isTest"`
}
