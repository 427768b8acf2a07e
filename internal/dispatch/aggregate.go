package dispatch

import (
	"fmt"
	"strings"
)

// Result is the outcome of the send to one guest.
type Result struct {
	GuestID           string `json:"guest_id"`
	Name              string `json:"name,omitempty"`
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// Aggregate is the joined outcome of a bulk dispatch.
type Aggregate struct {
	TotalAttempted int      `json:"total_attempted"`
	TotalSent      int      `json:"total_sent"`
	TotalFailed    int      `json:"total_failed"`
	Results        []Result `json:"results"`
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	default:
		return "failure"
	}
}

// Join counts results without reordering them.
func Join(results []Result) Aggregate {
	agg := Aggregate{TotalAttempted: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			agg.TotalSent++
		} else {
			agg.TotalFailed++
		}
	}
	return agg
}

// Outcome classifies the aggregate. An empty aggregate is a failure.
func (a Aggregate) Outcome() Outcome {
	switch {
	case a.TotalSent > 0 && a.TotalFailed == 0:
		return OutcomeSuccess
	case a.TotalSent > 0:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

// Failures returns the failed results in input order
func (a Aggregate) Failures() []Result {
	var out []Result
	for _, r := range a.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// FailedIDs returns the ids of the failed results
func (a Aggregate) FailedIDs() []string {
	var ids []string
	for _, r := range a.Results {
		if !r.Success {
			ids = append(ids, r.GuestID)
		}
	}
	return ids
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is the dismissible message shown after a bulk action.
type Notice struct {
	Level Level
	Text  string
}

// Notice summarizes the aggregate, naming every failing guest with its reason.
func (a Aggregate) Notice() Notice {
	switch a.Outcome() {
	case OutcomeSuccess:
		return Notice{Level: LevelSuccess, Text: fmt.Sprintf("Sent %d of %d messages.", a.TotalSent, a.TotalAttempted)}
	case OutcomePartial:
		return Notice{Level: LevelWarning, Text: fmt.Sprintf("Sent %d of %d messages. Failed: %s", a.TotalSent, a.TotalAttempted, a.describeFailures())}
	default:
		if a.TotalAttempted == 0 {
			return Notice{Level: LevelError, Text: "No messages sent."}
		}
		return Notice{Level: LevelError, Text: fmt.Sprintf("No messages sent. Failed: %s", a.describeFailures())}
	}
}

func (a Aggregate) describeFailures() string {
	parts := make([]string, 0, a.TotalFailed)
	for _, r := range a.Failures() {
		who := r.Name
		if who == "" {
			who = r.GuestID
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", who, r.Error))
	}
	return strings.Join(parts, ", ")
}
