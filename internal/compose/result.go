// Package compose drives a transformation backend through one composition
// attempt and reports its progress as a stream of results.
package compose

import "fmt"

// UnknownError is the failure message used when the backend gives no reason.
const UnknownError = "unknown error"

// Result is one state of a composition attempt: Idle, Progress, Success or
// Failure. Success and Failure are terminal.
type Result interface {
	isResult()
}

type Idle struct{}

type Progress struct {
	Percent int
}

type Success struct {
	OutputRef string
}

type Failure struct {
	Message string
}

func (Idle) isResult()     {}
func (Progress) isResult() {}
func (Success) isResult()  {}
func (Failure) isResult()  {}

func (p Progress) String() string { return fmt.Sprintf("progress(%d%%)", p.Percent) }
func (s Success) String() string  { return "success(" + s.OutputRef + ")" }
func (f Failure) String() string  { return "failure(" + f.Message + ")" }

// IsTerminal reports whether r ends an attempt.
func IsTerminal(r Result) bool {
	switch r.(type) {
	case Success, Failure:
		return true
	}
	return false
}

// StateName is the lower-case state label used in logs and API payloads.
func StateName(r Result) string {
	switch r.(type) {
	case Idle:
		return "idle"
	case Progress:
		return "progress"
	case Success:
		return "success"
	case Failure:
		return "error"
	}
	return "unknown"
}
