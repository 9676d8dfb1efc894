// Package formula defines the formula-inference Data Transfer Objects shared
// by the HTTP API, the Kafka worker, the CLI and the Go SDK.  No domain logic
// lives here, only plain data types that are safe to import from any layer.
package formula

import (
	"time"

	"github.com/turtacn/FormulaInfer/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mode: which search answers a request
// ─────────────────────────────────────────────────────────────────────────────

// Mode selects the inference search.
type Mode string

const (
	// ModeAuto picks ModeUnknown when a component uses the "?" placeholder
	// and ModeGeneral otherwise.
	ModeAuto Mode = "auto"

	// ModeUnknown solves for one unidentified element, back-solving its
	// atomic mass from a mass-fraction target.
	ModeUnknown Mode = "unknown_element"

	// ModeGeneral enumerates multiplicities of fully known components.
	ModeGeneral Mode = "general"
)

// ParseMode accepts the canonical names plus the short aliases used by the
// CLI ("unknown", "brute-force").  The empty string means ModeAuto.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "auto":
		return ModeAuto, true
	case "unknown", "unknown_element":
		return ModeUnknown, true
	case "general", "brute-force", "bruteforce":
		return ModeGeneral, true
	}
	return "", false
}

// ─────────────────────────────────────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────────────────────────────────────

// Component is a user-defined building block: a symbol and its formula.
// The symbol "?" with an empty formula denotes the unknown element.
type Component struct {
	Symbol  string `json:"symbol" yaml:"symbol"`
	Formula string `json:"formula,omitempty" yaml:"formula"`
}

// InferenceRequest is the input of one inference.  Zero numeric fields take
// the server's configured defaults.
type InferenceRequest struct {
	Components []Component `json:"components" yaml:"components"`

	// Fractions maps element symbols to target mass percentages in (0, 100).
	Fractions map[string]float64 `json:"fractions" yaml:"fractions"`

	MaxCount          int     `json:"max_count,omitempty" yaml:"max_count"`
	MassTolerance     float64 `json:"mass_tolerance,omitempty" yaml:"mass_tolerance"`
	FractionTolerance float64 `json:"fraction_tolerance,omitempty" yaml:"fraction_tolerance"`

	// Filter restricts the unknown element: "metal", "nonmetal" or "all".
	Filter string `json:"filter,omitempty" yaml:"filter"`

	Mode Mode `json:"mode,omitempty" yaml:"mode"`
}

// ParseRequest asks for one formula to be parsed.
type ParseRequest struct {
	Formula string `json:"formula"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────────────────────────────────────

// Solution is one candidate formula.
type Solution struct {
	// Formula maps component symbols (and "?" in unknown mode) to counts.
	Formula map[string]int `json:"formula"`
	Display string         `json:"display"`

	// Unknown mode only: the matched element, its back-solved mass, and the
	// formula with the placeholder replaced by the element.
	Element      string         `json:"element,omitempty"`
	UnknownMass  float64        `json:"unknown_mass,omitempty"`
	Final        map[string]int `json:"final,omitempty"`
	FinalDisplay string         `json:"final_display,omitempty"`

	DistinctCount int `json:"distinct_count"`
	AtomCount     int `json:"atom_count"`
}

// InferenceResponse lists the solutions of one inference, simplest first.
type InferenceResponse struct {
	Mode        Mode       `json:"mode"`
	MaxCount    int        `json:"max_count"`
	Tolerance   float64    `json:"tolerance"`
	Filter      string     `json:"filter,omitempty"`
	SearchSpace float64    `json:"search_space"`
	Count       int        `json:"count"`
	Solutions   []Solution `json:"solutions"`
	Cached      bool       `json:"cached"`
	DurationMS  float64    `json:"duration_ms"`
}

// ParseResponse is the parsed form of a formula.
type ParseResponse struct {
	Formula     string         `json:"formula"`
	Mass        float64        `json:"mass"`
	Composition map[string]int `json:"composition"`
}

// Element describes one catalog element.
type Element struct {
	Symbol   string  `json:"symbol"`
	Number   int     `json:"number"`
	Mass     float64 `json:"mass"`
	Category string  `json:"category"`
}

// ElementList is the catalog in ascending atomic number.
type ElementList struct {
	Category string    `json:"category"`
	Count    int       `json:"count"`
	Elements []Element `json:"elements"`
}

// MatchResponse is the result of an atomic-mass lookup.
type MatchResponse struct {
	Mass       float64  `json:"mass"`
	Tolerance  float64  `json:"tolerance"`
	Category   string   `json:"category"`
	Found      bool     `json:"found"`
	Element    *Element `json:"element,omitempty"`
	Difference float64  `json:"difference,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Asynchronous jobs
// ─────────────────────────────────────────────────────────────────────────────

// JobStatus is the terminal state of an asynchronous inference.
type JobStatus string

const (
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// InferenceJob is the payload of an inference-requested event.
type InferenceJob struct {
	JobID       string           `json:"job_id"`
	Request     InferenceRequest `json:"request"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// InferenceResult is the payload of an inference-completed event.
type InferenceResult struct {
	JobID       string              `json:"job_id"`
	Status      JobStatus           `json:"status"`
	Response    *InferenceResponse  `json:"response,omitempty"`
	Error       *common.ErrorDetail `json:"error,omitempty"`
	CompletedAt time.Time           `json:"completed_at"`
}
