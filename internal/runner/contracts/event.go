package contracts

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the flat, sparse wire record for every event the runner emits.
// The six required fields are always present; the remaining fields are
// populated only when semantically meaningful for the given event type and
// are omitted from the encoded line otherwise (see ToJSONLine).
type Event struct {
	EventID      string    `json:"event_id"`
	EventType    EventType `json:"event_type"`
	RunID        string    `json:"run_id"`
	TimestampUTC string    `json:"timestamp_utc"`
	Actor        Actor     `json:"actor"`
	Attempt      int       `json:"attempt"`

	StepID         string     `json:"step_id,omitempty"`
	ErrorClass     ErrorClass `json:"error_class,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	InputsHash     string     `json:"inputs_hash,omitempty"`
	OutputsHash    string     `json:"outputs_hash,omitempty"`
	ArtifactPath   string     `json:"artifact_path,omitempty"`
	PreviousState  string     `json:"previous_state,omitempty"`
	NewState       string     `json:"new_state,omitempty"`
	OverrideReason string     `json:"override_reason,omitempty"`
}

// ToJSONLine encodes the event as a single compact JSON line (no inter-token
// whitespace), matching the fixed wire format every reader expects. The
// trailing newline is the caller's (eventlog.EventLog.Append's)
// responsibility.
func (e Event) ToJSONLine() ([]byte, error) {
	return json.Marshal(e)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newULID returns a fresh, monotonic-within-process ULID string. A single
// shared monotonic source (guarded by a mutex) keeps IDs ordered even when
// generated in rapid succession.
func newULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewEventID returns a fresh event identifier.
func NewEventID() string { return newULID() }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return newULID() }

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// --- Event builders ---
//
// Each builder stamps event_id, timestamp_utc, and actor, and populates only
// the fields semantically relevant to that event type.

func NewRunCreated(runID string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventRunCreated,
		RunID:        runID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		NewState:     string(RunCreated),
	}
}

func NewRunStateChanged(runID string, previous, next RunState, reason string) Event {
	return Event{
		EventID:       NewEventID(),
		EventType:     EventRunStateChanged,
		RunID:         runID,
		TimestampUTC:  nowUTC(),
		Actor:         ActorRunner,
		PreviousState: string(previous),
		NewState:      string(next),
		Reason:        reason,
	}
}

func NewStepStarted(runID, stepID string, attempt int) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventStepStarted,
		RunID:        runID,
		StepID:       stepID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		Attempt:      attempt,
		NewState:     string(StepRunning),
	}
}

func NewStepSucceeded(runID, stepID string, attempt int, outputsHash string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventStepSucceeded,
		RunID:        runID,
		StepID:       stepID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		Attempt:      attempt,
		NewState:     string(StepSucceeded),
		OutputsHash:  outputsHash,
	}
}

func NewStepFailed(runID, stepID string, attempt int, errClass ErrorClass, reason string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventStepFailed,
		RunID:        runID,
		StepID:       stepID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		Attempt:      attempt,
		ErrorClass:   errClass,
		Reason:       reason,
		NewState:     string(StepFailed),
	}
}

func NewStepRetried(runID, stepID string, attempt int, reason string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventStepRetried,
		RunID:        runID,
		StepID:       stepID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		Attempt:      attempt,
		Reason:       reason,
	}
}

func NewGateFailed(runID, stepID string, errClass ErrorClass, reason string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventGateFailed,
		RunID:        runID,
		StepID:       stepID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		ErrorClass:   errClass,
		Reason:       reason,
	}
}

func NewArtifactEmitted(runID, stepID, artifactPath, outputsHash string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventArtifactEmitted,
		RunID:        runID,
		StepID:       stepID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		ArtifactPath: artifactPath,
		OutputsHash:  outputsHash,
	}
}

func NewRunCompleted(runID string, finalState RunState, reason string) Event {
	return Event{
		EventID:      NewEventID(),
		EventType:    EventRunCompleted,
		RunID:        runID,
		TimestampUTC: nowUTC(),
		Actor:        ActorRunner,
		NewState:     string(finalState),
		Reason:       reason,
	}
}
