package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentSchemaVersion is the layout written by this version of the queue.
// Records persisted without a version predate it and are migrated on startup.
const CurrentSchemaVersion = 1

// MutationRecord is the persisted form of a pending mutation.
// Queue order, not Timestamp, decides replay order.
type MutationRecord struct {
	ID             string          `json:"id"`
	Type           MutationType    `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	Timestamp      int64           `json:"timestamp"`
	SchemaVersion  int             `json:"schema_version"`
	Attempts       int             `json:"attempts"`
	NextAttemptAt  *int64          `json:"next_attempt_at,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	DeadLetteredAt *int64          `json:"dead_lettered_at,omitempty"`
}

// NewMutationRecord encodes m into a record with a fresh id and the current timestamp.
func NewMutationRecord(m Mutation) (MutationRecord, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return MutationRecord{}, fmt.Errorf("failed to encode %s payload: %w", m.Type(), err)
	}
	return NewRawMutationRecord(m.Type(), payload), nil
}

// NewRawMutationRecord builds a record without checking the type against the catalog.
func NewRawMutationRecord(t MutationType, payload json.RawMessage) MutationRecord {
	return MutationRecord{
		ID:            GenerateUUIDWithSuffix("mut"),
		Type:          t,
		Payload:       payload,
		Timestamp:     NowMillis(),
		SchemaVersion: CurrentSchemaVersion,
	}
}

// Mutation decodes the record payload into its variant.
func (r MutationRecord) Mutation() (Mutation, error) {
	return Decode(r.Type, r.Payload)
}

// EligibleAt reports whether the record may be attempted at now.
func (r MutationRecord) EligibleAt(now time.Time) bool {
	return r.NextAttemptAt == nil || *r.NextAttemptAt <= now.UnixMilli()
}

// Failure is the outcome of one unsuccessful dispatch, applied to the stored record after a drain pass.
type Failure struct {
	ID            string
	Error         string
	NextAttemptAt *time.Time
	// Retryable is false for records the dispatcher cannot understand; they keep their attempt count.
	Retryable bool
}
