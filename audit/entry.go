package audit

import (
	"strings"
	"time"
)

// Result is the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFail    Result = "FAIL"
	ResultDenied  Result = "DENIED"
)

// Valid reports whether r is a known result.
func (r Result) Valid() bool {
	switch r {
	case ResultSuccess, ResultFail, ResultDenied:
		return true
	}
	return false
}

// Severity grades an audited operation.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank orders severities from LOW (1) to CRITICAL (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Entry is one immutable audit record.
type Entry struct {
	ID            string    `json:"id"`
	ActorID       string    `json:"actorId"`
	Action        string    `json:"action"`
	Module        string    `json:"module"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId,omitempty"`
	UnitID        string    `json:"unitId,omitempty"`
	IP            string    `json:"ip"`
	UserAgent     string    `json:"userAgent,omitempty"`
	Result        Result    `json:"result"`
	Severity      Severity  `json:"severity"`
	Metadata      Metadata  `json:"metadata"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Input is what callers hand to [Recorder.Record]. Result and Severity default to
// SUCCESS and LOW.
type Input struct {
	ActorID       string
	Action        string
	Module        string
	EntityType    string
	EntityID      string
	UnitID        string
	IP            string
	UserAgent     string
	Result        Result
	Severity      Severity
	Metadata      Metadata
	CorrelationID string
}

// Actions written by panelcore itself.
const (
	ActionExport        = "audit.export"
	ActionSessionCreate = "auth.session.create"
	ActionSessionRevoke = "auth.session.revoke"
)

const authNamespace = "auth"

// InAuthNamespace reports whether e was written by the authentication layer.
func InAuthNamespace(e Entry) bool {
	return e.Module == authNamespace || strings.HasPrefix(e.Action, authNamespace+".")
}

// IsSuspicious applies the suspicious-entry rule: an explicit tags list decides when
// present; otherwise DENIED results and CRITICAL auth events count.
func IsSuspicious(e Entry) bool {
	if e.Metadata.HasTags() {
		return e.Metadata.HasTag(TagSuspicious)
	}
	return e.Result == ResultDenied || (e.Severity == SeverityCritical && InAuthNamespace(e))
}

func (e Entry) clone() Entry {
	e.Metadata = e.Metadata.Clone()
	return e
}
