package domain

// FailKind classifies why a restoration attempt did not apply.
type FailKind string

const (
	FailNone        FailKind = ""
	FailInput       FailKind = "input"
	FailRateLimited FailKind = "rate_limited"
	FailNotFound    FailKind = "not_found"
	FailCorrupt     FailKind = "corrupt"
	FailTransientIO FailKind = "transient_io"
	FailUnexpected  FailKind = "unexpected"
)

// RestoreOutcome is the immutable result of one restoration attempt.
// ErrorMessage is set exactly when Succeeded is false.
type RestoreOutcome struct {
	AttemptID         string   `json:"attempt_id"`
	Succeeded         bool     `json:"succeeded"`
	ItemsAdded        int      `json:"items_added"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	NonManagedSkipped int      `json:"non_managed_skipped"`
	FailKind          FailKind `json:"fail_kind,omitempty"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	RolledBack        bool     `json:"rolled_back,omitempty"`
}
