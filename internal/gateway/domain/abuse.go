package domain

import "time"

// LockState is the brute-force state machine position for a key.
// clear moves to tracking on the first failure, tracking moves to locked when
// the failure count crosses the threshold, and locked falls back to clear
// once the block duration elapses without further failures.
type LockState string

const (
	LockClear    LockState = "clear"
	LockTracking LockState = "tracking"
	LockLocked   LockState = "locked"
)

// BruteForceRecord tracks consecutive authentication failures for a key
// (caller IP, or IP+route). Count only moves forward within a window; it
// resets on success or once the window has fully elapsed.
type BruteForceRecord struct {
	Key           string
	Count         int64
	LastAttemptAt time.Time
}

// IPReputationRecord is the running suspicion score for a source address.
// Blocked flips true when SuspicionCount crosses the threshold and stays
// true for the configured block duration from the triggering event.
type IPReputationRecord struct {
	IP             string
	SuspicionCount int64
	LastSeenAt     time.Time
	Blocked        bool
	BlockedUntil   time.Time
}
