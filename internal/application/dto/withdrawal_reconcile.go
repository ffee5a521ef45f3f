package dto

import "time"

type ReconcileWithdrawalsCommand struct {
	Now           time.Time
	BatchSize     int
	WorkerID      string
	LeaseDuration time.Duration
	StaleAfter    time.Duration
}

type ReconcileWithdrawalsOutput struct {
	Claimed    int
	Settled    int
	Released   int
	Unresolved int
	Errors     int
}

type ClaimStaleWithdrawalsCommand struct {
	Now         time.Time
	StaleBefore time.Time
	Limit       int
	LeaseOwner  string
	LeaseUntil  time.Time
}
