package dto

import "time"

const (
	AuditEventDepositCredited              = "deposit.credited"
	AuditEventWithdrawalReserved           = "withdrawal.reserved"
	AuditEventWithdrawalCompleted          = "withdrawal.completed"
	AuditEventWithdrawalReleased           = "withdrawal.released"
	AuditEventWithdrawalLedgerUpdateFailed = "withdrawal.ledger_update_failed"
)

type DispatchAuditEventsCommand struct {
	Now            time.Time
	BatchSize      int
	WorkerID       string
	LeaseDuration  time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type DispatchAuditEventsOutput struct {
	Claimed   int
	Published int
	Retried   int
	Failed    int
	Skipped   int
	Errors    int
	LatencyMS int64
}

type PendingAuditEvent struct {
	ID           int64
	EventID      string
	EventType    string
	AggregateKey string
	Payload      []byte
	Attempts     int
	MaxAttempts  int
}

type PublishAuditEventInput struct {
	EventID      string
	EventType    string
	AggregateKey string
	Payload      []byte
}
