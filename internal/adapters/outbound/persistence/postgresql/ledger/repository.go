package ledger

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"housebalance/internal/adapters/outbound/persistence/postgresql/shared"
	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	"housebalance/internal/domain/entities"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultAuditMaxAttempts = 25

type Config struct {
	AuditEnabled     bool
	AuditMaxAttempts int
}

type Repository struct {
	db     *sql.DB
	config Config
	logger *zap.Logger
}

var _ portsout.LedgerStore = (*Repository)(nil)
var _ portsout.WithdrawalReconciliationRepository = (*Repository)(nil)

func NewRepository(db *sql.DB, config Config, logger *zap.Logger) *Repository {
	if config.AuditMaxAttempts <= 0 {
		config.AuditMaxAttempts = defaultAuditMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, config: config, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const balanceColumns = `user_address, address_class, balance, reserved, created_at, updated_at`

const withdrawalColumns = `
  id,
  idempotency_key,
  user_address,
  address_class,
  amount,
  fee_rate,
  fee,
  net_amount,
  status,
  transfer_token,
  transfer_tx_id,
  last_error,
  created_at,
  updated_at,
  settled_at`

func (r *Repository) GetBalance(ctx context.Context, userAddress string) (dto.BalanceRecord, bool, *apperrors.AppError) {
	return r.loadBalance(ctx, r.db, userAddress)
}

func (r *Repository) CreditOnce(ctx context.Context, command dto.CreditCommand) (dto.CreditResult, *apperrors.AppError) {
	creditedAt := command.CreditedAt.UTC()

	tx, appErr := r.begin(ctx)
	if appErr != nil {
		return dto.CreditResult{}, appErr
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const insertDeposit = `
INSERT INTO app.deposits (chain_tx_hash, user_address, address_class, amount, credited_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (chain_tx_hash) DO NOTHING
`
	result, err := tx.ExecContext(
		ctx,
		insertDeposit,
		command.IdempotencyKey,
		command.UserAddress,
		command.AddressClass.String(),
		command.Amount,
		creditedAt,
	)
	if err != nil {
		return dto.CreditResult{}, shared.StoreError("deposit_insert_failed", "failed to record deposit", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return dto.CreditResult{}, shared.StoreError("deposit_insert_failed", "failed to verify deposit insert", err)
	}

	if inserted == 0 {
		replay, appErr := r.replayDeposit(ctx, tx, command)
		if appErr != nil {
			return dto.CreditResult{}, appErr
		}
		if err := tx.Commit(); err != nil {
			return dto.CreditResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit deposit replay", err)
		}
		committed = true
		return replay, nil
	}

	const upsertBalance = `
INSERT INTO app.user_balances (user_address, address_class, balance, reserved, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $4)
ON CONFLICT (user_address) DO UPDATE
SET
  balance = app.user_balances.balance + EXCLUDED.balance,
  updated_at = EXCLUDED.updated_at
RETURNING ` + balanceColumns

	balance, err := scanBalance(tx.QueryRowContext(
		ctx,
		upsertBalance,
		command.UserAddress,
		command.AddressClass.String(),
		command.Amount,
		creditedAt,
	))
	if err != nil {
		return dto.CreditResult{}, shared.StoreError("balance_update_failed", "failed to credit balance", err)
	}

	if appErr := r.appendAuditEvent(ctx, tx, dto.AuditEventDepositCredited, command.UserAddress, creditedAt, map[string]any{
		"user_address":  command.UserAddress,
		"address_class": command.AddressClass.String(),
		"amount":        command.Amount.String(),
		"chain_tx_hash": command.IdempotencyKey,
		"new_balance":   balance.Balance.String(),
		"credited_at":   creditedAt.Format(time.RFC3339Nano),
	}); appErr != nil {
		return dto.CreditResult{}, appErr
	}

	if err := tx.Commit(); err != nil {
		return dto.CreditResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit deposit", err)
	}
	committed = true

	return dto.CreditResult{Balance: balance, CreditedAt: creditedAt}, nil
}

func (r *Repository) replayDeposit(ctx context.Context, tx *sql.Tx, command dto.CreditCommand) (dto.CreditResult, *apperrors.AppError) {
	const query = `
SELECT user_address, amount, credited_at
FROM app.deposits
WHERE chain_tx_hash = $1
`
	var (
		userAddress string
		amount      decimal.Decimal
		creditedAt  time.Time
	)
	if err := tx.QueryRowContext(ctx, query, command.IdempotencyKey).Scan(&userAddress, &amount, &creditedAt); err != nil {
		return dto.CreditResult{}, shared.StoreError("deposit_query_failed", "failed to load recorded deposit", err)
	}

	if userAddress != command.UserAddress || !amount.Equal(command.Amount) {
		return dto.CreditResult{}, apperrors.NewConflict(
			"deposit_tx_hash_conflict",
			"chain_tx_hash was already credited with a different address or amount",
			map[string]any{"chain_tx_hash": command.IdempotencyKey},
		)
	}

	balance, found, appErr := r.loadBalance(ctx, tx, userAddress)
	if appErr != nil {
		return dto.CreditResult{}, appErr
	}
	if !found {
		return dto.CreditResult{}, apperrors.NewInternal(
			"ledger_invariant_violated",
			"recorded deposit has no balance row",
			map[string]any{"chain_tx_hash": command.IdempotencyKey},
		)
	}

	return dto.CreditResult{Balance: balance, Replayed: true, CreditedAt: creditedAt.UTC()}, nil
}

func (r *Repository) ReserveFunds(ctx context.Context, command dto.ReserveFundsCommand) (dto.ReserveFundsResult, *apperrors.AppError) {
	withdrawal := command.Withdrawal
	createdAt := withdrawal.CreatedAt.UTC()

	tx, appErr := r.begin(ctx)
	if appErr != nil {
		return dto.ReserveFundsResult{}, appErr
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Locking the balance row first serializes same-address reservations, so
	// a retried key always observes the committed original.
	const lockBalance = `SELECT user_address FROM app.user_balances WHERE user_address = $1 FOR UPDATE`
	var lockedAddress string
	err := tx.QueryRowContext(ctx, lockBalance, withdrawal.UserAddress).Scan(&lockedAddress)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return dto.ReserveFundsResult{}, shared.StoreError("balance_lock_failed", "failed to lock balance", err)
	}

	existing, found, appErr := r.findWithdrawalByKey(ctx, tx, withdrawal.IdempotencyKey)
	if appErr != nil {
		return dto.ReserveFundsResult{}, appErr
	}
	if found {
		return dto.ReserveFundsResult{}, duplicateWithdrawal(existing)
	}

	// The availability check and the hold are one statement.
	const reserve = `
UPDATE app.user_balances
SET
  reserved = reserved + $2,
  updated_at = $3
WHERE user_address = $1
  AND balance - reserved >= $2
RETURNING ` + balanceColumns

	balance, err := scanBalance(tx.QueryRowContext(ctx, reserve, withdrawal.UserAddress, withdrawal.Amount, createdAt))
	if stderrors.Is(err, sql.ErrNoRows) {
		return dto.ReserveFundsResult{}, apperrors.NewInsufficientFunds(
			"insufficient_funds",
			"available balance does not cover the withdrawal amount",
			map[string]any{
				"user_address": withdrawal.UserAddress,
				"amount":       withdrawal.Amount.String(),
			},
		)
	}
	if err != nil {
		return dto.ReserveFundsResult{}, shared.StoreError("balance_update_failed", "failed to reserve funds", err)
	}

	const insertWithdrawal = `
INSERT INTO app.withdrawals (
  id,
  idempotency_key,
  user_address,
  address_class,
  amount,
  fee_rate,
  fee,
  net_amount,
  status,
  transfer_token,
  created_at,
  updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
`
	if _, err := tx.ExecContext(
		ctx,
		insertWithdrawal,
		withdrawal.ID,
		withdrawal.IdempotencyKey,
		withdrawal.UserAddress,
		withdrawal.AddressClass.String(),
		withdrawal.Amount,
		withdrawal.FeeRate,
		withdrawal.Fee,
		withdrawal.Net,
		valueobjects.WithdrawalStatusReserved.String(),
		withdrawal.TransferToken,
		createdAt,
	); err != nil {
		if shared.IsUniqueViolation(err) {
			// Same key reused for another address; the hold is rolled back.
			_ = tx.Rollback()
			existing, found, lookupErr := r.findWithdrawalByKey(ctx, r.db, withdrawal.IdempotencyKey)
			if lookupErr == nil && found {
				return dto.ReserveFundsResult{}, duplicateWithdrawal(existing)
			}
			return dto.ReserveFundsResult{}, apperrors.NewConflict(
				"withdrawal_already_submitted",
				"a withdrawal with this idempotency key already exists",
				map[string]any{"idempotency_key": withdrawal.IdempotencyKey},
			)
		}
		return dto.ReserveFundsResult{}, shared.StoreError("withdrawal_insert_failed", "failed to record withdrawal", err)
	}

	if appErr := r.appendAuditEvent(ctx, tx, dto.AuditEventWithdrawalReserved, withdrawal.UserAddress, createdAt, withdrawalPayload(withdrawal, balance)); appErr != nil {
		return dto.ReserveFundsResult{}, appErr
	}

	if err := tx.Commit(); err != nil {
		return dto.ReserveFundsResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit reservation", err)
	}
	committed = true

	withdrawal.Status = valueobjects.WithdrawalStatusReserved
	withdrawal.CreatedAt = createdAt
	withdrawal.UpdatedAt = createdAt
	return dto.ReserveFundsResult{Withdrawal: withdrawal, Balance: balance}, nil
}

func (r *Repository) DebitReserved(ctx context.Context, command dto.DebitReservedCommand) (dto.DebitReservedResult, *apperrors.AppError) {
	settledAt := command.SettledAt.UTC()
	txID := strings.TrimSpace(command.TransferTxID)
	if txID == "" {
		return dto.DebitReservedResult{}, apperrors.NewInternal(
			"transfer_tx_id_missing",
			"transfer transaction id is required to settle a withdrawal",
			map[string]any{"withdrawal_id": command.WithdrawalID},
		)
	}

	tx, appErr := r.begin(ctx)
	if appErr != nil {
		return dto.DebitReservedResult{}, appErr
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	withdrawal, appErr := r.lockWithdrawal(ctx, tx, command.WithdrawalID)
	if appErr != nil {
		return dto.DebitReservedResult{}, appErr
	}

	if withdrawal.Status == valueobjects.WithdrawalStatusCompleted {
		if withdrawal.TransferTxID == nil || *withdrawal.TransferTxID != txID {
			return dto.DebitReservedResult{}, withdrawalStateConflict(withdrawal, "settle")
		}
		balance, _, appErr := r.loadBalance(ctx, tx, withdrawal.UserAddress)
		if appErr != nil {
			return dto.DebitReservedResult{}, appErr
		}
		if err := tx.Commit(); err != nil {
			return dto.DebitReservedResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit settlement replay", err)
		}
		committed = true
		return dto.DebitReservedResult{Withdrawal: withdrawal, Balance: balance, Replayed: true}, nil
	}
	if !withdrawal.Status.CanSettle() {
		return dto.DebitReservedResult{}, withdrawalStateConflict(withdrawal, "settle")
	}

	const debit = `
UPDATE app.user_balances
SET
  balance = balance - $2,
  reserved = reserved - $2,
  updated_at = $3
WHERE user_address = $1
  AND reserved >= $2
RETURNING ` + balanceColumns

	balance, err := scanBalance(tx.QueryRowContext(ctx, debit, withdrawal.UserAddress, withdrawal.Amount, settledAt))
	if stderrors.Is(err, sql.ErrNoRows) {
		return dto.DebitReservedResult{}, apperrors.NewInternal(
			"ledger_invariant_violated",
			"reserved balance does not cover the withdrawal being settled",
			map[string]any{"withdrawal_id": withdrawal.ID},
		)
	}
	if err != nil {
		return dto.DebitReservedResult{}, shared.StoreError("balance_update_failed", "failed to debit reserved funds", err)
	}

	const complete = `
UPDATE app.withdrawals
SET
  status = 'completed',
  transfer_tx_id = $2,
  last_error = NULL,
  settled_at = $3,
  updated_at = $3,
  reconcile_lease_owner = NULL,
  reconcile_lease_until = NULL
WHERE id = $1
`
	if _, err := tx.ExecContext(ctx, complete, withdrawal.ID, txID, settledAt); err != nil {
		return dto.DebitReservedResult{}, shared.StoreError("withdrawal_update_failed", "failed to complete withdrawal", err)
	}

	withdrawal.Status = valueobjects.WithdrawalStatusCompleted
	withdrawal.TransferTxID = &txID
	withdrawal.LastError = nil
	withdrawal.SettledAt = &settledAt
	withdrawal.UpdatedAt = settledAt

	if appErr := r.appendAuditEvent(ctx, tx, dto.AuditEventWithdrawalCompleted, withdrawal.UserAddress, settledAt, withdrawalPayload(withdrawal, balance)); appErr != nil {
		return dto.DebitReservedResult{}, appErr
	}

	if err := tx.Commit(); err != nil {
		return dto.DebitReservedResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit settlement", err)
	}
	committed = true

	return dto.DebitReservedResult{Withdrawal: withdrawal, Balance: balance}, nil
}

func (r *Repository) ReleaseReservation(ctx context.Context, command dto.ReleaseReservationCommand) (dto.ReleaseReservationResult, *apperrors.AppError) {
	releasedAt := command.ReleasedAt.UTC()

	tx, appErr := r.begin(ctx)
	if appErr != nil {
		return dto.ReleaseReservationResult{}, appErr
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	withdrawal, appErr := r.lockWithdrawal(ctx, tx, command.WithdrawalID)
	if appErr != nil {
		return dto.ReleaseReservationResult{}, appErr
	}

	if withdrawal.Status == valueobjects.WithdrawalStatusReleased {
		balance, _, appErr := r.loadBalance(ctx, tx, withdrawal.UserAddress)
		if appErr != nil {
			return dto.ReleaseReservationResult{}, appErr
		}
		if err := tx.Commit(); err != nil {
			return dto.ReleaseReservationResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit release replay", err)
		}
		committed = true
		return dto.ReleaseReservationResult{Withdrawal: withdrawal, Balance: balance, Replayed: true}, nil
	}
	if !withdrawal.Status.CanRelease() {
		return dto.ReleaseReservationResult{}, withdrawalStateConflict(withdrawal, "release")
	}

	const unhold = `
UPDATE app.user_balances
SET
  reserved = reserved - $2,
  updated_at = $3
WHERE user_address = $1
  AND reserved >= $2
RETURNING ` + balanceColumns

	balance, err := scanBalance(tx.QueryRowContext(ctx, unhold, withdrawal.UserAddress, withdrawal.Amount, releasedAt))
	if stderrors.Is(err, sql.ErrNoRows) {
		return dto.ReleaseReservationResult{}, apperrors.NewInternal(
			"ledger_invariant_violated",
			"reserved balance does not cover the withdrawal being released",
			map[string]any{"withdrawal_id": withdrawal.ID},
		)
	}
	if err != nil {
		return dto.ReleaseReservationResult{}, shared.StoreError("balance_update_failed", "failed to release reserved funds", err)
	}

	reason := strings.TrimSpace(command.Reason)
	const release = `
UPDATE app.withdrawals
SET
  status = 'released',
  last_error = NULLIF($2, ''),
  updated_at = $3,
  reconcile_lease_owner = NULL,
  reconcile_lease_until = NULL
WHERE id = $1
`
	if _, err := tx.ExecContext(ctx, release, withdrawal.ID, reason, releasedAt); err != nil {
		return dto.ReleaseReservationResult{}, shared.StoreError("withdrawal_update_failed", "failed to release withdrawal", err)
	}

	withdrawal.Status = valueobjects.WithdrawalStatusReleased
	withdrawal.UpdatedAt = releasedAt
	if reason != "" {
		withdrawal.LastError = &reason
	}

	payload := withdrawalPayload(withdrawal, balance)
	payload["reason"] = reason
	if appErr := r.appendAuditEvent(ctx, tx, dto.AuditEventWithdrawalReleased, withdrawal.UserAddress, releasedAt, payload); appErr != nil {
		return dto.ReleaseReservationResult{}, appErr
	}

	if err := tx.Commit(); err != nil {
		return dto.ReleaseReservationResult{}, shared.StoreError("ledger_tx_commit_failed", "failed to commit release", err)
	}
	committed = true

	return dto.ReleaseReservationResult{Withdrawal: withdrawal, Balance: balance}, nil
}

func (r *Repository) MarkTransferUnknown(ctx context.Context, command dto.MarkWithdrawalCommand) *apperrors.AppError {
	const query = `
UPDATE app.withdrawals
SET
  status = 'transfer_unknown',
  last_error = NULLIF($2, ''),
  updated_at = $3
WHERE id = $1
  AND status = 'reserved'
`
	result, err := r.db.ExecContext(ctx, query, command.WithdrawalID, strings.TrimSpace(command.Reason), command.UpdatedAt.UTC())
	if err != nil {
		return shared.StoreError("withdrawal_update_failed", "failed to mark transfer outcome unknown", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return shared.StoreError("withdrawal_update_failed", "failed to verify withdrawal update", err)
	}
	if affected != 1 {
		return apperrors.NewConflict(
			"withdrawal_state_conflict",
			"withdrawal is no longer reserved",
			map[string]any{"withdrawal_id": command.WithdrawalID},
		)
	}
	return nil
}

func (r *Repository) MarkLedgerUpdateFailed(ctx context.Context, command dto.MarkWithdrawalCommand) *apperrors.AppError {
	updatedAt := command.UpdatedAt.UTC()

	tx, appErr := r.begin(ctx)
	if appErr != nil {
		return appErr
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `
UPDATE app.withdrawals
SET
  status = 'ledger_update_failed',
  transfer_tx_id = $2,
  last_error = NULLIF($3, ''),
  updated_at = $4
WHERE id = $1
  AND status IN ('reserved', 'transfer_unknown')
RETURNING user_address, amount
`
	var (
		userAddress string
		amount      decimal.Decimal
	)
	err := tx.QueryRowContext(
		ctx,
		query,
		command.WithdrawalID,
		strings.TrimSpace(command.TransferTxID),
		strings.TrimSpace(command.Reason),
		updatedAt,
	).Scan(&userAddress, &amount)
	if stderrors.Is(err, sql.ErrNoRows) {
		return apperrors.NewConflict(
			"withdrawal_state_conflict",
			"withdrawal cannot be marked as ledger_update_failed",
			map[string]any{"withdrawal_id": command.WithdrawalID},
		)
	}
	if err != nil {
		return shared.StoreError("withdrawal_update_failed", "failed to mark ledger update failure", err)
	}

	if appErr := r.appendAuditEvent(ctx, tx, dto.AuditEventWithdrawalLedgerUpdateFailed, userAddress, updatedAt, map[string]any{
		"withdrawal_id":  command.WithdrawalID,
		"user_address":   userAddress,
		"amount":         amount.String(),
		"transfer_tx_id": strings.TrimSpace(command.TransferTxID),
		"reason":         strings.TrimSpace(command.Reason),
	}); appErr != nil {
		return appErr
	}

	if err := tx.Commit(); err != nil {
		return shared.StoreError("ledger_tx_commit_failed", "failed to commit ledger update failure", err)
	}
	committed = true
	return nil
}

func (r *Repository) GetWithdrawal(ctx context.Context, withdrawalID string) (entities.Withdrawal, bool, *apperrors.AppError) {
	query := `SELECT ` + withdrawalColumns + ` FROM app.withdrawals WHERE id = $1`

	withdrawal, err := scanWithdrawal(r.db.QueryRowContext(ctx, query, strings.TrimSpace(withdrawalID)))
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Withdrawal{}, false, nil
	}
	if err != nil {
		return entities.Withdrawal{}, false, shared.StoreError("withdrawal_query_failed", "failed to load withdrawal", err)
	}
	return withdrawal, true, nil
}

func (r *Repository) ClaimStaleWithdrawals(
	ctx context.Context,
	command dto.ClaimStaleWithdrawalsCommand,
) ([]entities.Withdrawal, *apperrors.AppError) {
	query := `
WITH candidates AS (
  SELECT id
  FROM app.withdrawals
  WHERE status IN ('reserved', 'transfer_unknown', 'ledger_update_failed')
    AND updated_at <= $2
    AND (reconcile_lease_until IS NULL OR reconcile_lease_until <= $1)
  ORDER BY updated_at ASC, id ASC
  LIMIT $3
  FOR UPDATE SKIP LOCKED
)
UPDATE app.withdrawals AS w
SET
  reconcile_lease_owner = $4,
  reconcile_lease_until = $5
FROM candidates
WHERE w.id = candidates.id
RETURNING ` + qualify("w", withdrawalColumns)

	rows, err := r.db.QueryContext(
		ctx,
		query,
		command.Now.UTC(),
		command.StaleBefore.UTC(),
		command.Limit,
		strings.TrimSpace(command.LeaseOwner),
		command.LeaseUntil.UTC(),
	)
	if err != nil {
		return nil, shared.StoreError("withdrawal_query_failed", "failed to claim stale withdrawals", err)
	}
	defer rows.Close()

	items := make([]entities.Withdrawal, 0, command.Limit)
	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, shared.StoreError("withdrawal_query_failed", "failed to parse claimed withdrawal", err)
		}
		items = append(items, withdrawal)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("withdrawal_query_failed", "failed while iterating claimed withdrawals", err)
	}

	return items, nil
}

func (r *Repository) begin(ctx context.Context) (*sql.Tx, *apperrors.AppError) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, shared.StoreError("ledger_tx_begin_failed", "failed to start ledger transaction", err)
	}
	return tx, nil
}

func (r *Repository) loadBalance(ctx context.Context, q queryer, userAddress string) (dto.BalanceRecord, bool, *apperrors.AppError) {
	query := `SELECT ` + balanceColumns + ` FROM app.user_balances WHERE user_address = $1`

	balance, err := scanBalance(q.QueryRowContext(ctx, query, userAddress))
	if stderrors.Is(err, sql.ErrNoRows) {
		return dto.BalanceRecord{}, false, nil
	}
	if err != nil {
		return dto.BalanceRecord{}, false, shared.StoreError("balance_query_failed", "failed to load balance", err)
	}
	return balance, true, nil
}

func (r *Repository) findWithdrawalByKey(ctx context.Context, q queryer, idempotencyKey string) (entities.Withdrawal, bool, *apperrors.AppError) {
	query := `SELECT ` + withdrawalColumns + ` FROM app.withdrawals WHERE idempotency_key = $1`

	withdrawal, err := scanWithdrawal(q.QueryRowContext(ctx, query, idempotencyKey))
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Withdrawal{}, false, nil
	}
	if err != nil {
		return entities.Withdrawal{}, false, shared.StoreError("withdrawal_query_failed", "failed to load withdrawal by idempotency key", err)
	}
	return withdrawal, true, nil
}

func duplicateWithdrawal(existing entities.Withdrawal) *apperrors.AppError {
	return apperrors.NewConflict(
		"withdrawal_already_submitted",
		"a withdrawal with this idempotency key already exists",
		map[string]any{
			"idempotency_key": existing.IdempotencyKey,
			"withdrawal_id":   existing.ID,
			"status":          existing.Status.String(),
		},
	)
}

func (r *Repository) lockWithdrawal(ctx context.Context, tx *sql.Tx, withdrawalID string) (entities.Withdrawal, *apperrors.AppError) {
	query := `SELECT ` + withdrawalColumns + ` FROM app.withdrawals WHERE id = $1 FOR UPDATE`

	withdrawal, err := scanWithdrawal(tx.QueryRowContext(ctx, query, strings.TrimSpace(withdrawalID)))
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Withdrawal{}, apperrors.NewNotFound(
			"withdrawal_not_found",
			"withdrawal not found",
			map[string]any{"withdrawal_id": withdrawalID},
		)
	}
	if err != nil {
		return entities.Withdrawal{}, shared.StoreError("withdrawal_query_failed", "failed to lock withdrawal", err)
	}
	return withdrawal, nil
}

func scanBalance(row rowScanner) (dto.BalanceRecord, error) {
	var (
		record       dto.BalanceRecord
		addressClass string
	)
	if err := row.Scan(
		&record.UserAddress,
		&addressClass,
		&record.Balance,
		&record.Reserved,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return dto.BalanceRecord{}, err
	}

	record.AddressClass, _ = valueobjects.ParseAddressClass(addressClass)
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func scanWithdrawal(row rowScanner) (entities.Withdrawal, error) {
	var (
		withdrawal   entities.Withdrawal
		addressClass string
		status       string
		transferTxID sql.NullString
		lastError    sql.NullString
		settledAt    sql.NullTime
	)
	if err := row.Scan(
		&withdrawal.ID,
		&withdrawal.IdempotencyKey,
		&withdrawal.UserAddress,
		&addressClass,
		&withdrawal.Amount,
		&withdrawal.FeeRate,
		&withdrawal.Fee,
		&withdrawal.Net,
		&status,
		&withdrawal.TransferToken,
		&transferTxID,
		&lastError,
		&withdrawal.CreatedAt,
		&withdrawal.UpdatedAt,
		&settledAt,
	); err != nil {
		return entities.Withdrawal{}, err
	}

	withdrawal.AddressClass, _ = valueobjects.ParseAddressClass(addressClass)
	withdrawal.Status, _ = valueobjects.ParseWithdrawalStatus(status)
	withdrawal.CreatedAt = withdrawal.CreatedAt.UTC()
	withdrawal.UpdatedAt = withdrawal.UpdatedAt.UTC()
	if transferTxID.Valid {
		value := transferTxID.String
		withdrawal.TransferTxID = &value
	}
	if lastError.Valid {
		value := lastError.String
		withdrawal.LastError = &value
	}
	if settledAt.Valid {
		value := settledAt.Time.UTC()
		withdrawal.SettledAt = &value
	}
	return withdrawal, nil
}

func withdrawalStateConflict(withdrawal entities.Withdrawal, operation string) *apperrors.AppError {
	return apperrors.NewConflict(
		"withdrawal_state_conflict",
		"withdrawal is not in a state that allows this operation",
		map[string]any{
			"withdrawal_id": withdrawal.ID,
			"status":        withdrawal.Status.String(),
			"operation":     operation,
		},
	)
}

func withdrawalPayload(withdrawal entities.Withdrawal, balance dto.BalanceRecord) map[string]any {
	payload := map[string]any{
		"withdrawal_id":  withdrawal.ID,
		"user_address":   withdrawal.UserAddress,
		"address_class":  withdrawal.AddressClass.String(),
		"amount":         withdrawal.Amount.String(),
		"fee":            withdrawal.Fee.String(),
		"net_amount":     withdrawal.Net.String(),
		"transfer_token": withdrawal.TransferToken,
		"balance":        balance.Balance.String(),
		"reserved":       balance.Reserved.String(),
	}
	if withdrawal.TransferTxID != nil {
		payload["transfer_tx_id"] = *withdrawal.TransferTxID
	}
	return payload
}

func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ",\n  ")
}
