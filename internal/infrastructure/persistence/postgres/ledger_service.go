package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
	"github.com/classdeck/reward-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER SERVICE
// The sole writer of reward state. Every operation locks the student's
// account row (SELECT ... FOR UPDATE) and commits the full mutation in one
// transaction: a concurrent reader sees either the pre-operation or the
// post-operation state, never anything between.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerService implements reward.Ledger on PostgreSQL.
type LedgerService struct {
	conn    *Connection
	accrual reward.Accrual
	retrier *retry.Retrier
}

// NewLedgerService creates a ledger service with the given accrual threshold
// and commit retry budget.
func NewLedgerService(conn *Connection, accrualThreshold, maxCommitRetries int) (*LedgerService, error) {
	accrual, err := reward.NewAccrual(accrualThreshold)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &LedgerService{
		conn:    conn,
		accrual: accrual,
		retrier: retry.LedgerRetrier(maxCommitRetries),
	}, nil
}

const selectAccountForUpdate = `
	SELECT student_id, ticket_balance, accrual_progress, consecutive_duplicates,
	       version, created_at, updated_at
	FROM reward_accounts
	WHERE student_id = $1
	FOR UPDATE`

const insertAccount = `
	INSERT INTO reward_accounts (student_id)
	VALUES ($1)
	ON CONFLICT (student_id) DO NOTHING`

const updateAccount = `
	UPDATE reward_accounts
	SET ticket_balance = $2,
	    accrual_progress = $3,
	    consecutive_duplicates = $4,
	    version = version + 1,
	    updated_at = $5
	WHERE student_id = $1`

const insertItem = `
	INSERT INTO student_items (student_id, item_id, acquired_at)
	VALUES ($1, $2, $3)`

const insertLedgerEntry = `
	INSERT INTO reward_ledger (id, student_id, ticket_delta, item_id, cause, recorded_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

// Credit implements reward.Ledger.
func (s *LedgerService) Credit(ctx context.Context, studentID string, delta int) (*reward.AccrualResult, error) {
	var result *reward.AccrualResult

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.withClassifiedTx(ctx, func(tx pgx.Tx) error {
			account, err := s.lockAccount(ctx, tx, studentID, false)
			if err != nil {
				return err
			}

			newProgress, units := s.accrual.Advance(account.AccrualProgress, delta)
			if err := account.CreditTickets(units, newProgress); err != nil {
				return retry.Permanent(err)
			}

			if err := s.saveAccount(ctx, tx, account); err != nil {
				return err
			}

			result = &reward.AccrualResult{
				Units:       units,
				NewBalance:  account.TicketBalance,
				NewProgress: account.AccrualProgress,
			}

			if units > 0 {
				entry := reward.Entry{
					ID:          uuid.NewString(),
					StudentID:   studentID,
					TicketDelta: units,
					Cause:       reward.CauseAccrualCredit,
					RecordedAt:  time.Now().UTC(),
				}
				if err := s.appendEntry(ctx, tx, entry); err != nil {
					return err
				}
				result.Entry = &entry
			}
			return nil
		})
	})
	if err != nil {
		return nil, shared.WrapError("ledger", "Credit", nil,
			fmt.Sprintf("student %s", studentID), err)
	}
	return result, nil
}

// ApplyDraw implements reward.Ledger. The resolver runs after the row lock
// is held, so the counters it reads are exactly the counters the commit
// applies to.
func (s *LedgerService) ApplyDraw(ctx context.Context, studentID string, cost int, resolve reward.DrawResolver) (*reward.DrawResult, error) {
	var result *reward.DrawResult

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.withClassifiedTx(ctx, func(tx pgx.Tx) error {
			account, err := s.lockAccount(ctx, tx, studentID, true)
			if err != nil {
				return err
			}

			if !account.CanAfford(cost) {
				return retry.Permanent(fmt.Errorf("student %s: balance %d, cost %d: %w",
					studentID, account.TicketBalance, cost, reward.ErrInsufficientTickets))
			}

			outcome, err := resolve(account)
			if err != nil {
				// Configuration errors abort the draw with no mutation.
				return retry.Permanent(err)
			}

			now := time.Now().UTC()
			entries := []reward.Entry{{
				ID:          uuid.NewString(),
				StudentID:   studentID,
				TicketDelta: -cost,
				ItemID:      outcome.Item.ID,
				Cause:       reward.CauseDrawCost,
				RecordedAt:  now,
			}}

			if outcome.IsDuplicate {
				if err := account.ApplyDuplicate(outcome.Bonus, cost); err != nil {
					return retry.Permanent(err)
				}
				entries = append(entries, reward.Entry{
					ID:          uuid.NewString(),
					StudentID:   studentID,
					TicketDelta: outcome.Bonus,
					ItemID:      outcome.Item.ID,
					Cause:       reward.CauseDuplicateBonus,
					RecordedAt:  now,
				})
			} else {
				if err := account.ApplyNewItem(outcome.Item, cost); err != nil {
					return retry.Permanent(err)
				}
				if _, err := tx.Exec(ctx, insertItem, studentID, outcome.Item.ID, now); err != nil {
					if IsUniqueViolation(err) {
						// The owned set was read under the same lock, so a
						// collision means the resolver saw stale state.
						return retry.Retryable(shared.WrapError("ledger", "ApplyDraw",
							shared.ErrAlreadyExists,
							fmt.Sprintf("item %s already granted", outcome.Item.ID),
							shared.ErrConcurrentModification))
					}
					return err
				}
			}

			if err := s.saveAccount(ctx, tx, account); err != nil {
				return err
			}
			for _, entry := range entries {
				if err := s.appendEntry(ctx, tx, entry); err != nil {
					return err
				}
			}

			delta := -cost
			if outcome.IsDuplicate {
				delta += outcome.Bonus
			}
			result = &reward.DrawResult{
				Item:          outcome.Item,
				IsDuplicate:   outcome.IsDuplicate,
				PityTriggered: outcome.PityTriggered,
				PityThreshold: outcome.PityThreshold,
				TicketDelta:   delta,
				Entries:       entries,
			}
			return nil
		})
	})
	if err != nil {
		return nil, shared.WrapError("ledger", "ApplyDraw", nil,
			fmt.Sprintf("student %s", studentID), err)
	}
	return result, nil
}

// withClassifiedTx runs fn in a transaction and classifies commit errors:
// serialization failures become retryable conflicts, everything else at the
// transaction boundary surfaces as a transient failure. Nothing is retried
// after a successful commit.
func (s *LedgerService) withClassifiedTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	err := s.conn.WithTx(ctx, DefaultTxOptions(), fn)
	if err == nil {
		return nil
	}
	if retry.IsRetryable(err) || retry.IsPermanent(err) {
		return err
	}
	if IsSerializationFailure(err) {
		return retry.Retryable(fmt.Errorf("%v: %w", err, shared.ErrConcurrentModification))
	}
	if ctx.Err() != nil {
		return retry.Permanent(fmt.Errorf("%v: %w", err, shared.ErrTimeout))
	}
	return retry.Retryable(fmt.Errorf("%v: %w", err, shared.ErrTransientFailure))
}

// lockAccount loads the student's account row under FOR UPDATE, provisioning
// a zero-state row on first use. When withItems is set the owned item set is
// loaded inside the same transaction.
func (s *LedgerService) lockAccount(ctx context.Context, tx pgx.Tx, studentID string, withItems bool) (*reward.Account, error) {
	account, err := scanAccount(tx.QueryRow(ctx, selectAccountForUpdate, studentID))
	if IsNoRows(err) {
		if _, err := tx.Exec(ctx, insertAccount, studentID); err != nil {
			return nil, err
		}
		account, err = scanAccount(tx.QueryRow(ctx, selectAccountForUpdate, studentID))
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if withItems {
		rows, err := tx.Query(ctx, `SELECT item_id FROM student_items WHERE student_id = $1`, studentID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var itemID string
			if err := rows.Scan(&itemID); err != nil {
				return nil, err
			}
			account.OwnedItemIDs[itemID] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *LedgerService) saveAccount(ctx context.Context, tx pgx.Tx, account *reward.Account) error {
	tag, err := tx.Exec(ctx, updateAccount,
		account.StudentID,
		account.TicketBalance,
		account.AccrualProgress,
		account.ConsecutiveDuplicates,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return shared.NewDomainError("ledger", "SaveAccount", shared.ErrConcurrentModification,
			fmt.Sprintf("account %s: update affected %d rows", account.StudentID, tag.RowsAffected()))
	}
	return nil
}

func (s *LedgerService) appendEntry(ctx context.Context, tx pgx.Tx, entry reward.Entry) error {
	if err := entry.Validate(); err != nil {
		return retry.Permanent(shared.WrapError("ledger", "AppendEntry",
			shared.ErrInvalidEntity, "entry failed validation", err))
	}
	_, err := tx.Exec(ctx, insertLedgerEntry,
		entry.ID,
		entry.StudentID,
		entry.TicketDelta,
		entry.ItemID,
		string(entry.Cause),
		entry.RecordedAt,
	)
	return err
}

func scanAccount(row pgx.Row) (*reward.Account, error) {
	account := &reward.Account{OwnedItemIDs: make(map[string]struct{})}
	err := row.Scan(
		&account.StudentID,
		&account.TicketBalance,
		&account.AccrualProgress,
		&account.ConsecutiveDuplicates,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}
