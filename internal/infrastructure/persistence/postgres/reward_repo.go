package postgres

import (
	"context"
	"fmt"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// AccountRepo implements reward.AccountRepository. Reads never lock rows;
// mutation stays with the LedgerService.
type AccountRepo struct {
	conn *Connection
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo(conn *Connection) *AccountRepo {
	return &AccountRepo{conn: conn}
}

const selectAccount = `
	SELECT student_id, ticket_balance, accrual_progress, consecutive_duplicates,
	       version, created_at, updated_at
	FROM reward_accounts
	WHERE student_id = $1`

// GetByStudent implements reward.AccountRepository.
func (r *AccountRepo) GetByStudent(ctx context.Context, studentID string) (*reward.Account, error) {
	account, err := scanAccount(r.conn.QueryRow(ctx, selectAccount, studentID))
	if IsNoRows(err) {
		return nil, shared.WrapError("reward", "GetByStudent", shared.ErrNotFound,
			fmt.Sprintf("student %s", studentID), reward.ErrAccountNotFound)
	}
	if err != nil {
		return nil, shared.WrapError("reward", "GetByStudent", shared.ErrTransientFailure,
			fmt.Sprintf("student %s", studentID), err)
	}

	rows, err := r.conn.Query(ctx, `SELECT item_id FROM student_items WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, shared.WrapError("reward", "GetByStudent", shared.ErrTransientFailure,
			fmt.Sprintf("items for student %s", studentID), err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("scan item for %s: %w", studentID, err)
		}
		account.OwnedItemIDs[itemID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items for %s: %w", studentID, err)
	}
	return account, nil
}

// Exists implements reward.AccountRepository.
func (r *AccountRepo) Exists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reward_accounts WHERE student_id = $1)`, studentID,
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("reward", "Exists", shared.ErrTransientFailure,
			fmt.Sprintf("student %s", studentID), err)
	}
	return exists, nil
}

// LedgerRepo implements reward.LedgerRepository over the append-only
// reward_ledger table.
type LedgerRepo struct {
	conn *Connection
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(conn *Connection) *LedgerRepo {
	return &LedgerRepo{conn: conn}
}

// ListByStudent implements reward.LedgerRepository.
func (r *LedgerRepo) ListByStudent(ctx context.Context, studentID string, opts reward.ListOptions) ([]reward.Entry, error) {
	query := `
		SELECT id, student_id, ticket_delta, COALESCE(item_id, ''), cause, recorded_at
		FROM reward_ledger
		WHERE student_id = $1`
	args := []any{studentID}

	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		query += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	query += " ORDER BY recorded_at DESC, id DESC"
	args = append(args, opts.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapError("ledger", "ListByStudent", shared.ErrTransientFailure,
			fmt.Sprintf("student %s", studentID), err)
	}
	defer rows.Close()

	entries := make([]reward.Entry, 0, opts.Limit)
	for rows.Next() {
		var entry reward.Entry
		var cause string
		if err := rows.Scan(&entry.ID, &entry.StudentID, &entry.TicketDelta,
			&entry.ItemID, &cause, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.Cause = reward.Cause(cause)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger for %s: %w", studentID, err)
	}
	return entries, nil
}

// CountByStudent implements reward.LedgerRepository.
func (r *LedgerRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM reward_ledger WHERE student_id = $1`, studentID,
	).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("ledger", "CountByStudent", shared.ErrTransientFailure,
			fmt.Sprintf("student %s", studentID), err)
	}
	return count, nil
}
