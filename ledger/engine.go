package ledger

import (
	"context"
	"database/sql"
	"log"
	"time"

	"keuanganapi/models"

	"github.com/gofrs/uuid"
)

type CreateExpenseInput struct {
	Category  string
	SourceId  string
	DebtId    string
	Note      string
	CreatedAt time.Time
	Amount    float64
}

type UpdateExpenseInput struct {
	Amount   *float64
	SourceId string
	Note     *string
}

// CreateExpense debits the first eligible slot of the funding source and
// inserts the expense, optionally paying down a linked debt, all in one
// transaction. Any failure rolls back everything.
func (e *Engine) CreateExpense(ctx context.Context, userId string, in CreateExpenseInput) (*models.ExpenseMutation, error) {
	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	if _, err := uuid.FromString(in.SourceId); err != nil {
		return nil, ErrSourceNotFound
	}

	tx, err := e.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	var debtId interface{}
	if in.Category == models.CategoryDebt {
		if err := payDownDebt(tx, userId, in.DebtId, in.Amount); err != nil {
			return nil, err
		}
		debtId = in.DebtId
	} else {
		// a debt link only makes sense on Debt-category rows; drop it so
		// the response matches what is stored
		in.DebtId = ""
	}

	locked, err := lockSources(tx, userId, in.SourceId)
	if err != nil {
		return nil, err
	}
	source := locked[in.SourceId]

	holder, ok := pickSlot(source, in.Amount)
	if !ok {
		return nil, ErrInsufficientFunds
	}

	if err := applyDelta(tx, source, holder, -in.Amount); err != nil {
		return nil, err
	}

	expense := models.Expense{
		Id:        uuid.Must(uuid.NewV4()).String(),
		UserId:    userId,
		Category:  in.Category,
		Amount:    in.Amount,
		SourceId:  in.SourceId,
		DebtId:    in.DebtId,
		Note:      in.Note,
		CreatedAt: in.CreatedAt,
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	expense.UpdatedAt = expense.CreatedAt

	if _, err := tx.Exec(`
		INSERT INTO expenses
		(id, user_id, category, amount, source_id, debt_id, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, expense.Id, userId, expense.Category, expense.Amount, expense.SourceId,
		debtId, expense.Note, expense.CreatedAt); err != nil {
		log.Println(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ExpenseMutation{Expense: expense, Balances: source.balances}, nil
}

// UpdateExpense restores the old amount to the current source, then
// debits the effective new amount from the effective target source. The
// restore must land somewhere; if every slot is untracked or zero the
// ledger is corrupt and the whole update is refused.
func (e *Engine) UpdateExpense(ctx context.Context, userId, expenseId string, in UpdateExpenseInput) (*models.ExpenseMutation, error) {
	if _, err := uuid.FromString(expenseId); err != nil {
		return nil, ErrExpenseNotFound
	}

	tx, err := e.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	expense := models.Expense{Id: expenseId, UserId: userId}
	err = tx.QueryRow(`
		SELECT category, amount, source_id, COALESCE(debt_id::text, ''), note, created_at
		FROM expenses
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, expenseId, userId).Scan(&expense.Category, &expense.Amount, &expense.SourceId,
		&expense.DebtId, &expense.Note, &expense.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}

	targetId := expense.SourceId
	if in.SourceId != "" {
		if _, err := uuid.FromString(in.SourceId); err != nil {
			return nil, ErrSourceNotFound
		}
		targetId = in.SourceId
	}

	locked, err := lockSources(tx, userId, expense.SourceId, targetId)
	if err != nil {
		return nil, err
	}
	current, target := locked[expense.SourceId], locked[targetId]

	restoreTo, ok := pickRestoreSlot(current)
	if !ok {
		return nil, ErrCorruptBalanceState
	}
	if err := applyDelta(tx, current, restoreTo, expense.Amount); err != nil {
		return nil, err
	}

	newAmount := expense.Amount
	if in.Amount != nil {
		newAmount = *in.Amount
	}
	if !validAmount(newAmount) {
		return nil, ErrInvalidAmount
	}

	holder, ok := pickSlot(target, newAmount)
	if !ok {
		return nil, ErrInsufficientFunds
	}
	if err := applyDelta(tx, target, holder, -newAmount); err != nil {
		return nil, err
	}

	expense.Amount = newAmount
	expense.SourceId = targetId
	if in.Note != nil {
		expense.Note = *in.Note
	}
	expense.UpdatedAt = time.Now()

	if _, err := tx.Exec(`
		UPDATE expenses
		SET amount = $1, source_id = $2, note = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`, expense.Amount, expense.SourceId, expense.Note, expenseId); err != nil {
		log.Println(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ExpenseMutation{Expense: expense, Balances: target.balances}, nil
}

// DeleteExpense refunds the source and, for debt payments, re-raises the
// remaining debt, then removes the expense row.
func (e *Engine) DeleteExpense(ctx context.Context, userId, expenseId string) (*models.ExpenseMutation, error) {
	if _, err := uuid.FromString(expenseId); err != nil {
		return nil, ErrExpenseNotFound
	}

	tx, err := e.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	expense := models.Expense{Id: expenseId, UserId: userId}
	err = tx.QueryRow(`
		SELECT category, amount, source_id, COALESCE(debt_id::text, ''), note, created_at
		FROM expenses
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, expenseId, userId).Scan(&expense.Category, &expense.Amount, &expense.SourceId,
		&expense.DebtId, &expense.Note, &expense.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}

	// debt row locked before source rows, same order as every operation
	var remaining float64
	undoDebt := expense.Category == models.CategoryDebt && expense.DebtId != ""
	if undoDebt {
		err = tx.QueryRow(`
			SELECT remaining_amount FROM debts
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, expense.DebtId, userId).Scan(&remaining)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrDebtNotFound
			}
			return nil, err
		}
	}

	locked, err := lockSources(tx, userId, expense.SourceId)
	if err != nil {
		return nil, err
	}
	source := locked[expense.SourceId]

	restoreTo, ok := pickRestoreSlot(source)
	if !ok {
		return nil, ErrCorruptBalanceState
	}
	if err := applyDelta(tx, source, restoreTo, expense.Amount); err != nil {
		return nil, err
	}

	if undoDebt {
		newRemaining := remaining + expense.Amount
		status := models.DebtStatusUnpaid
		if newRemaining == 0 {
			status = models.DebtStatusPaid
		}
		if _, err := tx.Exec(`
			UPDATE debts
			SET remaining_amount = $1, status = $2, updated_at = CURRENT_TIMESTAMP
			WHERE id = $3
		`, newRemaining, status, expense.DebtId); err != nil {
			log.Println(err)
			return nil, err
		}
	}

	if _, err := tx.Exec(`DELETE FROM expenses WHERE id = $1`, expenseId); err != nil {
		log.Println(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ExpenseMutation{Expense: expense, Balances: source.balances}, nil
}

// PayDebt is CreateExpense with the Debt category as a named affordance.
// With mirroring enabled and a partner source linked, the same debit is
// applied to the partner inside the same transaction, so both household
// views of the money stay consistent.
func (e *Engine) PayDebt(ctx context.Context, userId string, req models.PayDebtRequest) (*models.ExpenseMutation, error) {
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}
	if _, err := uuid.FromString(req.SourceId); err != nil {
		return nil, ErrSourceNotFound
	}

	tx, err := e.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	if err := payDownDebt(tx, userId, req.DebtId, req.Amount); err != nil {
		return nil, err
	}

	// Partner id is read without a lock so both sources can then be
	// locked together in ascending id order.
	partnerId := ""
	if e.MirrorPartner {
		err = tx.QueryRow(`
			SELECT COALESCE(partner_id::text, '') FROM sources
			WHERE id = $1 AND user_id = $2
		`, req.SourceId, userId).Scan(&partnerId)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrSourceNotFound
			}
			return nil, err
		}
	}

	locked, err := lockSources(tx, userId, req.SourceId, partnerId)
	if err != nil {
		return nil, err
	}
	source := locked[req.SourceId]

	holder, ok := pickSlot(source, req.Amount)
	if !ok {
		return nil, ErrInsufficientFunds
	}
	if err := applyDelta(tx, source, holder, -req.Amount); err != nil {
		return nil, err
	}

	if partnerId != "" && partnerId != req.SourceId {
		partner := locked[partnerId]
		mirrorTo, ok := pickSlot(partner, req.Amount)
		if !ok {
			return nil, ErrInsufficientFunds
		}
		if err := applyDelta(tx, partner, mirrorTo, -req.Amount); err != nil {
			return nil, err
		}
	}

	expense := models.Expense{
		Id:        uuid.Must(uuid.NewV4()).String(),
		UserId:    userId,
		Category:  models.CategoryDebt,
		Amount:    req.Amount,
		SourceId:  req.SourceId,
		DebtId:    req.DebtId,
		Note:      req.Note,
		CreatedAt: time.Now(),
	}
	expense.UpdatedAt = expense.CreatedAt

	if _, err := tx.Exec(`
		INSERT INTO expenses
		(id, user_id, category, amount, source_id, debt_id, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, expense.Id, userId, expense.Category, expense.Amount, expense.SourceId,
		expense.DebtId, expense.Note, expense.CreatedAt); err != nil {
		log.Println(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ExpenseMutation{Expense: expense, Balances: source.balances}, nil
}

// payDownDebt locks the debt row, checks the payment fits, and lowers the
// remaining amount. Paid exactly when the remainder hits zero.
func payDownDebt(tx *sql.Tx, userId, debtId string, amount float64) error {
	if _, err := uuid.FromString(debtId); err != nil {
		return ErrDebtNotFound
	}

	var remaining float64
	err := tx.QueryRow(`
		SELECT remaining_amount FROM debts
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, debtId, userId).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrDebtNotFound
		}
		return err
	}

	if amount > remaining {
		return ErrAmountExceedsDebt
	}

	newRemaining := remaining - amount
	status := models.DebtStatusUnpaid
	if newRemaining == 0 {
		status = models.DebtStatusPaid
	}

	if _, err := tx.Exec(`
		UPDATE debts
		SET remaining_amount = $1, status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, newRemaining, status, debtId); err != nil {
		log.Println(err)
		return err
	}

	return nil
}
