package rekap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"keuanganapi/models"

	"github.com/gofrs/uuid"
)

var dateFormat = "2006-01-02"

// ErrNoRecords means the window held nothing to roll up. The scheduler
// records it as a failed run, matching the live API behaviour (404).
var ErrNoRecords = errors.New("no-records-in-period")

// Aggregator copies live records into immutable period rollups. It never
// mutates or deletes the records it reads; re-running a period appends
// another snapshot row, preserving the audit history of repeated runs.
type Aggregator struct {
	Db  *sql.DB
	Loc *time.Location
}

func NewAggregator(db *sql.DB, loc *time.Location) *Aggregator {
	return &Aggregator{Db: db, Loc: loc}
}

// SnapshotExpenses sums expense amounts created inside the period and
// archives the rows verbatim.
func (a *Aggregator) SnapshotExpenses(ctx context.Context, userId string, p Period) (*models.Rekap, error) {
	tx, err := a.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id, category, amount, source_id, COALESCE(debt_id::text, ''), note, created_at, updated_at
		FROM expenses
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, userId, p.Start, p.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var expenses []models.Expense
	total := 0.0
	for rows.Next() {
		expense := models.Expense{UserId: userId}
		if err := rows.Scan(&expense.Id, &expense.Category, &expense.Amount,
			&expense.SourceId, &expense.DebtId, &expense.Note,
			&expense.CreatedAt, &expense.UpdatedAt); err != nil {
			return nil, err
		}
		total += expense.Amount
		expenses = append(expenses, expense)
	}

	if len(expenses) == 0 {
		return nil, ErrNoRecords
	}

	payload, err := json.Marshal(expenses)
	if err != nil {
		return nil, err
	}

	rekap, err := a.insert(tx, "rekap_expenses", userId, p, total, payload)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return rekap, nil
}

// SnapshotIncomes sums the nominal totals of sources created inside the
// period. Balances are live state, not income records, so the archive
// copies only the source fields.
func (a *Aggregator) SnapshotIncomes(ctx context.Context, userId string, p Period) (*models.Rekap, error) {
	tx, err := a.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id, category, person, item, status, total, note, created_at, updated_at
		FROM sources
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, userId, p.Start, p.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var sources []models.Source
	total := 0.0
	for rows.Next() {
		source := models.Source{UserId: userId}
		if err := rows.Scan(&source.Id, &source.Category, &source.Person,
			&source.Item, &source.Status, &source.Total, &source.Note,
			&source.CreatedAt, &source.UpdatedAt); err != nil {
			return nil, err
		}
		total += source.Total
		sources = append(sources, source)
	}

	if len(sources) == 0 {
		return nil, ErrNoRecords
	}

	payload, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}

	rekap, err := a.insert(tx, "rekap_incomes", userId, p, total, payload)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return rekap, nil
}

func (a *Aggregator) insert(tx *sql.Tx, table, userId string, p Period, total float64, payload []byte) (*models.Rekap, error) {
	rekap := &models.Rekap{
		Id:          uuid.Must(uuid.NewV4()).String(),
		UserId:      userId,
		PeriodType:  p.Type,
		PeriodStart: p.Start.Format(dateFormat),
		PeriodEnd:   p.End.Format(dateFormat),
		TotalAmount: total,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}

	if _, err := tx.Exec(`
		INSERT INTO `+table+`
		(id, user_id, period_type, period_start, period_end, total_amount, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
	`, rekap.Id, userId, rekap.PeriodType, rekap.PeriodStart, rekap.PeriodEnd,
		rekap.TotalAmount, rekap.Payload); err != nil {
		log.Println(err)
		return nil, err
	}

	return rekap, nil
}
