package ledger

import (
	"context"
	"database/sql"
	"log"
	"math"
	"sort"
	"time"

	"keuanganapi/models"

	"github.com/gofrs/uuid"
	"github.com/lib/pq"
)

var dateFormat = "2006-01-02"

// Engine owns every operation that moves money between sources, expenses
// and debts. The store handle is injected, never a package global.
type Engine struct {
	Db *sql.DB

	// MirrorPartner enables dual-holder mirroring: debt payments from a
	// source with a linked partner are debited on the partner as well.
	MirrorPartner bool
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{Db: db}
}

type lockedSource struct {
	id        string
	partnerId string
	balances  []models.Balance
}

// lockSources acquires row locks on the given sources and their balance
// rows. Sources are locked in ascending id order so two operations
// touching the same pair can never lock them in opposite orders. Balance
// rows come back in first-fit precedence: husband, wife, unmarried.
func lockSources(tx *sql.Tx, userId string, ids ...string) (map[string]*lockedSource, error) {
	seen := map[string]bool{}
	var uniq []string
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	rows, err := tx.Query(`
		SELECT id, COALESCE(partner_id::text, '')
		FROM sources
		WHERE id = ANY($1) AND user_id = $2
		ORDER BY id
		FOR UPDATE
	`, pq.Array(uniq), userId)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	locked := map[string]*lockedSource{}
	for rows.Next() {
		ls := &lockedSource{}
		if err := rows.Scan(&ls.id, &ls.partnerId); err != nil {
			return nil, err
		}
		locked[ls.id] = ls
	}

	if len(locked) != len(uniq) {
		return nil, ErrSourceNotFound
	}

	balanceRows, err := tx.Query(`
		SELECT source_id, holder, amount
		FROM source_balances
		WHERE source_id = ANY($1)
		ORDER BY source_id, CASE holder WHEN 'husband' THEN 1 WHEN 'wife' THEN 2 ELSE 3 END
		FOR UPDATE
	`, pq.Array(uniq))
	if err != nil {
		return nil, err
	}

	defer balanceRows.Close()

	for balanceRows.Next() {
		var sourceId string
		var balance models.Balance

		if err := balanceRows.Scan(&sourceId, &balance.Holder, &balance.Amount); err != nil {
			return nil, err
		}

		locked[sourceId].balances = append(locked[sourceId].balances, balance)
	}

	return locked, nil
}

// pickSlot is the first-fit funding rule: the first tracked slot whose
// amount covers the debit. Untracked slots have no row and are skipped;
// a zero row is "tracked but exhausted" and only covers a zero debit.
func pickSlot(ls *lockedSource, amount float64) (models.Holder, bool) {
	for _, b := range ls.balances {
		if b.Amount >= amount {
			return b.Holder, true
		}
	}
	return "", false
}

// pickRestoreSlot is the reverse rule used when a debit is undone: the
// first tracked slot holding a nonzero amount absorbs the refund.
func pickRestoreSlot(ls *lockedSource) (models.Holder, bool) {
	for _, b := range ls.balances {
		if b.Amount != 0 {
			return b.Holder, true
		}
	}
	return "", false
}

// applyDelta mutates both the balance row and the in-memory copy, so a
// later pick against the same locked source sees the new amounts.
func applyDelta(tx *sql.Tx, ls *lockedSource, holder models.Holder, delta float64) error {
	if _, err := tx.Exec(`
		UPDATE source_balances SET amount = amount + $1
		WHERE source_id = $2 AND holder = $3
	`, delta, ls.id, string(holder)); err != nil {
		return err
	}

	for i := range ls.balances {
		if ls.balances[i].Holder == holder {
			ls.balances[i].Amount += delta
		}
	}

	return nil
}

func validAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}

// CreateSource inserts an income source plus one balance row per holder
// amount present in the request. Absent amounts create no row at all.
func (e *Engine) CreateSource(ctx context.Context, userId string, req models.UpsertSourceRequest) (*models.Source, error) {
	source := &models.Source{
		Id:        uuid.Must(uuid.NewV4()).String(),
		UserId:    userId,
		Category:  req.Category,
		Person:    req.Person,
		Item:      req.Item,
		Status:    req.Status,
		Note:      req.Note,
		PartnerId: req.PartnerId,
	}

	if req.Total != nil {
		source.Total = *req.Total
	}

	amounts := map[models.Holder]*float64{
		models.HolderHusband:   req.Husband,
		models.HolderWife:      req.Wife,
		models.HolderUnmarried: req.Unmarried,
	}

	for _, holder := range models.HolderOrder {
		amount := amounts[holder]
		if amount == nil {
			continue
		}
		if math.IsNaN(*amount) || math.IsInf(*amount, 0) || *amount < 0 {
			return nil, ErrInvalidAmount
		}
		source.Balances = append(source.Balances, models.Balance{Holder: holder, Amount: *amount})
	}

	var partnerId interface{}
	if source.PartnerId != "" {
		if _, err := uuid.FromString(source.PartnerId); err != nil {
			return nil, ErrSourceNotFound
		}
		partnerId = source.PartnerId
	}

	createdAt := time.Now()
	if req.CreatedAt != "" {
		parsed, err := time.Parse(dateFormat, req.CreatedAt)
		if err != nil {
			return nil, ErrInvalidDate
		}
		createdAt = parsed
	}
	source.CreatedAt = createdAt
	source.UpdatedAt = createdAt

	tx, err := e.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sources
		(id, user_id, category, person, item, status, total, note, partner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, source.Id, userId, source.Category, source.Person, source.Item, source.Status,
		source.Total, source.Note, partnerId, createdAt); err != nil {
		log.Println(err)
		return nil, err
	}

	for _, balance := range source.Balances {
		if _, err := tx.Exec(`
			INSERT INTO source_balances (source_id, holder, amount)
			VALUES ($1, $2, $3)
		`, source.Id, string(balance.Holder), balance.Amount); err != nil {
			log.Println(err)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	source.ComputeDisplay()

	return source, nil
}

// GetSource is a plain owner-scoped point lookup, no locks.
func (e *Engine) GetSource(ctx context.Context, userId, id string) (*models.Source, error) {
	if _, err := uuid.FromString(id); err != nil {
		return nil, ErrSourceNotFound
	}

	source := &models.Source{}
	err := e.Db.QueryRowContext(ctx, `
		SELECT id, user_id, category, person, item, status, total, note,
			COALESCE(partner_id::text, ''), created_at, updated_at
		FROM sources
		WHERE id = $1 AND user_id = $2
	`, id, userId).Scan(&source.Id, &source.UserId, &source.Category, &source.Person,
		&source.Item, &source.Status, &source.Total, &source.Note,
		&source.PartnerId, &source.CreatedAt, &source.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}

	rows, err := e.Db.QueryContext(ctx, `
		SELECT holder, amount
		FROM source_balances
		WHERE source_id = $1
		ORDER BY CASE holder WHEN 'husband' THEN 1 WHEN 'wife' THEN 2 ELSE 3 END
	`, id)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var balance models.Balance
		if err := rows.Scan(&balance.Holder, &balance.Amount); err != nil {
			return nil, err
		}
		source.Balances = append(source.Balances, balance)
	}

	source.ComputeDisplay()

	return source, nil
}

// AdjustSource applies signed deltas to balance slots inside one
// transaction. A positive delta on an untracked slot starts tracking it;
// any delta that would leave a slot negative fails the whole adjustment.
func (e *Engine) AdjustSource(ctx context.Context, userId, id string, deltas map[models.Holder]float64) ([]models.Balance, error) {
	if _, err := uuid.FromString(id); err != nil {
		return nil, ErrSourceNotFound
	}

	tx, err := e.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	locked, err := lockSources(tx, userId, id)
	if err != nil {
		return nil, err
	}
	ls := locked[id]

	for _, holder := range models.HolderOrder {
		delta, ok := deltas[holder]
		if !ok || delta == 0 {
			continue
		}
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return nil, ErrInvalidAmount
		}

		tracked := false
		for _, b := range ls.balances {
			if b.Holder == holder {
				tracked = true
				break
			}
		}

		if !tracked {
			if delta < 0 {
				return nil, ErrInsufficientBalance
			}
			if _, err := tx.Exec(`
				INSERT INTO source_balances (source_id, holder, amount)
				VALUES ($1, $2, $3)
			`, id, string(holder), delta); err != nil {
				return nil, err
			}
			ls.balances = append(ls.balances, models.Balance{Holder: holder, Amount: delta})
			continue
		}

		current := 0.0
		for _, b := range ls.balances {
			if b.Holder == holder {
				current = b.Amount
			}
		}
		if current+delta < 0 {
			return nil, ErrInsufficientBalance
		}

		if err := applyDelta(tx, ls, holder, delta); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(`
		UPDATE sources SET updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sortBalances(ls.balances)

	return ls.balances, nil
}

func sortBalances(balances []models.Balance) {
	rank := map[models.Holder]int{
		models.HolderHusband:   1,
		models.HolderWife:      2,
		models.HolderUnmarried: 3,
	}
	sort.SliceStable(balances, func(i, j int) bool {
		return rank[balances[i].Holder] < rank[balances[j].Holder]
	})
}
