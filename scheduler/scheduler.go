package scheduler

import (
	"context"
	"database/sql"
	"log"
	"time"

	"keuanganapi/models"
	"keuanganapi/rekap"

	"github.com/robfig/cron/v3"
)

// Worker drives the periodic rekap runs. It goes through the same
// aggregator the HTTP layer uses and keeps its own audit trail in
// cron_logs; one user's failure never stops the batch.
type Worker struct {
	Db    *sql.DB
	Rekap *rekap.Aggregator
	Loc   *time.Location
	cron  *cron.Cron
}

func New(db *sql.DB, agg *rekap.Aggregator, loc *time.Location) *Worker {
	return &Worker{Db: db, Rekap: agg, Loc: loc}
}

// Start registers the three cadences: end of every day, end of every
// Sunday, and the first minute of every month.
func (w *Worker) Start() {
	w.cron = cron.New(cron.WithLocation(w.Loc))

	w.cron.AddFunc("59 23 * * *", func() { w.Run(models.RekapDaily) })
	w.cron.AddFunc("59 23 * * 0", func() { w.Run(models.RekapWeekly) })
	w.cron.AddFunc("0 0 1 * *", func() { w.Run(models.RekapMonthly) })

	w.cron.Start()
	log.Println("rekap scheduler started")
}

func (w *Worker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// Run snapshots expenses and incomes for every active user.
func (w *Worker) Run(kind string) {
	period := w.periodFor(kind, time.Now().In(w.Loc))

	rows, err := w.Db.Query(`SELECT id FROM users WHERE NOT deleted`)
	if err != nil {
		log.Println(err)
		return
	}

	defer rows.Close()

	var userIds []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.Println(err)
			return
		}
		userIds = append(userIds, id)
	}

	for _, userId := range userIds {
		if err := w.snapshotUser(userId, period); err != nil {
			log.Printf("rekap %s failed for user %s: %v", kind, userId, err)
			w.logRun(kind, "failed", err.Error(), userId)
			continue
		}

		w.logRun(kind, "success", "rekap "+kind+" success", userId)
	}
}

func (w *Worker) snapshotUser(userId string, period rekap.Period) error {
	ctx := context.Background()

	if _, err := w.Rekap.SnapshotExpenses(ctx, userId, period); err != nil && err != rekap.ErrNoRecords {
		return err
	}
	if _, err := w.Rekap.SnapshotIncomes(ctx, userId, period); err != nil && err != rekap.ErrNoRecords {
		return err
	}

	return nil
}

// periodFor maps a cadence to its window. The monthly job fires on the
// 1st, so it rolls up the month that just ended, not the one starting.
func (w *Worker) periodFor(kind string, now time.Time) rekap.Period {
	switch kind {
	case models.RekapWeekly:
		return rekap.WeeklyPeriod(now)
	case models.RekapMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, w.Loc)
		previous := first.AddDate(0, -1, 0)
		return rekap.MonthlyPeriod(previous.Month(), previous.Year(), w.Loc)
	}
	return rekap.DailyPeriod(now, now)
}

func (w *Worker) logRun(kind, status, message, userId string) {
	if _, err := w.Db.Exec(`
		INSERT INTO cron_logs (type, status, message, user_id, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	`, kind, status, message, userId); err != nil {
		log.Println(err)
	}
}
