package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"keuanganapi/models"
	"keuanganapi/rekap"

	"github.com/gin-gonic/gin"
)

// RunExpenseRekap archives the caller's expenses for the requested
// period. Repeated runs append new snapshot rows on purpose.
func (api *API) RunExpenseRekap(c *gin.Context) {
	u := ParsePayload(c)

	period, ok := api.parseRekapPeriod(c)
	if !ok {
		return
	}

	snapshot, err := api.Rekap.SnapshotExpenses(c.Request.Context(), u.Id, period)
	if err != nil {
		if err == rekap.ErrNoRecords {
			sendError(c, http.StatusNotFound, err.Error())
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

func (api *API) RunIncomeRekap(c *gin.Context) {
	u := ParsePayload(c)

	period, ok := api.parseRekapPeriod(c)
	if !ok {
		return
	}

	snapshot, err := api.Rekap.SnapshotIncomes(c.Request.Context(), u.Id, period)
	if err != nil {
		if err == rekap.ErrNoRecords {
			sendError(c, http.StatusNotFound, err.Error())
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

func (api *API) parseRekapPeriod(c *gin.Context) (rekap.Period, bool) {
	var req models.RunRekapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return rekap.Period{}, false
	}

	switch req.Kind {
	case models.RekapDaily:
		start, err := time.ParseInLocation(dateFormat, req.StartDate, api.Rekap.Loc)
		if err != nil {
			sendError(c, http.StatusBadRequest, "invalid-start-date(yyyy-mm-dd)")
			return rekap.Period{}, false
		}
		end, err := time.ParseInLocation(dateFormat, req.EndDate, api.Rekap.Loc)
		if err != nil {
			sendError(c, http.StatusBadRequest, "invalid-end-date(yyyy-mm-dd)")
			return rekap.Period{}, false
		}
		if end.Before(start) {
			sendError(c, http.StatusBadRequest, "end-date-before-start-date")
			return rekap.Period{}, false
		}
		return rekap.DailyPeriod(start, end), true
	case models.RekapWeekly:
		return rekap.WeeklyPeriod(time.Now().In(api.Rekap.Loc)), true
	case models.RekapMonthly:
		if req.Month < 1 || req.Month > 12 || req.Year < 1 {
			sendError(c, http.StatusBadRequest, "invalid-month-or-year")
			return rekap.Period{}, false
		}
		return rekap.MonthlyPeriod(time.Month(req.Month), req.Year, api.Rekap.Loc), true
	}

	sendError(c, http.StatusBadRequest, "invalid-kind")
	return rekap.Period{}, false
}

func (api *API) GetExpenseRekaps(c *gin.Context) {
	api.listRekaps(c, "rekap_expenses")
}

func (api *API) GetIncomeRekaps(c *gin.Context) {
	api.listRekaps(c, "rekap_incomes")
}

func (api *API) listRekaps(c *gin.Context, table string) {
	u := ParsePayload(c)

	q := `SELECT id, user_id, period_type, period_start::text, period_end::text,
			total_amount, payload, created_at
		FROM ` + table + ` WHERE user_id = $1`
	stms := []interface{}{u.Id}

	if kind := c.Query("kind"); kind != "" {
		q += fmt.Sprintf(" AND period_type = $%d", len(stms)+1)
		stms = append(stms, kind)
	}

	month, _ := strconv.Atoi(c.Query("month"))
	year, _ := strconv.Atoi(c.Query("year"))
	if month >= 1 && month <= 12 && year >= 1 {
		q += fmt.Sprintf(" AND EXTRACT(MONTH FROM period_start) = $%d AND EXTRACT(YEAR FROM period_start) = $%d",
			len(stms)+1, len(stms)+2)
		stms = append(stms, month, year)
	}

	q += " ORDER BY created_at DESC"

	rows, err := api.Db.Query(q, stms...)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	var rekaps []models.Rekap
	for rows.Next() {
		var snapshot models.Rekap
		var payload []byte

		err = rows.Scan(&snapshot.Id, &snapshot.UserId, &snapshot.PeriodType,
			&snapshot.PeriodStart, &snapshot.PeriodEnd, &snapshot.TotalAmount,
			&payload, &snapshot.CreatedAt)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		snapshot.Payload = payload
		rekaps = append(rekaps, snapshot)
	}

	if len(rekaps) == 0 {
		sendError(c, http.StatusNotFound, "rekap-not-found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rekaps": rekaps})
}
