package controllers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"keuanganapi/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/lib/pq"
)

func (api *API) GetSources(c *gin.Context) {
	u := ParsePayload(c)
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	order := c.Query("order")
	orderBy := c.Query("order_by")

	filter := models.Source{
		UserId:   u.Id,
		Category: c.Query("category"),
		Person:   c.Query("person"),
		Item:     c.Query("item"),
		Status:   c.Query("status"),
	}

	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = 20
	}

	if strings.ToUpper(order) != "ASC" && strings.ToUpper(order) != "DESC" {
		order = "DESC"
	}

	mapOrderBy := map[string]string{
		"id":         "id",
		"category":   "category",
		"person":     "person",
		"item":       "item",
		"status":     "status",
		"total":      "total",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}

	if val, ok := mapOrderBy[orderBy]; ok {
		orderBy = val
	} else {
		orderBy = "created_at"
	}

	countQ := `SELECT COUNT(1) FROM sources WHERE user_id = $1`
	selectQ := `SELECT
			id, user_id, category, person, item, status, total, note,
			COALESCE(partner_id::text, ''), created_at, updated_at
		FROM sources
		WHERE user_id = $1`

	filterQ, stms := getFilterSource(filter, c.Query("min_date"), c.Query("max_date"))

	selectQ = selectQ + filterQ
	countQ = countQ + filterQ

	offset := (page - 1) * limit
	pagination := fmt.Sprintf(" LIMIT %d OFFSET %d ", limit, offset)
	orderVal := fmt.Sprintf(" ORDER BY %s %s", orderBy, order)

	rows, err := api.Db.Query(selectQ+orderVal+pagination, stms...)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	var sources []models.Source
	var ids []string

	for rows.Next() {
		var source models.Source

		err = rows.Scan(&source.Id, &source.UserId, &source.Category, &source.Person,
			&source.Item, &source.Status, &source.Total, &source.Note,
			&source.PartnerId, &source.CreatedAt, &source.UpdatedAt)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		sources = append(sources, source)
		ids = append(ids, source.Id)
	}

	if err := api.attachBalances(sources, ids); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var sourceList models.SourceList
	sourceList.Total, err = api.GetTotal(countQ, stms)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	sourceList.Sources = sources
	sourceList.Limit = limit
	sourceList.Page = page

	c.JSON(http.StatusOK, sourceList)
}

// attachBalances loads the balance rows for one page of sources and fills
// the derived display amount.
func (api *API) attachBalances(sources []models.Source, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := api.Db.Query(`
		SELECT source_id, holder, amount
		FROM source_balances
		WHERE source_id = ANY($1)
		ORDER BY source_id, CASE holder WHEN 'husband' THEN 1 WHEN 'wife' THEN 2 ELSE 3 END
	`, pq.Array(ids))
	if err != nil {
		return err
	}

	defer rows.Close()

	byId := map[string][]models.Balance{}
	for rows.Next() {
		var sourceId string
		var balance models.Balance

		if err := rows.Scan(&sourceId, &balance.Holder, &balance.Amount); err != nil {
			return err
		}

		byId[sourceId] = append(byId[sourceId], balance)
	}

	for i := range sources {
		sources[i].Balances = byId[sources[i].Id]
		sources[i].ComputeDisplay()
	}

	return nil
}

func (api *API) CreateSource(c *gin.Context) {
	u := ParsePayload(c)

	var req models.UpsertSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	source, err := api.Ledger.CreateSource(c.Request.Context(), u.Id, req)
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, source)
}

func (api *API) GetSource(c *gin.Context) {
	u := ParsePayload(c)

	source, err := api.Ledger.GetSource(c.Request.Context(), u.Id, c.Param("id"))
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, source)
}

// UpdateSource changes tags, note and the nominal total. Balance slots
// move only through the ledger (expenses) or the adjust endpoint.
func (api *API) UpdateSource(c *gin.Context) {
	u := ParsePayload(c)
	id := c.Param("id")

	if _, err := uuid.FromString(id); err != nil {
		sendError(c, http.StatusNotFound, "source-not-found")
		return
	}

	var req models.UpsertSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	total := sql.NullFloat64{}
	if req.Total != nil {
		total = sql.NullFloat64{Float64: *req.Total, Valid: true}
	}

	tag, err := api.Db.Exec(`
		UPDATE sources
		SET category = COALESCE(NULLIF($1, ''), category),
			person = COALESCE(NULLIF($2, ''), person),
			item = COALESCE(NULLIF($3, ''), item),
			status = COALESCE(NULLIF($4, ''), status),
			note = COALESCE(NULLIF($5, ''), note),
			total = COALESCE($6, total),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $7 AND user_id = $8
	`, req.Category, req.Person, req.Item, req.Status, req.Note, total, id, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if n, _ := tag.RowsAffected(); n == 0 {
		sendError(c, http.StatusNotFound, "source-not-found")
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) AdjustSource(c *gin.Context) {
	u := ParsePayload(c)

	var req models.AdjustSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Deltas) == 0 {
		sendError(c, http.StatusBadRequest, "missing-deltas")
		return
	}

	balances, err := api.Ledger.AdjustSource(c.Request.Context(), u.Id, c.Param("id"), req.Deltas)
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

func (api *API) DeleteSource(c *gin.Context) {
	u := ParsePayload(c)
	id := c.Param("id")

	if _, err := uuid.FromString(id); err != nil {
		sendError(c, http.StatusNotFound, "source-not-found")
		return
	}

	var inUse bool
	if err := api.Db.QueryRow("SELECT EXISTS(SELECT 1 FROM expenses WHERE source_id = $1 AND user_id = $2)", id, u.Id).Scan(&inUse); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if inUse {
		sendError(c, http.StatusBadRequest, "source-in-use")
		return
	}

	tx, err := api.Db.Begin()
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM source_balances WHERE source_id = $1`, id); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	tag, err := tx.Exec(`DELETE FROM sources WHERE id = $1 AND user_id = $2`, id, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if n, _ := tag.RowsAffected(); n == 0 {
		sendError(c, http.StatusNotFound, "source-not-found")
		return
	}

	if err := tx.Commit(); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func getFilterSource(filter models.Source, minDate, maxDate string) (filterQ string, stms []interface{}) {
	stms = append(stms, filter.UserId)

	if filter.Category != "" {
		filterQ += fmt.Sprintf(" AND category = $%d", len(stms)+1)
		stms = append(stms, filter.Category)
	}

	if filter.Person != "" {
		filterQ += fmt.Sprintf(" AND person = $%d", len(stms)+1)
		stms = append(stms, filter.Person)
	}

	if filter.Item != "" {
		filterQ += fmt.Sprintf(" AND item ILIKE $%d", len(stms)+1)
		stms = append(stms, "%"+filter.Item+"%")
	}

	if filter.Status != "" {
		filterQ += fmt.Sprintf(" AND status = $%d", len(stms)+1)
		stms = append(stms, filter.Status)
	}

	if date, err := time.Parse(dateFormat, minDate); err == nil {
		filterQ += fmt.Sprintf(" AND created_at >= $%d", len(stms)+1)
		stms = append(stms, date)
	}

	if date, err := time.Parse(dateFormat, maxDate); err == nil {
		filterQ += fmt.Sprintf(" AND created_at <= $%d", len(stms)+1)
		stms = append(stms, date)
	}

	return
}
