package controllers

import (
	"log"
	"net/http"

	"keuanganapi/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

func (api *API) GetDebts(c *gin.Context) {
	u := ParsePayload(c)

	rows, err := api.Db.Query(`
		SELECT id, user_id, remaining_amount, note, status, created_at, updated_at
		FROM debts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	var debts []models.Debt
	for rows.Next() {
		var debt models.Debt

		err = rows.Scan(&debt.Id, &debt.UserId, &debt.RemainingAmount, &debt.Note,
			&debt.Status, &debt.CreatedAt, &debt.UpdatedAt)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		debts = append(debts, debt)
	}

	c.JSON(http.StatusOK, gin.H{"debts": debts})
}

func (api *API) CreateDebt(c *gin.Context) {
	u := ParsePayload(c)

	var req models.UpsertDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Amount <= 0 {
		sendError(c, http.StatusBadRequest, "invalid-amount")
		return
	}

	if req.Note == "" {
		sendError(c, http.StatusBadRequest, "missing-note")
		return
	}

	debt := models.Debt{
		Id:              uuid.Must(uuid.NewV4()).String(),
		UserId:          u.Id,
		RemainingAmount: req.Amount,
		Note:            req.Note,
		Status:          models.DebtStatusUnpaid,
	}

	if err := api.Db.QueryRow(`
		INSERT INTO debts (id, user_id, remaining_amount, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at
	`, debt.Id, u.Id, debt.RemainingAmount, debt.Note, debt.Status).
		Scan(&debt.CreatedAt, &debt.UpdatedAt); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, debt)
}

// UpdateDebt edits the standalone fields of a debt. Paying one down goes
// through PayDebt so the funding source is debited in the same breath.
func (api *API) UpdateDebt(c *gin.Context) {
	u := ParsePayload(c)
	id := c.Param("id")

	if _, err := uuid.FromString(id); err != nil {
		sendError(c, http.StatusNotFound, "debt-not-found")
		return
	}

	var req models.UpsertDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Amount < 0 {
		sendError(c, http.StatusBadRequest, "invalid-amount")
		return
	}

	if req.Note == "" {
		sendError(c, http.StatusBadRequest, "missing-note")
		return
	}

	status := models.DebtStatusUnpaid
	if req.Amount == 0 {
		status = models.DebtStatusPaid
	}

	tag, err := api.Db.Exec(`
		UPDATE debts
		SET remaining_amount = $1, note = $2, status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND user_id = $5
	`, req.Amount, req.Note, status, id, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if n, _ := tag.RowsAffected(); n == 0 {
		sendError(c, http.StatusNotFound, "debt-not-found")
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) DeleteDebt(c *gin.Context) {
	u := ParsePayload(c)
	id := c.Param("id")

	if _, err := uuid.FromString(id); err != nil {
		sendError(c, http.StatusNotFound, "debt-not-found")
		return
	}

	var inUse bool
	if err := api.Db.QueryRow("SELECT EXISTS(SELECT 1 FROM expenses WHERE debt_id = $1 AND user_id = $2)", id, u.Id).Scan(&inUse); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if inUse {
		sendError(c, http.StatusBadRequest, "debt-has-payments")
		return
	}

	tag, err := api.Db.Exec(`DELETE FROM debts WHERE id = $1 AND user_id = $2`, id, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if n, _ := tag.RowsAffected(); n == 0 {
		sendError(c, http.StatusNotFound, "debt-not-found")
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) PayDebt(c *gin.Context) {
	u := ParsePayload(c)

	var req models.PayDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	mutation, err := api.Ledger.PayDebt(c.Request.Context(), u.Id, req)
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mutation)
}
