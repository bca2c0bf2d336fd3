package controllers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"keuanganapi/ledger"
	"keuanganapi/models"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

func (api *API) GetExpenses(c *gin.Context) {
	u := ParsePayload(c)
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	order := c.Query("order")
	orderBy := c.Query("order_by")

	amount, _ := strconv.ParseFloat(c.Query("amount"), 64)
	minAmount, _ := strconv.ParseFloat(c.Query("min_amount"), 64)
	maxAmount, _ := strconv.ParseFloat(c.Query("max_amount"), 64)

	asExcel, _ := strconv.ParseBool(c.Query("export_as_excel"))

	filter := models.ExpenseFilter{
		Expense: models.Expense{
			UserId:   u.Id,
			Category: c.Query("category"),
			SourceId: c.Query("source_id"),
			DebtId:   c.Query("debt_id"),
			Amount:   amount,
		},
		MinDate:   c.Query("min_date"),
		MaxDate:   c.Query("max_date"),
		MinAmount: minAmount,
		MaxAmount: maxAmount,
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
		"amount":     "amount",
		"source_id":  "source_id",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}

	if val, ok := mapOrderBy[orderBy]; ok {
		orderBy = val
	} else {
		orderBy = "created_at"
	}

	countQ := `SELECT COUNT(1) FROM expenses WHERE user_id = $1`
	selectQ := `SELECT
			id, user_id, category, amount, source_id,
			COALESCE(debt_id::text, ''), note, created_at, updated_at
		FROM expenses
		WHERE user_id = $1`

	var expenseList models.ExpenseList
	var expenses []models.Expense
	var err error

	filterQ, stms := getFilterExpense(filter)

	selectQ = selectQ + filterQ
	countQ = countQ + filterQ

	offset := (page - 1) * limit
	pagination := fmt.Sprintf(" LIMIT %d OFFSET %d ", limit, offset)
	orderVal := fmt.Sprintf(" ORDER BY %s %s", orderBy, order)

	if asExcel {
		pagination = ""
	}

	rows, err := api.Db.Query(selectQ+orderVal+pagination, stms...)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	for rows.Next() {
		var expense models.Expense
		var note sql.NullString

		err = rows.Scan(&expense.Id, &expense.UserId, &expense.Category, &expense.Amount,
			&expense.SourceId, &expense.DebtId, &note, &expense.CreatedAt, &expense.UpdatedAt)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		expense.Note = note.String
		expenses = append(expenses, expense)
	}

	if asExcel {
		handleExcelExpenses(c, expenses)
		return
	}

	expenseList.Total, err = api.GetTotal(countQ, stms)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	expenseList.Expenses = expenses
	expenseList.Limit = limit
	expenseList.Page = page

	c.JSON(http.StatusOK, expenseList)
}

// GetDebtExpenses lists only the debt-payment expenses.
func (api *API) GetDebtExpenses(c *gin.Context) {
	u := ParsePayload(c)

	rows, err := api.Db.Query(`
		SELECT id, user_id, category, amount, source_id,
			COALESCE(debt_id::text, ''), note, created_at, updated_at
		FROM expenses
		WHERE user_id = $1 AND category = $2
		ORDER BY created_at DESC
	`, u.Id, models.CategoryDebt)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var expense models.Expense
		var note sql.NullString

		err = rows.Scan(&expense.Id, &expense.UserId, &expense.Category, &expense.Amount,
			&expense.SourceId, &expense.DebtId, &note, &expense.CreatedAt, &expense.UpdatedAt)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		expense.Note = note.String
		expenses = append(expenses, expense)
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (api *API) CreateExpense(c *gin.Context) {
	u := ParsePayload(c)

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	in := ledger.CreateExpenseInput{
		Category: req.Category,
		SourceId: req.SourceId,
		DebtId:   req.DebtId,
		Note:     req.Note,
		Amount:   req.Amount,
	}

	if req.CreatedAt != "" {
		createdAt, err := time.Parse(dateFormat, req.CreatedAt)
		if err != nil {
			sendError(c, http.StatusBadRequest, "invalid-date(yyyy-mm-dd)")
			return
		}
		in.CreatedAt = createdAt
	}

	mutation, err := api.Ledger.CreateExpense(c.Request.Context(), u.Id, in)
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mutation)
}

func (api *API) UpdateExpense(c *gin.Context) {
	u := ParsePayload(c)

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	mutation, err := api.Ledger.UpdateExpense(c.Request.Context(), u.Id, c.Param("id"), ledger.UpdateExpenseInput{
		Amount:   req.Amount,
		SourceId: req.SourceId,
		Note:     req.Note,
	})
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, mutation)
}

func (api *API) DeleteExpense(c *gin.Context) {
	u := ParsePayload(c)

	mutation, err := api.Ledger.DeleteExpense(c.Request.Context(), u.Id, c.Param("id"))
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "expense-deleted-and-amount-restored",
		"balances": mutation.Balances,
	})
}

func handleExcelExpenses(c *gin.Context, expenses []models.Expense) {
	if len(expenses) == 0 {
		sendError(c, http.StatusNotFound, "expenses-not-found")
		return
	}

	f := excelize.NewFile()

	sheet := "List Expenses"
	f.NewSheet(sheet)
	// delete default sheet
	f.DeleteSheet("Sheet1")

	err := f.SetColWidth(sheet, "A", "E", 50)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	headerStyle, err := f.NewStyle(s1)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	dataStyle, err := f.NewStyle(s2)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	streamWriter, err := f.NewStreamWriter(sheet)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err = streamWriter.SetRow("A1", []interface{}{
		excelize.Cell{StyleID: headerStyle, Value: "Category"},
		excelize.Cell{StyleID: headerStyle, Value: "Amount"},
		excelize.Cell{StyleID: headerStyle, Value: "Source"},
		excelize.Cell{StyleID: headerStyle, Value: "Note"},
		excelize.Cell{StyleID: headerStyle, Value: "Date"}}); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	for n, expense := range expenses {
		amountFormatted := strings.ReplaceAll(fmt.Sprintf("Rp %s", humanize.Commaf(expense.Amount)), ",", ".")

		row := make([]interface{}, 5)
		row[0] = excelize.Cell{StyleID: dataStyle, Value: expense.Category}
		row[1] = excelize.Cell{StyleID: dataStyle, Value: amountFormatted}
		row[2] = excelize.Cell{StyleID: dataStyle, Value: expense.SourceId}
		row[3] = excelize.Cell{StyleID: dataStyle, Value: expense.Note}
		row[4] = excelize.Cell{StyleID: dataStyle, Value: expense.CreatedAt.Format(dateFormat)}

		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err = streamWriter.SetRow(cell, row); err != nil {
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if err := streamWriter.Flush(); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	loc, _ := time.LoadLocation("Asia/Jakarta")
	fileName := fmt.Sprintf("report_expenses_%s.xlsx", time.Now().In(loc).Format("20060102_150405"))

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment;filename=\""+fileName+"\"")

	if _, err := f.WriteTo(c.Writer); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

}

func getFilterExpense(filter models.ExpenseFilter) (filterQ string, stms []interface{}) {
	stms = append(stms, filter.UserId)

	if filter.Category != "" {
		filterQ += fmt.Sprintf(" AND category = $%d", len(stms)+1)
		stms = append(stms, filter.Category)
	}

	if _, err := uuid.FromString(filter.SourceId); err == nil {
		filterQ += fmt.Sprintf(" AND source_id = $%d", len(stms)+1)
		stms = append(stms, filter.SourceId)
	}

	if _, err := uuid.FromString(filter.DebtId); err == nil {
		filterQ += fmt.Sprintf(" AND debt_id = $%d", len(stms)+1)
		stms = append(stms, filter.DebtId)
	}

	if filter.Amount != 0 {
		filterQ += fmt.Sprintf(" AND amount = $%d", len(stms)+1)
		stms = append(stms, filter.Amount)
	}

	if date, err := time.Parse(dateFormat, filter.MinDate); err == nil {
		filterQ += fmt.Sprintf(" AND created_at >= $%d", len(stms)+1)
		stms = append(stms, date)
	}

	if date, err := time.Parse(dateFormat, filter.MaxDate); err == nil {
		filterQ += fmt.Sprintf(" AND created_at <= $%d", len(stms)+1)
		stms = append(stms, date)
	}

	if filter.MinAmount != 0 {
		filterQ += fmt.Sprintf(" AND amount >= $%d", len(stms)+1)
		stms = append(stms, filter.MinAmount)
	}

	if filter.MaxAmount != 0 {
		filterQ += fmt.Sprintf(" AND amount <= $%d", len(stms)+1)
		stms = append(stms, filter.MaxAmount)
	}

	return
}
