package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"keuanganapi/models"
	"keuanganapi/rekap"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gotest.tools/assert"
)

func TestRunExpenseRekap(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db
	api.Rekap = rekap.NewAggregator(db, time.UTC)

	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	var genericResp GenericResponse

	// unknown kind (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload := parsePayload(models.RunRekapRequest{Kind: "yearly"})
	req, _ := http.NewRequest("POST", "", payload)
	c.Request = req
	api.RunExpenseRekap(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-kind", genericResp.Message)

	// daily without dates (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	payload = parsePayload(models.RunRekapRequest{Kind: models.RekapDaily})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.RunExpenseRekap(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-start-date(yyyy-mm-dd)", genericResp.Message)

	// daily with reversed window (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	payload = parsePayload(models.RunRekapRequest{
		Kind:      models.RekapDaily,
		StartDate: "2024-03-10",
		EndDate:   "2024-03-01",
	})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.RunExpenseRekap(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "end-date-before-start-date", genericResp.Message)

	// monthly with bad month (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	payload = parsePayload(models.RunRekapRequest{Kind: models.RekapMonthly, Month: 13, Year: 2024})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	api.RunExpenseRekap(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-month-or-year", genericResp.Message)

	// empty window (404)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	label := []string{"id", "category", "amount", "source_id", "debt_id", "note", "created_at", "updated_at"}

	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT id, category").
		WillReturnRows(sqlmock.NewRows(label))
	dbMock.ExpectRollback()

	payload = parsePayload(models.RunRekapRequest{
		Kind:      models.RekapDaily,
		StartDate: "2024-03-01",
		EndDate:   "2024-03-01",
	})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.RunExpenseRekap(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no-records-in-period", genericResp.Message)

	// 201
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT id, category").
		WillReturnRows(sqlmock.NewRows(label).
			AddRow("e1", "Groceries", 150, "s1", "", "pasar", time.Now(), time.Now()))
	dbMock.ExpectExec("INSERT INTO rekap_expenses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	payload = parsePayload(models.RunRekapRequest{
		Kind:  models.RekapMonthly,
		Month: 3,
		Year:  2024,
	})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.RunExpenseRekap(c)

	var snapshot models.Rekap

	err = json.NewDecoder(w.Body).Decode(&snapshot)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RekapMonthly, snapshot.PeriodType)
	assert.Equal(t, "2024-03-01", snapshot.PeriodStart)
	assert.Equal(t, 150.0, snapshot.TotalAmount)

	assert.Equal(t, nil, dbMock.ExpectationsWereMet())
}

func TestGetExpenseRekaps(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	var genericResp GenericResponse

	label := []string{"id", "user_id", "period_type", "period_start", "period_end",
		"total_amount", "payload", "created_at"}

	// nothing archived yet (404)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT id, user_id").
		WillReturnRows(sqlmock.NewRows(label))

	req, _ := http.NewRequest("GET", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.GetExpenseRekaps(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "rekap-not-found", genericResp.Message)

	// filtered by month and year (200)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT id, user_id").
		WithArgs(mockUserID, models.RekapMonthly, 3, 2024).
		WillReturnRows(sqlmock.NewRows(label).
			AddRow("r1", mockUserID, models.RekapMonthly, "2024-03-01", "2024-03-31",
				300, []byte(`[]`), time.Now()))

	req, _ = http.NewRequest("GET", "?kind=monthly&month=3&year=2024", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.GetExpenseRekaps(c)

	resp := struct {
		Rekaps []models.Rekap `json:"rekaps"`
	}{}

	err = json.NewDecoder(w.Body).Decode(&resp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, len(resp.Rekaps))
	assert.Equal(t, "2024-03-01", resp.Rekaps[0].PeriodStart)
	assert.Equal(t, 300.0, resp.Rekaps[0].TotalAmount)
}
