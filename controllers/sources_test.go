package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"keuanganapi/ledger"
	"keuanganapi/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gotest.tools/assert"
)

func TestGetSources(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	var genericResp GenericResponse

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"
	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	// err select (500)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	dbMock.ExpectQuery("SELECT").WillReturnError(errors.New("err-select"))

	req, _ := http.NewRequest("GET", "", nil)
	c.Request = req
	api.GetSources(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-select", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	label := []string{"id", "user_id", "category", "person", "item", "status",
		"total", "note", "partner_id", "created_at", "updated_at"}

	dbMock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(label).
			AddRow(mockID, mockUserID, "Gaji", "Ani", "gaji bulanan", "active",
				1500, "", "", time.Now(), time.Now()))
	dbMock.ExpectQuery("SELECT source_id, holder").
		WillReturnRows(sqlmock.NewRows([]string{"source_id", "holder", "amount"}).
			AddRow(mockID, "husband", 0).
			AddRow(mockID, "wife", 900))
	dbMock.ExpectQuery("SELECT COUNT.*").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	req, _ = http.NewRequest("GET", "?category=Gaji&order_by=total&order=asc", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.GetSources(c)

	var sourceList models.SourceList

	err = json.NewDecoder(w.Body).Decode(&sourceList)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), sourceList.Total)
	assert.Equal(t, 1, len(sourceList.Sources))
	assert.Equal(t, 2, len(sourceList.Sources[0].Balances))
	// zero husband slot is skipped for display
	assert.Equal(t, 900.0, *sourceList.Sources[0].AmountToDisplay)
}

func TestCreateSourceEndpoint(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db
	api.Ledger = ledger.NewEngine(db)

	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	var genericResp GenericResponse

	// nil request (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest("POST", "", nil)
	c.Request = req
	api.CreateSource(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// negative opening amount (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	negative := -100.0
	payload := parsePayload(models.UpsertSourceRequest{Husband: &negative})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.CreateSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-amount", genericResp.Message)

	// 201
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)

	amount := 1000.0
	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO sources").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec("INSERT INTO source_balances").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	payload = parsePayload(models.UpsertSourceRequest{
		Category: "Gaji",
		Person:   "Ani",
		Wife:     &amount,
	})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.CreateSource(c)

	var source models.Source

	err = json.NewDecoder(w.Body).Decode(&source)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, mockUserID, source.UserId)
	assert.Equal(t, 1000.0, *source.AmountToDisplay)

	assert.Equal(t, nil, dbMock.ExpectationsWereMet())
}

func TestUpdateSource(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"
	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	var genericResp GenericResponse

	// malformed id (404)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	req, _ := http.NewRequest("PUT", "", nil)
	c.Request = req
	api.UpdateSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "source-not-found", genericResp.Message)

	// unknown id (404)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	dbMock.ExpectExec("UPDATE sources").
		WillReturnResult(sqlmock.NewResult(0, 0))

	payload := parsePayload(models.UpsertSourceRequest{Category: "Bonus"})
	req, _ = http.NewRequest("PUT", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.UpdateSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "source-not-found", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	dbMock.ExpectExec("UPDATE sources").
		WillReturnResult(sqlmock.NewResult(0, 1))

	payload = parsePayload(models.UpsertSourceRequest{Category: "Bonus"})
	req, _ = http.NewRequest("PUT", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.UpdateSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)
}

func TestAdjustSource(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db
	api.Ledger = ledger.NewEngine(db)

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"
	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	var genericResp GenericResponse

	// no deltas (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	payload := parsePayload(models.AdjustSourceRequest{})
	req, _ := http.NewRequest("POST", "", payload)
	c.Request = req
	api.AdjustSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing-deltas", genericResp.Message)

	// overdraw (400)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT id, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "partner_id"}).AddRow(mockID, ""))
	dbMock.ExpectQuery("SELECT source_id, holder").
		WillReturnRows(sqlmock.NewRows([]string{"source_id", "holder", "amount"}).
			AddRow(mockID, "husband", 100))
	dbMock.ExpectRollback()

	payload = parsePayload(models.AdjustSourceRequest{
		Deltas: map[models.Holder]float64{models.HolderHusband: -500},
	})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.AdjustSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient-balance", genericResp.Message)

	// 200
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT id, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "partner_id"}).AddRow(mockID, ""))
	dbMock.ExpectQuery("SELECT source_id, holder").
		WillReturnRows(sqlmock.NewRows([]string{"source_id", "holder", "amount"}).
			AddRow(mockID, "husband", 100))
	dbMock.ExpectExec("UPDATE source_balances").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec("UPDATE sources").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	payload = parsePayload(models.AdjustSourceRequest{
		Deltas: map[models.Holder]float64{models.HolderHusband: 50},
	})
	req, _ = http.NewRequest("POST", "", payload)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.AdjustSource(c)

	resp := struct {
		Balances []models.Balance `json:"balances"`
	}{}

	err = json.NewDecoder(w.Body).Decode(&resp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 150.0, resp.Balances[0].Amount)

	assert.Equal(t, nil, dbMock.ExpectationsWereMet())
}

func TestDeleteSource(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI()
	api.Db = db

	mockID := "63eb226a-d612-412b-b8d4-a3e17b7d2226"
	mockUserID := "63eb226a-d612-412b-b8d4-a3e17b7d2227"

	var genericResp GenericResponse

	// still referenced by expenses (400)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	dbMock.ExpectQuery("SELECT EXISTS").WithArgs(mockID, mockUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	req, _ := http.NewRequest("DELETE", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.DeleteSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "source-in-use", genericResp.Message)

	// someone else's source: in-use check sees nothing, delete matches
	// nothing, caller only learns 404
	foreignID := "63eb226a-d612-412b-b8d4-a3e17b7d2225"

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: foreignID}}

	dbMock.ExpectQuery("SELECT EXISTS").WithArgs(foreignID, mockUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectBegin()
	dbMock.ExpectExec("DELETE FROM source_balances").
		WillReturnResult(sqlmock.NewResult(0, 0))
	dbMock.ExpectExec("DELETE FROM sources").
		WillReturnResult(sqlmock.NewResult(0, 0))
	dbMock.ExpectRollback()

	req, _ = http.NewRequest("DELETE", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.DeleteSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "source-not-found", genericResp.Message)

	// 200, balances go first
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: mockID}}

	dbMock.ExpectQuery("SELECT EXISTS").WithArgs(mockID, mockUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectBegin()
	dbMock.ExpectExec("DELETE FROM source_balances").
		WillReturnResult(sqlmock.NewResult(0, 2))
	dbMock.ExpectExec("DELETE FROM sources").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	req, _ = http.NewRequest("DELETE", "", nil)
	c.Request = req
	c.Request.Header.Set("payload", "{\"user\":{\"id\":\""+mockUserID+"\"}}")
	api.DeleteSource(c)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", genericResp.Message)

	assert.Equal(t, nil, dbMock.ExpectationsWereMet())
}
