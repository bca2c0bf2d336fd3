package controllers

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"keuanganapi/ledger"
	"keuanganapi/models"
	"keuanganapi/rekap"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gopkg.in/gomail.v2"
)

var (
	dateFormat = "2006-01-02"
	s1         = `
	{
		"border": [
			{
			"type": "left",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "top",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "right",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "bottom",
			"color": "#000000",
			"style": 1
			}
		],
		"fill": {
			"type": "pattern",
			"pattern": 1,
			"color": ["#96b753"]
		},
		"font": {
			"bold": true
		},
		"alignment": {
			"shrink_to_fit": true,
			"horizontal": "center"
		}
	}
	`
	s2 = `
	{
		"border": [
			{
			"type": "left",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "top",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "right",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "bottom",
			"color": "#000000",
			"style": 1
			}
		],
		"fill": {
			"type": "pattern",
			"pattern": 1
		},
		"alignment": {
			"shrink_to_fit": true
		}
	}
	`
)

var genericOK = map[string]string{"message": "ok"}

type GenericResponse struct {
	Message string `json:"message"`
}

type API struct {
	Db     *sql.DB
	Redis  *redis.Client
	Ledger *ledger.Engine
	Rekap  *rekap.Aggregator
}

func NewAPI() *API {
	return &API{}
}

func sendError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"message": msg,
	})
}

// sendLedgerError maps the engine's business-rule failures onto HTTP
// codes. Missing and foreign-owned rows look identical on purpose.
func sendLedgerError(c *gin.Context, err error) {
	switch err {
	case ledger.ErrInvalidAmount, ledger.ErrInvalidDate, ledger.ErrInsufficientFunds,
		ledger.ErrInsufficientBalance, ledger.ErrAmountExceedsDebt:
		sendError(c, http.StatusBadRequest, err.Error())
	case ledger.ErrSourceNotFound, ledger.ErrExpenseNotFound, ledger.ErrDebtNotFound:
		sendError(c, http.StatusNotFound, err.Error())
	case ledger.ErrCorruptBalanceState:
		sendError(c, http.StatusConflict, err.Error())
	default:
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
	}
}

func (api *API) GetTotal(query string, statement []interface{}) (total int32, err error) {
	err = api.Db.QueryRow(query, statement...).Scan(&total)
	return
}

func (api *API) UpdatePassword(id, password string) (email string, err error) {
	err = api.Db.QueryRow(`UPDATE users SET password = crypt($1, gen_salt('bf', 8)) WHERE id = $2 AND NOT deleted RETURNING email`, password, id).Scan(&email)

	if err != nil {
		if err == sql.ErrNoRows {
			err = errors.New("not-found")
		}
		log.Println(err)
	}

	return
}

func sendEmailReset(email, token string) error {
	subject := os.Getenv("EMAIL_RESET_SUBJECT")
	emailSMTPPort := os.Getenv("EMAIL_SMTP_PORT")
	emailSMTPServer := os.Getenv("EMAIL_SMTP_SERVER")
	emailSMTPUsername := os.Getenv("EMAIL_SMTP_USERNAME")
	emailSMTPPassword := os.Getenv("EMAIL_SMTP_PASSWORD")
	emailFrom := os.Getenv("EMAIL_MESSAGE_FROM")

	f, err := os.Open("./templates/reset_password.html")
	if err != nil {
		log.Println(err)
		return err
	}

	body, err := ioutil.ReadAll(f)
	if err != nil {
		log.Println(err)
		return err
	}

	url := os.Getenv("WEB_URL") + "/forgot-password?token=" + token

	content := strings.ReplaceAll(string(body), "%URL%", url)

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", emailFrom)
	mailer.SetHeader("To", email)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", content)

	smtpPort, err := strconv.Atoi(emailSMTPPort)
	if err != nil {
		log.Println(err)
		return err
	}

	dialer := gomail.NewDialer(
		emailSMTPServer,
		smtpPort,
		emailSMTPUsername,
		emailSMTPPassword,
	)

	t := time.Now()
	err = dialer.DialAndSend(mailer)
	if err != nil {
		log.Println(err)
	}

	log.Println(time.Since(t))

	return err
}

func ParsePayload(c *gin.Context) (redis models.RedisPayload) {
	payload := c.Request.Header.Get("payload")

	err := json.Unmarshal([]byte(payload), &redis)
	if err != nil {
		log.Println(err)
	}

	return
}

func tokenGenerator() string {
	b := make([]byte, 32)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
