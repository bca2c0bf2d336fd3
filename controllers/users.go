package controllers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"time"

	"keuanganapi/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid"
)

func (api *API) Register(c *gin.Context) {
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateUser(user, true); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	var exists bool
	if err := api.Db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND NOT deleted)", user.Email).Scan(&exists); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if exists {
		sendError(c, http.StatusConflict, "email-already-exist")
		return
	}

	if _, err := api.Db.Exec(`
		INSERT INTO users (email, name, password, created_at, updated_at)
		VALUES ($1, $2, crypt($3, gen_salt('bf', 8)), CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, user.Email, user.Name, user.Password); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) GetUser(c *gin.Context) {
	userId := ParsePayload(c).Id

	if userId == "" {
		sendError(c, http.StatusBadRequest, "missing-id")
		return
	}

	if _, err := uuid.FromString(userId); err != nil {
		sendError(c, http.StatusBadRequest, "invalid-id")
		return
	}

	var user models.User

	if err := api.Db.QueryRow("SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1 AND NOT deleted", userId).
		Scan(&user.Id, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			sendError(c, http.StatusNotFound, "user-not-found")
			return
		}

		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, user)
}

func (api *API) UpdateUser(c *gin.Context) {
	userId := ParsePayload(c).Id

	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	updatePassword := user.Password != ""

	if err := validateUser(user, updatePassword); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	q := "UPDATE users SET name = $1, email = $2"
	stms := []interface{}{user.Name, user.Email}

	if updatePassword {
		q += ", password = crypt($3, gen_salt('bf', 8))"
		stms = append(stms, user.Password)
	}

	stms = append(stms, userId)
	q += fmt.Sprintf(" WHERE id = $%d AND NOT deleted", len(stms))

	if _, err := api.Db.Exec(q, stms...); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) ForgotPassword(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Email == "" {
		sendError(c, http.StatusBadRequest, "missing-email")
		return
	}

	var userId string
	if err := api.Db.QueryRow("SELECT id FROM users WHERE email = $1 AND NOT deleted", req.Email).Scan(&userId); err != nil {
		if err == sql.ErrNoRows {
			// same response either way, no account probing
			c.JSON(http.StatusOK, genericOK)
			return
		}

		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	token := tokenGenerator()
	if err := api.Redis.Set(context.Background(), "reset:"+token, userId, 30*time.Minute).Err(); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := sendEmailReset(req.Email, token); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) VerifyTokenReset(c *gin.Context) {
	token := c.Param("token")

	err := api.Redis.Get(context.Background(), "reset:"+token).Err()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusNotFound, "token-not-found")
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) UpdateUserReset(c *gin.Context) {
	token := c.Param("token")

	var reset models.PasswordReset
	if err := c.ShouldBindJSON(&reset); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if reset.Password == "" || reset.Password != reset.PasswordConfirmation {
		sendError(c, http.StatusBadRequest, "password-confirmation-mismatch")
		return
	}

	if len(reset.Password) < 8 {
		sendError(c, http.StatusBadRequest, "password-must-be-at-least-8-characters")
		return
	}

	userId, err := api.Redis.Get(context.Background(), "reset:"+token).Result()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusNotFound, "token-not-found")
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := api.UpdatePassword(userId, reset.Password); err != nil {
		code := http.StatusInternalServerError
		if err.Error() == "not-found" {
			code = http.StatusNotFound
		}
		sendError(c, code, err.Error())
		return
	}

	api.Redis.Del(context.Background(), "reset:"+token)

	c.JSON(http.StatusOK, genericOK)
}

func validateUser(user models.User, checkPassword bool) error {
	if user.Email == "" {
		return errors.New("missing-email")
	}

	if user.Name == "" {
		return errors.New("missing-name")
	}

	if _, err := mail.ParseAddress(user.Email); err != nil {
		log.Println(err)
		return errors.New("invalid-email")
	}

	if checkPassword {
		if user.Password == "" {
			return errors.New("missing-password")
		}

		if len(user.Password) < 8 {
			return errors.New("password-must-be-at-least-8-characters")
		}
	}

	return nil
}
