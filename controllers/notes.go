package controllers

import (
	"log"
	"net/http"

	"keuanganapi/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

func (api *API) GetNotes(c *gin.Context) {
	u := ParsePayload(c)

	rows, err := api.Db.Query(`
		SELECT id, user_id, note, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var note models.Note

		err = rows.Scan(&note.Id, &note.UserId, &note.Note, &note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}

		notes = append(notes, note)
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (api *API) CreateNote(c *gin.Context) {
	u := ParsePayload(c)

	var req models.UpsertNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Note == "" {
		sendError(c, http.StatusBadRequest, "missing-note")
		return
	}

	note := models.Note{
		Id:     uuid.Must(uuid.NewV4()).String(),
		UserId: u.Id,
		Note:   req.Note,
	}

	if err := api.Db.QueryRow(`
		INSERT INTO notes (id, user_id, note, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at
	`, note.Id, u.Id, note.Note).Scan(&note.CreatedAt, &note.UpdatedAt); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, note)
}

func (api *API) UpdateNote(c *gin.Context) {
	u := ParsePayload(c)
	id := c.Param("id")

	if _, err := uuid.FromString(id); err != nil {
		sendError(c, http.StatusNotFound, "note-not-found")
		return
	}

	var req models.UpsertNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Note == "" {
		sendError(c, http.StatusBadRequest, "missing-note")
		return
	}

	tag, err := api.Db.Exec(`
		UPDATE notes SET note = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND user_id = $3
	`, req.Note, id, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if n, _ := tag.RowsAffected(); n == 0 {
		sendError(c, http.StatusNotFound, "note-not-found")
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) DeleteNote(c *gin.Context) {
	u := ParsePayload(c)
	id := c.Param("id")

	if _, err := uuid.FromString(id); err != nil {
		sendError(c, http.StatusNotFound, "note-not-found")
		return
	}

	tag, err := api.Db.Exec(`DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, u.Id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if n, _ := tag.RowsAffected(); n == 0 {
		sendError(c, http.StatusNotFound, "note-not-found")
		return
	}

	c.JSON(http.StatusOK, genericOK)
}
