package models

import "time"

type Note struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Id        string    `json:"id"`
	UserId    string    `json:"user_id"`
	Note      string    `json:"note"`
}

type NoteList struct {
	Notes []Note `json:"notes"`
	Total int32  `json:"total"`
}

type UpsertNoteRequest struct {
	Note string `json:"note"`
}
