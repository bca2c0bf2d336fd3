package models

import (
	"encoding/json"
	"time"
)

const (
	RekapDaily   = "daily"
	RekapWeekly  = "weekly"
	RekapMonthly = "monthly"
)

// Rekap is an immutable period rollup. Payload holds a verbatim copy of
// the records summed, frozen at snapshot time.
type Rekap struct {
	CreatedAt   time.Time       `json:"created_at"`
	Id          string          `json:"id"`
	UserId      string          `json:"user_id"`
	PeriodType  string          `json:"period_type"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Payload     json.RawMessage `json:"payload"`
	TotalAmount float64         `json:"total_amount"`
}

type RekapList struct {
	Rekaps []Rekap `json:"rekaps"`
	Total  int32   `json:"total"`
}

type RunRekapRequest struct {
	Kind      string `json:"kind"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
}
