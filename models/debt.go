package models

import "time"

const (
	DebtStatusUnpaid = "Unpaid"
	DebtStatusPaid   = "Paid"
)

type Debt struct {
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Id              string    `json:"id"`
	UserId          string    `json:"user_id"`
	Note            string    `json:"note"`
	Status          string    `json:"status"`
	RemainingAmount float64   `json:"remaining_amount"`
}

type DebtList struct {
	Debts []Debt `json:"debts"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int32  `json:"total"`
}

type UpsertDebtRequest struct {
	Note   string  `json:"note"`
	Amount float64 `json:"amount"`
}

type PayDebtRequest struct {
	DebtId   string  `json:"debt_id"`
	SourceId string  `json:"source_id"`
	Note     string  `json:"note"`
	Amount   float64 `json:"amount"`
}
