package models

import "time"

// CategoryDebt links an expense to a debt being paid down.
const CategoryDebt = "Debt"

type Expense struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Id        string    `json:"id"`
	UserId    string    `json:"user_id"`
	Category  string    `json:"category"`
	SourceId  string    `json:"source_id"`
	DebtId    string    `json:"debt_id,omitempty"`
	Note      string    `json:"note"`
	Amount    float64   `json:"amount"`
}

type ExpenseList struct {
	Expenses []Expense `json:"expenses"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int32     `json:"total"`
}

type ExpenseFilter struct {
	Expense
	MinDate   string  `json:"min_date"`
	MaxDate   string  `json:"max_date"`
	MinAmount float64 `json:"min_amount"`
	MaxAmount float64 `json:"max_amount"`
}

type CreateExpenseRequest struct {
	Category  string  `json:"category"`
	SourceId  string  `json:"source_id"`
	DebtId    string  `json:"debt_id"`
	Note      string  `json:"note"`
	CreatedAt string  `json:"created_at"`
	Amount    float64 `json:"amount"`
}

type UpdateExpenseRequest struct {
	Amount   *float64 `json:"amount"`
	SourceId string   `json:"source_id"`
	Note     *string  `json:"note"`
}

// ExpenseMutation is returned by every ledger write so the client can
// refresh the funding source without a second request.
type ExpenseMutation struct {
	Expense  `json:"expense"`
	Balances []Balance `json:"balances"`
}
