package models

import "time"

// Holder tags one balance slot on an income source.
type Holder string

const (
	HolderHusband   Holder = "husband"
	HolderWife      Holder = "wife"
	HolderUnmarried Holder = "unmarried"
)

// HolderOrder is the fixed first-fit precedence used when picking which
// slot funds or absorbs a transaction. Callers cannot influence the pick
// except through the balances themselves.
var HolderOrder = []Holder{HolderHusband, HolderWife, HolderUnmarried}

type Balance struct {
	Holder Holder  `json:"holder"`
	Amount float64 `json:"amount"`
}

type Source struct {
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Id              string    `json:"id"`
	UserId          string    `json:"user_id"`
	Category        string    `json:"category"`
	Person          string    `json:"person"`
	Item            string    `json:"item"`
	Status          string    `json:"status"`
	Note            string    `json:"note"`
	PartnerId       string    `json:"partner_id,omitempty"`
	Total           float64   `json:"total"`
	Balances        []Balance `json:"balances"`
	AmountToDisplay *float64  `json:"amount_to_display"`
}

// ComputeDisplay fills AmountToDisplay with the first positive balance in
// holder precedence order, or leaves it nil when every tracked slot is
// exhausted. Mirrors what the dashboard shows as "the" balance.
func (s *Source) ComputeDisplay() {
	for _, b := range s.Balances {
		if b.Amount > 0 {
			amount := b.Amount
			s.AmountToDisplay = &amount
			return
		}
	}
}

type SourceList struct {
	Sources []Source `json:"sources"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int32    `json:"total"`
}

// A nil holder amount means the slot is not tracked on this source.
// An explicit 0 means tracked but exhausted. The two are not the same.
type UpsertSourceRequest struct {
	Category  string   `json:"category"`
	Person    string   `json:"person"`
	Item      string   `json:"item"`
	Status    string   `json:"status"`
	Note      string   `json:"note"`
	PartnerId string   `json:"partner_id"`
	Husband   *float64 `json:"husband"`
	Wife      *float64 `json:"wife"`
	Unmarried *float64 `json:"unmarried"`
	Total     *float64 `json:"total"`
	CreatedAt string   `json:"created_at"`
}

type AdjustSourceRequest struct {
	Deltas map[Holder]float64 `json:"deltas"`
}
