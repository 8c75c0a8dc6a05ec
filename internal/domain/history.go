package domain

import "time"

// HistoryStep is one row of a loan's extension timeline
type HistoryStep struct {
	Step         int64     `json:"step"`
	ReturnDate   time.Time `json:"return_date"`
	InterestRate int64     `json:"interest_rate"`
}

type HistoryResponse struct {
	LoanID  string         `json:"loan_id"`
	History []*HistoryStep `json:"history"`
}
