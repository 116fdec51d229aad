package model

import "github.com/shopspring/decimal"

// Outcome is what both verification paths report back to their caller.
// Replays of an already reconciled order return the stored values, so the
// payload is identical to the one produced by the original commit.
type Outcome struct {
	Success       bool
	Ignored       bool // webhook event type we do not act on
	AlreadyDone   bool
	OrderID       string
	Amount        decimal.Decimal
	Status        string // stored payment status on success, gateway order status otherwise
	GatewayStatus string
	Message       string
}

func OutcomeFromPayment(p *Payment, alreadyDone bool) *Outcome {
	return &Outcome{
		Success:       true,
		AlreadyDone:   alreadyDone,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		GatewayStatus: "PAID",
		Message:       "payment verified",
	}
}
