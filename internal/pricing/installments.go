package pricing

import (
	"fmt"

	apperrors "go-gin-event-commerce/pkg/app_errors"
)

// InstallmentPlan 訂金加上 n 期平均分攤的剩餘金額
type InstallmentPlan struct {
	TotalAmount      float64 `json:"totalAmount"`
	Tickets          int     `json:"tickets"`
	Installments     int     `json:"installments"`
	ReservationFee   float64 `json:"reservationFee"`
	TotalReservation float64 `json:"totalReservation"`
	TotalRemaining   float64 `json:"totalRemaining"`
	PerInstallment   float64 `json:"perInstallment"`
}

// SplitInstallments n 必須介於 1 到 MaxInstallments。訂金總額不超過 totalAmount，
// 剩餘金額不會小於 0
func SplitInstallments(totalAmount float64, tickets, n int) (InstallmentPlan, error) {
	if n < 1 || n > MaxInstallments {
		return InstallmentPlan{}, fmt.Errorf("%w: %d", apperrors.ErrInvalidInstallments, n)
	}
	totalAmount = max(totalAmount, 0)
	tickets = max(tickets, 0)

	reservation := min(float64(tickets)*ReservationFee, totalAmount)
	remaining := max(totalAmount-reservation, 0)

	return InstallmentPlan{
		TotalAmount:      totalAmount,
		Tickets:          tickets,
		Installments:     n,
		ReservationFee:   ReservationFee,
		TotalReservation: reservation,
		TotalRemaining:   remaining,
		PerInstallment:   remaining / float64(n),
	}, nil
}
