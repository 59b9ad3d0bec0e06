package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func booking(status model.BookingStatus, total, paid string) model.Booking {
	return model.Booking{
		Status:        status,
		TotalAmount:   dec(total),
		PaidAmount:    dec(paid),
		PendingAmount: dec(total).Sub(dec(paid)),
	}
}

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name        string
		b           model.Booking
		amount      string
		policy      string
		wantPaid    string
		wantPending string
		wantStatus  model.BookingStatus
		wantExcess  string
		wantErr     error
	}{
		{
			name: "partial payment activates inquiry",
			b:    booking(model.BookingInquiry, "1000000", "0"), amount: "250000",
			wantPaid: "250000", wantPending: "750000", wantStatus: model.BookingActive, wantExcess: "0",
		},
		{
			name: "partial payment activates confirmed",
			b:    booking(model.BookingConfirmed, "1000", "0"), amount: "1",
			wantPaid: "1", wantPending: "999", wantStatus: model.BookingActive, wantExcess: "0",
		},
		{
			name: "partial payment keeps active",
			b:    booking(model.BookingActive, "1000", "500"), amount: "100",
			wantPaid: "600", wantPending: "400", wantStatus: model.BookingActive, wantExcess: "0",
		},
		{
			name: "exact remainder completes",
			b:    booking(model.BookingActive, "1000000", "750000"), amount: "250000",
			wantPaid: "1000000", wantPending: "0", wantStatus: model.BookingCompleted, wantExcess: "0",
		},
		{
			name: "single full payment completes inquiry",
			b:    booking(model.BookingInquiry, "500.50", "0"), amount: "500.50",
			wantPaid: "500.50", wantPending: "0", wantStatus: model.BookingCompleted, wantExcess: "0",
		},
		{
			name: "overpayment rejected by default",
			b:    booking(model.BookingActive, "1000", "900"), amount: "200",
			wantErr: ErrOverpaymentRejected,
		},
		{
			name: "overpayment clamped",
			b:    booking(model.BookingActive, "1000", "900"), amount: "200", policy: config.OverpaymentClamp,
			wantPaid: "1100", wantPending: "0", wantStatus: model.BookingCompleted, wantExcess: "100",
		},
		{
			name: "zero amount",
			b:    booking(model.BookingActive, "1000", "0"), amount: "0",
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative amount",
			b:    booking(model.BookingActive, "1000", "0"), amount: "-5",
			wantErr: ErrInvalidAmount,
		},
		{
			name: "sub-cent amount",
			b:    booking(model.BookingInquiry, "100", "0"), amount: "99.995",
			wantErr: ErrInvalidAmount,
		},
		{
			name: "trailing zeros beyond cents",
			b:    booking(model.BookingInquiry, "100", "0"), amount: "99.990",
			wantPaid: "99.99", wantPending: "0.01", wantStatus: model.BookingActive, wantExcess: "0",
		},
		{
			name: "cancelled booking",
			b:    booking(model.BookingCancelled, "1000", "0"), amount: "5",
			wantErr: ErrBookingCancelled,
		},
		{
			name: "completed booking",
			b:    booking(model.BookingCompleted, "1000", "1000"), amount: "5",
			wantErr: ErrBookingTerminal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := tt.policy
			if policy == "" {
				policy = config.OverpaymentReject
			}
			res, err := ApplyPayment(tt.b, dec(tt.amount), policy)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Paid.Equal(dec(tt.wantPaid)), "paid = %s", res.Paid)
			assert.True(t, res.Pending.Equal(dec(tt.wantPending)), "pending = %s", res.Pending)
			assert.True(t, res.Excess.Equal(dec(tt.wantExcess)), "excess = %s", res.Excess)
			assert.Equal(t, tt.wantStatus, res.Status)
			if res.Excess.IsPositive() {
				assert.Contains(t, res.Warning(), "100.00")
			} else {
				assert.Empty(t, res.Warning())
			}
		})
	}
}

func TestApplyPaymentKeepsAggregatesConsistent(t *testing.T) {
	b := booking(model.BookingInquiry, "999.99", "0")
	for _, amt := range []string{"100", "0.99", "399", "500"} {
		res, err := ApplyPayment(b, dec(amt), config.OverpaymentReject)
		require.NoError(t, err)
		assert.True(t, res.Paid.Add(res.Pending).Equal(b.TotalAmount))
		b.PaidAmount, b.PendingAmount, b.Status = res.Paid, res.Pending, res.Status
	}
	assert.Equal(t, model.BookingCompleted, b.Status)
}
