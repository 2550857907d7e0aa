package lifecycle

import (
	"errors"
	"testing"

	"lifebee/internal/apperror"
	"lifebee/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allRequestStatuses = []string{
	model.RequestStatusOpen,
	model.RequestStatusAssigned,
	model.RequestStatusInProgress,
	model.RequestStatusAwaitingConfirmation,
	model.RequestStatusCompleted,
	model.RequestStatusCancelled,
}

func TestCanTransition(t *testing.T) {
	valid := map[[2]string]bool{
		{model.RequestStatusOpen, model.RequestStatusAssigned}:                   true,
		{model.RequestStatusAssigned, model.RequestStatusInProgress}:             true,
		{model.RequestStatusInProgress, model.RequestStatusAwaitingConfirmation}: true,
		{model.RequestStatusAwaitingConfirmation, model.RequestStatusCompleted}:  true,
		{model.RequestStatusOpen, model.RequestStatusCancelled}:                  true,
		{model.RequestStatusAssigned, model.RequestStatusCancelled}:              true,
		{model.RequestStatusInProgress, model.RequestStatusCancelled}:            true,
		{model.RequestStatusAwaitingConfirmation, model.RequestStatusCancelled}:  true,
	}

	for _, from := range allRequestStatuses {
		for _, to := range allRequestStatuses {
			want := valid[[2]string{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheckTransitionReportsStatuses(t *testing.T) {
	err := CheckTransition(model.RequestStatusCompleted, model.RequestStatusCancelled)
	require.Error(t, err)

	var invalid *apperror.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, model.RequestStatusCompleted, invalid.Current)
	assert.Equal(t, model.RequestStatusCancelled, invalid.Requested)

	assert.NoError(t, CheckTransition(model.RequestStatusOpen, model.RequestStatusAssigned))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(model.RequestStatusCompleted))
	assert.True(t, IsTerminal(model.RequestStatusCancelled))
	assert.False(t, IsTerminal(model.RequestStatusOpen))
	assert.False(t, IsTerminal(model.RequestStatusAwaitingConfirmation))
	assert.False(t, IsTerminal("unknown"))
}

func TestOfferTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.OfferStatusPending, model.OfferStatusAccepted, true},
		{model.OfferStatusPending, model.OfferStatusRejected, true},
		{model.OfferStatusPending, model.OfferStatusWithdrawn, true},
		{model.OfferStatusAccepted, model.OfferStatusPaid, true},
		{model.OfferStatusPaid, model.OfferStatusCompleted, true},
		{model.OfferStatusAccepted, model.OfferStatusCompleted, true},
		{model.OfferStatusRejected, model.OfferStatusAccepted, false},
		{model.OfferStatusWithdrawn, model.OfferStatusPending, false},
		{model.OfferStatusCompleted, model.OfferStatusPaid, false},
		{model.OfferStatusAccepted, model.OfferStatusRejected, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionOffer(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(model.PaymentStatusPending, model.PaymentStatusApproved))
	assert.True(t, CanTransitionPayment(model.PaymentStatusPending, model.PaymentStatusRejected))
	assert.True(t, CanTransitionPayment(model.PaymentStatusPending, model.PaymentStatusCancelled))
	assert.False(t, CanTransitionPayment(model.PaymentStatusApproved, model.PaymentStatusRejected))
	assert.False(t, CanTransitionPayment(model.PaymentStatusApproved, model.PaymentStatusApproved))

	assert.Equal(t, model.TransactionStatusCompleted, TransactionStatusFor(model.PaymentStatusApproved))
	assert.Equal(t, model.TransactionStatusFailed, TransactionStatusFor(model.PaymentStatusRejected))
	assert.Equal(t, model.TransactionStatusFailed, TransactionStatusFor(model.PaymentStatusCancelled))
	assert.Equal(t, model.TransactionStatusPending, TransactionStatusFor("in_process"))

	assert.False(t, IsFinalPaymentStatus(model.PaymentStatusPending))
	assert.True(t, IsFinalPaymentStatus(model.PaymentStatusApproved))
}

func TestAdvanceProgress(t *testing.T) {
	p := &model.ServiceProgress{Status: model.ProgressStatusAccepted}

	require.NoError(t, AdvanceProgress(p, model.ProgressStatusStarted, model.ProgressStatusInProgress))
	assert.Equal(t, model.ProgressStatusInProgress, p.Status)

	require.NoError(t, AdvanceProgress(p, model.ProgressStatusCompleted, model.ProgressStatusAwaitingConfirmation))
	assert.Equal(t, model.ProgressStatusAwaitingConfirmation, p.Status)

	err := AdvanceProgress(p, model.ProgressStatusStarted)
	var invalid *apperror.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.ProgressStatusAwaitingConfirmation, p.Status, "failed advance must not mutate")

	err = AdvanceProgress(p, model.ProgressStatusConfirmed, model.ProgressStatusConfirmed)
	require.Error(t, err)
	assert.Equal(t, model.ProgressStatusAwaitingConfirmation, p.Status)
}

func TestReachedProgress(t *testing.T) {
	assert.True(t, ReachedProgress(model.ProgressStatusConfirmed, model.ProgressStatusConfirmed))
	assert.True(t, ReachedProgress(model.ProgressStatusPaymentReleased, model.ProgressStatusConfirmed))
	assert.False(t, ReachedProgress(model.ProgressStatusAwaitingConfirmation, model.ProgressStatusConfirmed))
	assert.False(t, ReachedProgress("bogus", model.ProgressStatusAccepted))
}
