// Package lifecycle holds the transition tables for service requests, offers,
// progress rows and payment references.
package lifecycle

import (
	"lifebee/internal/apperror"
	"lifebee/internal/model"
)

var requestTransitions = map[string]map[string]struct{}{
	model.RequestStatusOpen: {
		model.RequestStatusAssigned:  {},
		model.RequestStatusCancelled: {},
	},
	model.RequestStatusAssigned: {
		model.RequestStatusInProgress: {},
		model.RequestStatusCancelled:  {},
	},
	model.RequestStatusInProgress: {
		model.RequestStatusAwaitingConfirmation: {},
		model.RequestStatusCancelled:            {},
	},
	model.RequestStatusAwaitingConfirmation: {
		model.RequestStatusCompleted: {},
		model.RequestStatusCancelled: {},
	},
	model.RequestStatusCompleted: {},
	model.RequestStatusCancelled: {},
}

var offerTransitions = map[string]map[string]struct{}{
	model.OfferStatusPending: {
		model.OfferStatusAccepted:  {},
		model.OfferStatusRejected:  {},
		model.OfferStatusWithdrawn: {},
	},
	model.OfferStatusAccepted: {
		model.OfferStatusPaid:      {},
		model.OfferStatusCompleted: {},
	},
	model.OfferStatusPaid: {
		model.OfferStatusCompleted: {},
	},
	model.OfferStatusRejected:  {},
	model.OfferStatusWithdrawn: {},
	model.OfferStatusCompleted: {},
}

var paymentTransitions = map[string]map[string]struct{}{
	model.PaymentStatusPending: {
		model.PaymentStatusApproved:  {},
		model.PaymentStatusRejected:  {},
		model.PaymentStatusCancelled: {},
	},
	model.PaymentStatusApproved:  {},
	model.PaymentStatusRejected:  {},
	model.PaymentStatusCancelled: {},
}

// progressOrder is the only order a progress row may move in.
var progressOrder = []string{
	model.ProgressStatusAccepted,
	model.ProgressStatusStarted,
	model.ProgressStatusInProgress,
	model.ProgressStatusCompleted,
	model.ProgressStatusAwaitingConfirmation,
	model.ProgressStatusConfirmed,
	model.ProgressStatusPaymentReleased,
}

func allowed(table map[string]map[string]struct{}, from, to string) bool {
	next, ok := table[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// CanTransition returns whether a service request can move from one status to another.
// Staying in the same status is not a transition.
func CanTransition(from, to string) bool {
	return allowed(requestTransitions, from, to)
}

// CheckTransition returns an InvalidTransitionError when the request edge does not exist
func CheckTransition(from, to string) error {
	if !CanTransition(from, to) {
		return apperror.InvalidTransition("service request", from, to)
	}
	return nil
}

// IsTerminal reports whether a request status has no outgoing edges
func IsTerminal(status string) bool {
	next, ok := requestTransitions[status]
	return ok && len(next) == 0
}

// IsKnownStatus reports whether status is a service request status
func IsKnownStatus(status string) bool {
	_, ok := requestTransitions[status]
	return ok
}

// CanTransitionOffer returns whether an offer can move from one status to another
func CanTransitionOffer(from, to string) bool {
	return allowed(offerTransitions, from, to)
}

// CheckOfferTransition returns an InvalidTransitionError when the offer edge does not exist
func CheckOfferTransition(from, to string) error {
	if !CanTransitionOffer(from, to) {
		return apperror.InvalidTransition("service offer", from, to)
	}
	return nil
}

// CanTransitionPayment returns whether a payment reference can move from one status to another
func CanTransitionPayment(from, to string) bool {
	return allowed(paymentTransitions, from, to)
}

// IsFinalPaymentStatus reports whether a provider status settles a payment reference
func IsFinalPaymentStatus(status string) bool {
	return status == model.PaymentStatusApproved ||
		status == model.PaymentStatusRejected ||
		status == model.PaymentStatusCancelled
}

// TransactionStatusFor maps a payment reference status to the mirrored transaction status
func TransactionStatusFor(paymentStatus string) string {
	switch paymentStatus {
	case model.PaymentStatusApproved:
		return model.TransactionStatusCompleted
	case model.PaymentStatusRejected, model.PaymentStatusCancelled:
		return model.TransactionStatusFailed
	default:
		return model.TransactionStatusPending
	}
}

// ProgressRank returns the position of a progress status, or -1 when unknown
func ProgressRank(status string) int {
	for i, s := range progressOrder {
		if s == status {
			return i
		}
	}
	return -1
}

// CanAdvanceProgress returns whether a progress row may move forward to the target status
func CanAdvanceProgress(from, to string) bool {
	fromRank, toRank := ProgressRank(from), ProgressRank(to)
	return fromRank >= 0 && toRank > fromRank
}

// AdvanceProgress walks the progress row through the target statuses in order.
// The row is left untouched if any step would not move forward.
func AdvanceProgress(p *model.ServiceProgress, targets ...string) error {
	current := p.Status
	for _, to := range targets {
		if !CanAdvanceProgress(current, to) {
			return apperror.InvalidTransition("service progress", current, to)
		}
		current = to
	}
	p.Status = current
	return nil
}

// ReachedProgress reports whether the progress status is at or past the given one
func ReachedProgress(status, milestone string) bool {
	return ProgressRank(status) >= ProgressRank(milestone) && ProgressRank(milestone) >= 0
}
