package service

import (
	"lifebee/internal/model"
	"lifebee/internal/notification"

	"github.com/google/uuid"
)

func requestData(req *model.ServiceRequest, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"serviceRequestId": req.ID.String(),
		"status":           req.Status,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func offerReceivedEvent(req *model.ServiceRequest, offer *model.ServiceOffer) model.OutboxEvent {
	return notification.NewEvent(req.ClientID, model.EventOfferReceived,
		"New offer received",
		"A professional sent an offer for your service request",
		requestData(req, map[string]interface{}{
			"offerId":       offer.ID.String(),
			"proposedPrice": offer.ProposedPrice.StringFixed(2),
		}))
}

func offerAcceptedEvent(req *model.ServiceRequest, offer *model.ServiceOffer) model.OutboxEvent {
	return notification.NewEvent(offer.ProfessionalID, model.EventOfferAccepted,
		"Offer accepted",
		"Your offer was accepted by the client",
		requestData(req, map[string]interface{}{
			"offerId":    offer.ID.String(),
			"finalPrice": offer.FinalPrice.StringFixed(2),
		}))
}

func serviceStartedEvent(req *model.ServiceRequest) model.OutboxEvent {
	return notification.NewEvent(req.ClientID, model.EventServiceStarted,
		"Service started",
		"The professional has started your service",
		requestData(req, nil))
}

func serviceCompletedEvent(req *model.ServiceRequest) model.OutboxEvent {
	return notification.NewEvent(req.ClientID, model.EventServiceCompleted,
		"Service completed",
		"The professional marked the service as completed. Please confirm it.",
		requestData(req, nil))
}

func serviceConfirmedEvent(req *model.ServiceRequest, professionalID uuid.UUID) model.OutboxEvent {
	return notification.NewEvent(professionalID, model.EventServiceConfirmed,
		"Service confirmed",
		"The client confirmed the service",
		requestData(req, nil))
}

func serviceCancelledEvent(req *model.ServiceRequest, recipient uuid.UUID) model.OutboxEvent {
	return notification.NewEvent(recipient, model.EventServiceCancelled,
		"Service cancelled",
		"The service request was cancelled",
		requestData(req, map[string]interface{}{"reason": req.CancellationReason}))
}

func paymentOutcomeEvents(req *model.ServiceRequest, ref *model.PaymentReference) []model.OutboxEvent {
	data := requestData(req, map[string]interface{}{
		"paymentReferenceId": ref.ID.String(),
		"amount":             ref.Amount.StringFixed(2),
		"currency":           ref.Currency,
		"paymentStatus":      ref.Status,
	})
	if ref.Status == model.PaymentStatusApproved {
		return []model.OutboxEvent{
			notification.NewEvent(ref.ClientID, model.EventPaymentApproved, "Payment approved", "Your payment was approved", data),
			notification.NewEvent(ref.ProfessionalID, model.EventPaymentApproved, "Payment approved", "The client's payment was approved", data),
		}
	}
	return []model.OutboxEvent{
		notification.NewEvent(ref.ClientID, model.EventPaymentRejected, "Payment not completed", "Your payment was not completed. Please try again.", data),
	}
}

func paymentReleasedEvents(req *model.ServiceRequest, progress *model.ServiceProgress, txn *model.Transaction) []model.OutboxEvent {
	data := requestData(req, map[string]interface{}{
		"transactionId": txn.ID.String(),
		"amount":        txn.Amount.StringFixed(2),
	})
	return []model.OutboxEvent{
		notification.NewEvent(progress.ProfessionalID, model.EventPaymentReleased, "Payment released", "The payment for your service was released", data),
		notification.NewEvent(req.ClientID, model.EventPaymentReleased, "Payment released", "Your payment was released to the professional", data),
	}
}
