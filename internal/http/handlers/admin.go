package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/domain/models"
	"carrental/internal/http/middleware"
	"carrental/internal/services"
	"carrental/internal/utils"

	"github.com/gin-gonic/gin"
)

// SweepRunner triggers one auto-cancel sweep under the shared lease.
type SweepRunner interface {
	RunOnce(ctx context.Context) (services.SweepResult, bool, error)
}

// PaymentEventLedger is the operator view of processed payment events.
type PaymentEventLedger interface {
	GetByPaymentID(ctx context.Context, paymentID string) (models.ProcessedPaymentEvent, error)
	Delete(ctx context.Context, paymentID string) (bool, error)
}

type AdminHandler struct {
	Sweeper SweepRunner
	Ledger  PaymentEventLedger
}

// RunSweep answers 202 when the sweep ran here and 409 when another
// instance holds the lease.
func (h AdminHandler) RunSweep(c *gin.Context) {
	res, ran, err := h.Sweeper.RunOnce(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if !ran {
		respondError(c, http.StatusConflict, "SWEEP_IN_PROGRESS", "auto-cancel sweep is held by another instance", nil)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "admin", "sweep", "manual sweep by "+middleware.GetSubject(c))
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) GetPaymentEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("paymentId"))
	ev, err := h.Ledger.GetByPaymentID(c.Request.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, http.StatusNotFound, "PAYMENT_EVENT_NOT_FOUND", "payment event "+id+" not found", nil)
		return
	}
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to load payment event", Err: err})
		return
	}
	c.JSON(http.StatusOK, ev)
}

// ForgetPaymentEvent removes the ledger row so the dead-lettered payload
// can be published to the feed again.
func (h AdminHandler) ForgetPaymentEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("paymentId"))
	deleted, err := h.Ledger.Delete(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to delete payment event", Err: err})
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "PAYMENT_EVENT_NOT_FOUND", "payment event "+id+" not found", nil)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "admin", "forget_payment_event", "payment_id="+id+" by "+middleware.GetSubject(c))
	c.Status(http.StatusNoContent)
}
