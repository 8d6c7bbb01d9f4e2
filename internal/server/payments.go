package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type settlePaymentRequest struct {
	ChargeDate string `json:"charge_date"`
}

type refundPaymentRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"), "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	payment, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// SettlePayment accepts an empty body; charge_date defaults to now.
func (s *Server) SettlePayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"), "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req settlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}
	chargeDate, err := parseOptionalTime(req.ChargeDate)
	if err != nil {
		AbortWithError(c, newValidationError("charge_date", "invalid_charge_date", "invalid charge date"))
		return
	}

	var at time.Time
	if chargeDate != nil {
		at = *chargeDate
	}
	payment, err := s.paymentSvc.Settle(c.Request.Context(), id, at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) RefundPayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"), "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req refundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.Refund(c.Request.Context(), id, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}
