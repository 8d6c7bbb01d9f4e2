package server

import (
	"net/http"
	"strings"

	feecalculationdomain "github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	feecalculationservice "github.com/flowglad/flowglad-sub009/internal/feecalculation/service"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type checkoutSessionInvoiceRequest struct {
	OrganizationID    string                   `json:"organization_id"`
	CheckoutSessionID string                   `json:"checkout_session_id"`
	InvoiceID         string                   `json:"invoice_id"`
	PaymentMethodType string                   `json:"payment_method_type"`
	BillingAddress    taxdomain.BillingAddress `json:"billing_address"`
	Livemode          bool                     `json:"livemode"`
}

type checkoutSessionPriceRequest struct {
	OrganizationID    string                   `json:"organization_id"`
	CheckoutSessionID string                   `json:"checkout_session_id"`
	PriceID           string                   `json:"price_id"`
	PurchaseID        string                   `json:"purchase_id"`
	DiscountID        string                   `json:"discount_id"`
	Quantity          int64                    `json:"quantity"`
	PaymentMethodType string                   `json:"payment_method_type"`
	BillingAddress    taxdomain.BillingAddress `json:"billing_address"`
	Livemode          bool                     `json:"livemode"`
}

type billingPeriodRequest struct {
	OrganizationID    string                   `json:"organization_id"`
	BillingPeriodID   string                   `json:"billing_period_id"`
	PaymentMethodType string                   `json:"payment_method_type"`
	BillingAddress    taxdomain.BillingAddress `json:"billing_address"`
	Livemode          bool                     `json:"livemode"`
}

func paymentMethodType(raw string) feecalculationdomain.PaymentMethodType {
	return feecalculationdomain.PaymentMethodType(strings.ToLower(strings.TrimSpace(raw)))
}

func (s *Server) CreateCheckoutSessionInvoiceFeeCalculation(c *gin.Context) {
	var req checkoutSessionInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, err := parseSnowflakeID(req.OrganizationID, "organization_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sessionID, err := parseSnowflakeID(req.CheckoutSessionID, "checkout_session_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID, err := parseSnowflakeID(req.InvoiceID, "invoice_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var calc *feecalculationdomain.FeeCalculation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		calc, err = s.feeSvc.CreateCheckoutSessionInvoiceFeeCalculation(ctx, tx, feecalculationservice.CheckoutSessionInvoiceInput{
			OrgID:             orgID,
			CheckoutSessionID: sessionID,
			InvoiceID:         invoiceID,
			PaymentMethodType: paymentMethodType(req.PaymentMethodType),
			BillingAddress:    req.BillingAddress,
			Livemode:          req.Livemode,
		})
		return err
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": calc})
}

func (s *Server) CreateCheckoutSessionPriceFeeCalculation(c *gin.Context) {
	var req checkoutSessionPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Quantity < 0 {
		AbortWithError(c, newValidationError("quantity", "invalid_quantity", "invalid quantity"))
		return
	}

	orgID, err := parseSnowflakeID(req.OrganizationID, "organization_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sessionID, err := parseSnowflakeID(req.CheckoutSessionID, "checkout_session_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	priceID, err := parseSnowflakeID(req.PriceID, "price_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	purchaseID, err := parseOptionalSnowflakeID(req.PurchaseID, "purchase_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	discountID, err := parseOptionalSnowflakeID(req.DiscountID, "discount_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var calc *feecalculationdomain.FeeCalculation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		calc, err = s.feeSvc.CreateCheckoutSessionPriceFeeCalculation(ctx, tx, feecalculationservice.CheckoutSessionPriceInput{
			OrgID:             orgID,
			CheckoutSessionID: sessionID,
			PriceID:           priceID,
			PurchaseID:        purchaseID,
			DiscountID:        discountID,
			Quantity:          req.Quantity,
			PaymentMethodType: paymentMethodType(req.PaymentMethodType),
			BillingAddress:    req.BillingAddress,
			Livemode:          req.Livemode,
		})
		return err
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": calc})
}

func (s *Server) CreateSubscriptionFeeCalculation(c *gin.Context) {
	var req billingPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, err := parseSnowflakeID(req.OrganizationID, "organization_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	billingPeriodID, err := parseSnowflakeID(req.BillingPeriodID, "billing_period_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var calc *feecalculationdomain.FeeCalculation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		calc, err = s.feeSvc.CreateSubscriptionFeeCalculation(ctx, tx, feecalculationservice.SubscriptionInput{
			OrgID:             orgID,
			BillingPeriodID:   billingPeriodID,
			PaymentMethodType: paymentMethodType(req.PaymentMethodType),
			BillingAddress:    req.BillingAddress,
			Livemode:          req.Livemode,
		})
		return err
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": calc})
}

func (s *Server) GetFeeCalculationByID(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"), "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	calc, err := s.feeSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": calc})
}

func (s *Server) FinalizeFeeCalculation(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"), "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	calc, err := s.feeSvc.FinalizeByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": calc})
}

func (s *Server) ListFeeCalculations(c *gin.Context) {
	orgID, err := parseSnowflakeID(c.Param("id"), "id")
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, pageInfo, err := s.feeSvc.List(c.Request.Context(), orgID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}
