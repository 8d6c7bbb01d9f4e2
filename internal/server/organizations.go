package server

import (
	"net/http"
	"strings"

	organizationdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

type createOrganizationRequest struct {
	Name                         string `json:"name"`
	CountryCode                  string `json:"country_code"`
	FeePercentage                string `json:"fee_percentage"`
	StripeConnectContractType    string `json:"stripe_connect_contract_type"`
	MonthlyBillingVolumeFreeTier int64  `json:"monthly_billing_volume_free_tier"`
	UpfrontProcessingCredits     int64  `json:"upfront_processing_credits"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.organizationSvc.Create(c.Request.Context(), organizationdomain.CreateOrganizationRequest{
		Name:                         strings.TrimSpace(req.Name),
		CountryCode:                  strings.TrimSpace(req.CountryCode),
		FeePercentage:                strings.TrimSpace(req.FeePercentage),
		StripeConnectContractType:    organizationdomain.ContractType(strings.TrimSpace(req.StripeConnectContractType)),
		MonthlyBillingVolumeFreeTier: req.MonthlyBillingVolumeFreeTier,
		UpfrontProcessingCredits:     req.UpfrontProcessingCredits,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetOrganizationByID(c *gin.Context) {
	resp, err := s.organizationSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
