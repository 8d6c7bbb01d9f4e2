package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/money"
	"github.com/flowglad/flowglad-sub009/internal/organization/domain"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"github.com/flowglad/flowglad-sub009/pkg/db"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrOrganizationExists = errors.New("organization_exists")

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Ref   referencedomain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	ref   referencedomain.Repository
}

func NewService(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
		repo:  p.Repo,
		ref:   p.Ref,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	countryCode, err := referencedomain.NormalizeCountryCode(req.CountryCode)
	if err != nil {
		return nil, domain.ErrInvalidCountry
	}
	country, err := s.ref.GetCountryByCode(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	if country == nil {
		return nil, domain.ErrInvalidCountry
	}

	feePercentage := strings.TrimSpace(req.FeePercentage)
	pct, err := money.ParsePercentage(feePercentage)
	if err != nil || pct.IsNegative() {
		return nil, domain.ErrInvalidFeePercentage
	}

	contractType := req.StripeConnectContractType
	if contractType == "" {
		contractType = domain.ContractTypePlatform
	}
	if contractType != domain.ContractTypePlatform && contractType != domain.ContractTypeMerchantOfRecord {
		return nil, domain.ErrInvalidContractType
	}

	if req.MonthlyBillingVolumeFreeTier < 0 || req.UpfrontProcessingCredits < 0 {
		return nil, domain.ErrInvalidFreeTier
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:                           s.genID.Generate(),
		Name:                         name,
		Slug:                         slug.Make(name),
		FeePercentage:                money.FormatPercentage(pct),
		StripeConnectContractType:    contractType,
		MonthlyBillingVolumeFreeTier: req.MonthlyBillingVolumeFreeTier,
		UpfrontProcessingCredits:     req.UpfrontProcessingCredits,
		CountryID:                    country.ID,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}

	if err := s.repo.CreateOrganization(ctx, org); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, ErrOrganizationExists
		}
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("contract_type", string(org.StripeConnectContractType)),
	)
	return toResponse(org, country.Code), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}

	var countryCode string
	country, err := s.ref.GetCountryByID(ctx, org.CountryID)
	if err != nil {
		return nil, err
	}
	if country != nil {
		countryCode = country.Code
	}
	return toResponse(*org, countryCode), nil
}

func toResponse(org domain.Organization, countryCode string) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:                           org.ID.String(),
		Name:                         org.Name,
		Slug:                         org.Slug,
		CountryCode:                  countryCode,
		FeePercentage:                org.FeePercentage,
		StripeConnectContractType:    org.StripeConnectContractType,
		MonthlyBillingVolumeFreeTier: org.MonthlyBillingVolumeFreeTier,
		UpfrontProcessingCredits:     org.UpfrontProcessingCredits,
		CreatedAt:                    org.CreatedAt,
	}
}
