package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/diewo77/invoice-tracker/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AgencyInput struct {
	Name                string `json:"name"`
	TaxID               string `json:"tax_id"`
	Address             string `json:"address"`
	City                string `json:"city"`
	ZipCode             string `json:"zip_code"`
	Country             string `json:"country"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Website             string `json:"website"`
	IsActive            *bool  `json:"is_active"`
	InvoiceNumberPrefix string `json:"invoice_number_prefix"`
}

func (in AgencyInput) Validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.MaxLen("tax_id", in.TaxID, 50, v)
	validation.MaxLen("city", in.City, 100, v)
	validation.MaxLen("zip_code", in.ZipCode, 20, v)
	validation.MaxLen("country", in.Country, 100, v)
	validation.MaxLen("email", in.Email, 255, v)
	p := strings.TrimSpace(in.InvoiceNumberPrefix)
	validation.MaxLen("invoice_number_prefix", p, 20, v)
	validation.Matches("invoice_number_prefix", p, prefixPattern, v)
	return newValidationError(v)
}

func (in AgencyInput) apply(a *models.Agency) {
	a.Name = strings.TrimSpace(in.Name)
	a.TaxID = in.TaxID
	a.Address = in.Address
	a.City = in.City
	a.ZipCode = in.ZipCode
	a.Country = in.Country
	a.Email = in.Email
	a.Phone = in.Phone
	a.Website = in.Website
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	a.InvoiceNumberPrefix = strings.ToUpper(strings.TrimSpace(in.InvoiceNumberPrefix))
	if a.InvoiceNumberPrefix == "" {
		a.InvoiceNumberPrefix = models.DefaultInvoicePrefix
	}
}

type AgencyService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAgencyService(db *gorm.DB, logger *zap.Logger) *AgencyService {
	return &AgencyService{db: db, logger: logger}
}

func (s *AgencyService) Create(ctx context.Context, in AgencyInput) (*models.Agency, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := models.Agency{IsActive: true}
	in.apply(&a)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&a).Error; err != nil {
			return err
		}
		// false is skipped on insert in favour of the column default
		if !a.IsActive {
			return tx.Model(&a).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, txError("create agency", err)
	}
	s.logger.Info("agency created", zap.Uint("agency_id", a.ID), zap.String("name", a.Name))
	return &a, nil
}

func (s *AgencyService) Update(ctx context.Context, id uint, in AgencyInput) (*models.Agency, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error; err != nil {
		return nil, txError("update agency", err)
	}
	return a, nil
}

func (s *AgencyService) Get(ctx context.Context, id uint) (*models.Agency, error) {
	var a models.Agency
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("agency", id)
		}
		return nil, fmt.Errorf("get agency: %w", err)
	}
	return &a, nil
}

// List returns agencies by name, only active ones unless all is set.
func (s *AgencyService) List(ctx context.Context, all bool) ([]models.Agency, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if !all {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Agency
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	return out, nil
}
