package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/diewo77/invoice-tracker/validation"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgencyPrice links a product to an agency. A nil Price bills the base price.
type AgencyPrice struct {
	AgencyID uint     `json:"agency_id"`
	Price    *float64 `json:"price"`
}

type ProductInput struct {
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Unit        string        `json:"unit"`
	Agencies    []AgencyPrice `json:"agencies"`
}

func (in ProductInput) Validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.MaxLen("code", in.Code, 50, v)
	validation.MaxLen("unit", in.Unit, 50, v)
	validation.NonNegativeFloat("price", in.Price, v)
	if len(in.Agencies) == 0 {
		v.Add("agencies", "required")
	}
	for i, ap := range in.Agencies {
		if ap.Price != nil {
			validation.NonNegativeFloat(fmt.Sprintf("agencies.%d.price", i), *ap.Price, v)
		}
	}
	return newValidationError(v)
}

type ProductService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewProductService(db *gorm.DB, logger *zap.Logger) *ProductService {
	return &ProductService{db: db, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	return s.save(ctx, 0, in)
}

func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	return s.save(ctx, id, in)
}

// save writes the product and replaces its agency price rows in one
// transaction. Later duplicates of an agency win.
func (s *ProductService) save(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	links := lo.Values(lo.KeyBy(in.Agencies, func(ap AgencyPrice) uint { return ap.AgencyID }))

	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := lo.Map(links, func(ap AgencyPrice, _ int) uint { return ap.AgencyID })
		if _, err := loadAgencies(tx, ids); err != nil {
			return err
		}
		if id != 0 {
			if err := tx.First(&p, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("product", id)
				}
				return err
			}
		}
		p.Name = strings.TrimSpace(in.Name)
		p.Code = in.Code
		p.Description = in.Description
		p.Price = in.Price
		p.Unit = in.Unit
		if p.Unit == "" {
			p.Unit = "unit"
		}
		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.AgencyProduct{}).Error; err != nil {
			return err
		}
		rows := lo.Map(links, func(ap AgencyPrice, _ int) models.AgencyProduct {
			return models.AgencyProduct{AgencyID: ap.AgencyID, ProductID: p.ID, Price: ap.Price}
		})
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, txError("save product", err)
	}
	s.logger.Info("product saved", zap.Uint("product_id", p.ID), zap.Int("agencies", len(links)))
	return s.Get(ctx, p.ID)
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Preload("AgencyPrices", func(db *gorm.DB) *gorm.DB { return db.Order("agency_id ASC") }).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListForAgency returns the products an agency may bill, by name.
func (s *ProductService) ListForAgency(ctx context.Context, agencyID uint) ([]models.Product, error) {
	var out []models.Product
	err := s.db.WithContext(ctx).
		Joins("JOIN agency_products ON agency_products.product_id = products.id AND agency_products.agency_id = ?", agencyID).
		Preload("AgencyPrices", "agency_id = ?", agencyID).
		Order("products.name ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// EffectivePrice is the agency override when set, otherwise the base price.
func (s *ProductService) EffectivePrice(ctx context.Context, agencyID, productID uint) (float64, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.PriceFor(agencyID), nil
}
