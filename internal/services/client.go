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

// ClientInput describes a client and the agencies allowed to bill it.
type ClientInput struct {
	Name      string `json:"name"`
	TaxID     string `json:"tax_id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	AgencyIDs []uint `json:"agency_ids"`
}

func (in ClientInput) Validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.MaxLen("email", in.Email, 255, v)
	validation.MaxLen("zip_code", in.ZipCode, 20, v)
	if len(in.AgencyIDs) == 0 {
		v.Add("agency_ids", "required")
	}
	return newValidationError(v)
}

func (in ClientInput) apply(c *models.Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.TaxID = in.TaxID
	c.Email = in.Email
	c.Phone = in.Phone
	c.Note = in.Note
	c.Address = in.Address
	c.City = in.City
	c.ZipCode = in.ZipCode
	c.Country = in.Country
}

type ClientService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewClientService(db *gorm.DB, logger *zap.Logger) *ClientService {
	return &ClientService{db: db, logger: logger}
}

func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	return s.save(ctx, 0, in)
}

func (s *ClientService) Update(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	return s.save(ctx, id, in)
}

// save writes the client and replaces its agency links in one transaction.
func (s *ClientService) save(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var c models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agencies, err := loadAgencies(tx, in.AgencyIDs)
		if err != nil {
			return err
		}
		if id != 0 {
			if err := tx.First(&c, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("client", id)
				}
				return err
			}
		}
		in.apply(&c)
		if err := tx.Omit(clause.Associations).Save(&c).Error; err != nil {
			return err
		}
		return tx.Model(&c).Association("Agencies").Replace(agencies)
	})
	if err != nil {
		return nil, txError("save client", err)
	}
	s.logger.Info("client saved", zap.Uint("client_id", c.ID), zap.Uints("agency_ids", in.AgencyIDs))
	return s.Get(ctx, c.ID)
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Preload("Agencies").First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("client", id)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// List returns clients by name, restricted to one agency when agencyID is set.
func (s *ClientService) List(ctx context.Context, agencyID uint) ([]models.Client, error) {
	q := s.db.WithContext(ctx).Order("clients.name ASC")
	if agencyID != 0 {
		q = q.Joins("JOIN agency_client ON agency_client.client_id = clients.id AND agency_client.agency_id = ?", agencyID)
	}
	var out []models.Client
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

func loadAgencies(tx *gorm.DB, ids []uint) ([]models.Agency, error) {
	ids = lo.Uniq(ids)
	var agencies []models.Agency
	if err := tx.Where("id IN ?", ids).Find(&agencies).Error; err != nil {
		return nil, err
	}
	if len(agencies) != len(ids) {
		found := lo.Map(agencies, func(a models.Agency, _ int) uint { return a.ID })
		missing, _ := lo.Difference(ids, found)
		return nil, notFound("agency", missing[0])
	}
	return agencies, nil
}
