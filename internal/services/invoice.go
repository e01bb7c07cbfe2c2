package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/invoice-tracker/internal/events"
	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/diewo77/invoice-tracker/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxNumberAttempts bounds how often a generated number is redrawn after a
// unique constraint collision.
const maxNumberAttempts = 3

type ItemInput struct {
	ProductID   *uint
	Description string
	Quantity    float64
	UnitPrice   float64
}

// InvoiceInput is the writable part of an invoice. An empty InvoiceNumber
// asks Create for a generated one and tells Update to keep the current one.
type InvoiceInput struct {
	AgencyID      uint
	ClientID      uint
	InvoiceNumber string
	IssueDate     time.Time
	DueDate       *time.Time
	Notes         string
	Items         []ItemInput
}

func (in *InvoiceInput) normalize() {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	in.IssueDate = startOfDay(in.IssueDate)
	if in.DueDate != nil {
		d := startOfDay(*in.DueDate)
		in.DueDate = &d
	}
	for i := range in.Items {
		in.Items[i].Description = strings.TrimSpace(in.Items[i].Description)
		if in.Items[i].ProductID != nil && *in.Items[i].ProductID == 0 {
			in.Items[i].ProductID = nil
		}
	}
}

// Validate checks the input against today's date in UTC.
func (in InvoiceInput) Validate(now time.Time) error {
	v := validation.Violations{}
	if in.AgencyID == 0 {
		v.Add("agency_id", "required")
	}
	if in.ClientID == 0 {
		v.Add("client_id", "required")
	}
	validation.MaxLen("invoice_number", in.InvoiceNumber, 255, v)
	if in.IssueDate.IsZero() {
		v.Add("issue_date", "required")
	} else if startOfDay(in.IssueDate).After(startOfDay(now)) {
		v.Add("issue_date", "after_today")
	}
	if in.DueDate != nil && !in.IssueDate.IsZero() && startOfDay(*in.DueDate).Before(startOfDay(in.IssueDate)) {
		v.Add("due_date", "before_issue_date")
	}
	if len(in.Items) == 0 {
		v.Add("items", "required")
	}
	for i, it := range in.Items {
		field := fmt.Sprintf("items.%d.", i)
		validation.PositiveFloat(field+"quantity", it.Quantity, v)
		validation.NonNegativeFloat(field+"unit_price", it.UnitPrice, v)
		validation.MaxLen(field+"description", it.Description, 500, v)
		if it.ProductID == nil {
			validation.Required(field+"description", it.Description, v)
		}
	}
	return newValidationError(v)
}

func (in InvoiceInput) lineItems() []LineItem {
	out := make([]LineItem, len(in.Items))
	for i, it := range in.Items {
		out[i] = LineItem{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func (in InvoiceInput) invoiceItems(invoiceID uint) []models.InvoiceItem {
	out := make([]models.InvoiceItem, len(in.Items))
	for i, it := range in.Items {
		out[i] = models.InvoiceItem{
			InvoiceID:   invoiceID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       LineTotal(it.Quantity, it.UnitPrice).InexactFloat64(),
			SortOrder:   i,
		}
	}
	return out
}

type ListFilter struct {
	AgencyID    uint
	ClientID    uint
	From        *time.Time
	To          *time.Time
	WithDeleted bool
}

// InvoiceService owns the invoice lifecycle. Writes run in one transaction
// and events are dispatched only after commit.
type InvoiceService struct {
	db      *gorm.DB
	numbers *NumberGenerator
	events  events.Dispatcher
	logger  *zap.Logger
	now     Clock
}

func NewInvoiceService(db *gorm.DB, numbers *NumberGenerator, dispatcher events.Dispatcher, logger *zap.Logger, now Clock) *InvoiceService {
	if now == nil {
		now = SystemClock
	}
	if numbers == nil {
		numbers = NewNumberGenerator(db, now)
	}
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &InvoiceService{db: db, numbers: numbers, events: dispatcher, logger: logger, now: now}
}

func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	in.normalize()
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	attempts := 1
	if in.InvoiceNumber == "" {
		attempts = maxNumberAttempts
	}
	var (
		id  uint
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		id, err = s.create(ctx, in)
		if !errors.Is(err, ErrConflict) {
			break
		}
		s.logger.Warn("invoice number collision",
			zap.Uint("agency_id", in.AgencyID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	if err != nil {
		return nil, err
	}

	inv, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice created",
		zap.Uint("invoice_id", inv.ID),
		zap.Uint("agency_id", inv.AgencyID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Float64("total", inv.Total))
	s.dispatch(ctx, events.InvoiceCreated, inv)
	return inv, nil
}

func (s *InvoiceService) create(ctx context.Context, in InvoiceInput) (uint, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		number := in.InvoiceNumber
		if number == "" {
			n, err := s.numbers.next(tx, in.AgencyID)
			if err != nil {
				return err
			}
			number = n
		} else if err := ensureNumberFree(tx, in.AgencyID, number, 0); err != nil {
			return err
		}

		totals := CalculateTotals(in.lineItems())
		inv := models.Invoice{
			AgencyID:      in.AgencyID,
			ClientID:      in.ClientID,
			InvoiceNumber: number,
			IssueDate:     in.IssueDate,
			DueDate:       in.DueDate,
			Subtotal:      totals.Subtotal,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			Notes:         in.Notes,
		}
		if err := tx.Omit(clause.Associations).Create(&inv).Error; err != nil {
			return err
		}
		items := in.invoiceItems(inv.ID)
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
		id = inv.ID
		return nil
	})
	if err != nil {
		return 0, txError("create invoice", err)
	}
	return id, nil
}

// Update overwrites the header and replaces the whole item set.
func (s *InvoiceService) Update(ctx context.Context, id uint, in InvoiceInput) (*models.Invoice, error) {
	in.normalize()
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Invoice
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("invoice", id)
			}
			return err
		}
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		number := in.InvoiceNumber
		if number == "" {
			number = current.InvoiceNumber
		}
		if number != current.InvoiceNumber || in.AgencyID != current.AgencyID {
			if err := ensureNumberFree(tx, in.AgencyID, number, id); err != nil {
				return err
			}
		}

		totals := CalculateTotals(in.lineItems())
		err := tx.Model(&current).Select(
			"agency_id", "client_id", "invoice_number", "issue_date", "due_date",
			"subtotal", "tax_amount", "total", "notes",
		).Updates(models.Invoice{
			AgencyID:      in.AgencyID,
			ClientID:      in.ClientID,
			InvoiceNumber: number,
			IssueDate:     in.IssueDate,
			DueDate:       in.DueDate,
			Subtotal:      totals.Subtotal,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			Notes:         in.Notes,
		}).Error
		if err != nil {
			return err
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		items := in.invoiceItems(id)
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		return nil, txError("update invoice", err)
	}

	inv, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice updated", zap.Uint("invoice_id", id), zap.Int("items", len(inv.Items)))
	s.dispatch(ctx, events.InvoiceUpdated, inv)
	return inv, nil
}

// Delete soft deletes the invoice. Its number stays reserved.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Invoice{}, id)
	if res.Error != nil {
		return txError("delete invoice", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("invoice", id)
	}

	inv, err := s.load(ctx, id, true)
	if err != nil {
		return err
	}
	s.logger.Info("invoice deleted", zap.Uint("invoice_id", id), zap.String("invoice_number", inv.InvoiceNumber))
	s.dispatch(ctx, events.InvoiceDeleted, inv)
	return nil
}

// Get returns the fully loaded invoice. Soft-deleted invoices are only
// returned when withDeleted is set.
func (s *InvoiceService) Get(ctx context.Context, id uint, withDeleted bool) (*models.Invoice, error) {
	return s.load(ctx, id, withDeleted)
}

// List returns invoices newest issue date first, with agency and client.
func (s *InvoiceService) List(ctx context.Context, f ListFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Preload("Agency").Preload("Client")
	if f.WithDeleted {
		q = q.Unscoped()
	}
	if f.AgencyID != 0 {
		q = q.Where("agency_id = ?", f.AgencyID)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.From != nil {
		q = q.Where("issue_date >= ?", startOfDay(*f.From))
	}
	if f.To != nil {
		q = q.Where("issue_date < ?", startOfDay(*f.To).AddDate(0, 0, 1))
	}
	var out []models.Invoice
	if err := q.Order("issue_date DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

func (s *InvoiceService) load(ctx context.Context, id uint, withDeleted bool) (*models.Invoice, error) {
	q := s.db.WithContext(ctx).
		Preload("Agency").
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Items.Product")
	if withDeleted {
		q = q.Unscoped()
	}
	var inv models.Invoice
	if err := q.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("invoice", id)
		}
		return nil, fmt.Errorf("load invoice %d: %w", id, err)
	}
	return &inv, nil
}

func (s *InvoiceService) dispatch(ctx context.Context, name events.Name, inv *models.Invoice) {
	if err := s.events.Dispatch(ctx, events.New(name, inv, s.now())); err != nil {
		s.logger.Warn("event dispatch failed",
			zap.String("event", string(name)),
			zap.Uint("invoice_id", inv.ID),
			zap.Error(err))
	}
}

func checkReferences(tx *gorm.DB, in InvoiceInput) error {
	if err := exists(tx, &models.Agency{}, "agency", in.AgencyID); err != nil {
		return err
	}
	if err := exists(tx, &models.Client{}, "client", in.ClientID); err != nil {
		return err
	}
	for _, it := range in.Items {
		if it.ProductID == nil {
			continue
		}
		if err := exists(tx, &models.Product{}, "product", *it.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func exists(tx *gorm.DB, model any, entity string, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

// ensureNumberFree rejects an explicit number already used by a live
// invoice of the agency. Deleted invoices are left to the unique index.
func ensureNumberFree(tx *gorm.DB, agencyID uint, number string, exceptID uint) error {
	var n int64
	err := tx.Model(&models.Invoice{}).
		Where("agency_id = ? AND invoice_number = ? AND id <> ?", agencyID, number, exceptID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return newValidationError(validation.Violations{"invoice_number": "taken"})
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
