package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Clock returns the current time. Services take one so year boundaries and
// report windows can be pinned in tests.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// NumberGenerator hands out invoice numbers of the form PREFIX-YEAR-NNNN,
// sequential per agency and calendar year.
type NumberGenerator struct {
	db  *gorm.DB
	now Clock
}

func NewNumberGenerator(db *gorm.DB, now Clock) *NumberGenerator {
	if now == nil {
		now = SystemClock
	}
	return &NumberGenerator{db: db, now: now}
}

// Generate reserves the next number for the agency. Each call consumes a
// number even if no invoice is created with it.
func (g *NumberGenerator) Generate(ctx context.Context, agencyID uint) (string, error) {
	var number string
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := g.next(tx, agencyID)
		number = n
		return err
	})
	if err != nil {
		return "", txError("generate invoice number", err)
	}
	return number, nil
}

// next runs inside the caller's transaction. On Postgres the sequence row is
// locked until commit, serializing concurrent creates for one agency/year.
func (g *NumberGenerator) next(tx *gorm.DB, agencyID uint) (string, error) {
	var agency models.Agency
	if err := tx.Select("id", "invoice_number_prefix").First(&agency, agencyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFound("agency", agencyID)
		}
		return "", err
	}
	year := g.now().Year()
	prefix := agency.Prefix()
	base := fmt.Sprintf("%s-%d-", prefix, year)

	seq, err := lockSequence(tx, agencyID, year, prefix)
	if err != nil {
		return "", err
	}
	highest, err := maxSuffix(tx, agencyID, base)
	if err != nil {
		return "", err
	}

	next := max(seq.LastNumber, highest) + 1
	if err := tx.Model(seq).Update("last_number", next).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", base, next), nil
}

func lockSequence(tx *gorm.DB, agencyID uint, year int, prefix string) (*models.InvoiceSequence, error) {
	find := func() (*models.InvoiceSequence, error) {
		var seq models.InvoiceSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agency_id = ? AND year = ? AND prefix = ?", agencyID, year, prefix).
			Take(&seq).Error
		return &seq, err
	}
	seq, err := find()
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	fresh := models.InvoiceSequence{AgencyID: agencyID, Year: year, Prefix: prefix}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}
	return find()
}

// maxSuffix returns the highest numeric suffix among all invoices of the
// agency, deleted ones included, whose number is base followed by digits.
func maxSuffix(tx *gorm.DB, agencyID uint, base string) (int, error) {
	var numbers []string
	err := tx.Unscoped().Model(&models.Invoice{}).
		Where("agency_id = ? AND invoice_number LIKE ?", agencyID, base+"%").
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, n := range numbers {
		rest, ok := strings.CutPrefix(n, base)
		if !ok || !isDigits(rest) {
			continue
		}
		v, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		highest = max(highest, v)
	}
	return highest, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// txError passes domain errors through and tags everything else as a
// transaction failure.
func txError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return err
	case isDuplicateKey(err):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransaction, err)
	}
}
