package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	WarningMinClients  = "min_clients"
	WarningClientShare = "client_share"
	SeverityError      = "error"

	dateLayout = "2006-01-02"
)

var hundred = decimal.NewFromInt(100)

type ClientShare struct {
	ClientID   uint    `json:"client_id"`
	ClientName string  `json:"client_name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Warning struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	ClientID *uint  `json:"client_id,omitempty"`
}

// Report is the turnover compliance view of one agency.
type Report struct {
	AgencyID         uint          `json:"agency_id"`
	AgencyName       string        `json:"agency_name"`
	CurrentYearTotal float64       `json:"current_year_total"`
	Last365DaysTotal float64       `json:"last_365_days_total"`
	VATThreshold     float64       `json:"vat_threshold"`
	RemainingAmount  float64       `json:"remaining_amount"`
	ClientStructure  []ClientShare `json:"client_structure"`
	Warnings         []Warning     `json:"warnings"`
	PeriodStart      string        `json:"period_start"`
	PeriodEnd        string        `json:"period_end"`
}

// ReportService computes read-only turnover reports.
type ReportService struct {
	db       *gorm.DB
	settings *SettingsStore
	logger   *zap.Logger
	now      Clock
}

func NewReportService(db *gorm.DB, settings *SettingsStore, logger *zap.Logger, now Clock) *ReportService {
	if now == nil {
		now = SystemClock
	}
	if settings == nil {
		settings = NewSettingsStore(db, logger)
	}
	return &ReportService{db: db, settings: settings, logger: logger, now: now}
}

// Generate builds the compliance report over the current calendar year and
// the rolling 365 days ending today. Deleted invoices never count.
func (s *ReportService) Generate(ctx context.Context, agencyID uint) (*Report, error) {
	db := s.db.WithContext(ctx)
	var agency models.Agency
	if err := db.First(&agency, agencyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("agency", agencyID)
		}
		return nil, fmt.Errorf("load agency: %w", err)
	}

	now := s.now().UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	rollingStart := now.AddDate(0, 0, -365)

	yearTotal, err := sumTotals(db, agencyID, yearStart, now)
	if err != nil {
		return nil, err
	}
	rollingTotal, err := sumTotals(db, agencyID, rollingStart, now)
	if err != nil {
		return nil, err
	}
	structure, err := clientStructure(db, agencyID, rollingStart, now)
	if err != nil {
		return nil, err
	}
	rules, err := s.settings.Rules(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	threshold := decimal.NewFromFloat(rules.VATThreshold)
	remaining := decimal.Max(decimal.Zero, threshold.Sub(rollingTotal))

	return &Report{
		AgencyID:         agency.ID,
		AgencyName:       agency.Name,
		CurrentYearTotal: yearTotal.Round(2).InexactFloat64(),
		Last365DaysTotal: rollingTotal.Round(2).InexactFloat64(),
		VATThreshold:     rules.VATThreshold,
		RemainingAmount:  remaining.Round(2).InexactFloat64(),
		ClientStructure:  structure,
		Warnings:         evaluateRules(structure, rules),
		PeriodStart:      rollingStart.Format(dateLayout),
		PeriodEnd:        now.Format(dateLayout),
	}, nil
}

func sumTotals(db *gorm.DB, agencyID uint, from, to time.Time) (decimal.Decimal, error) {
	var total float64
	err := db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(total), 0)").
		Where("agency_id = ? AND issue_date >= ? AND issue_date <= ?", agencyID, from, to).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum invoice totals: %w", err)
	}
	return decimal.NewFromFloat(total), nil
}

type clientRow struct {
	ClientID   uint
	ClientName string
	Total      float64
	Count      int
}

func clientStructure(db *gorm.DB, agencyID uint, from, to time.Time) ([]ClientShare, error) {
	var rows []clientRow
	err := db.Model(&models.Invoice{}).
		Select("invoices.client_id AS client_id, clients.name AS client_name, COALESCE(SUM(invoices.total), 0) AS total, COUNT(*) AS count").
		Joins("JOIN clients ON clients.id = invoices.client_id").
		Where("invoices.agency_id = ? AND invoices.issue_date >= ? AND invoices.issue_date <= ?", agencyID, from, to).
		Group("invoices.client_id, clients.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("client structure: %w", err)
	}
	return shares(rows), nil
}

// shares turns per-client sums into rounded totals and percentages of the
// overall sum, largest first.
func shares(rows []clientRow) []ClientShare {
	total := lo.Reduce(rows, func(acc decimal.Decimal, r clientRow, _ int) decimal.Decimal {
		return acc.Add(decimal.NewFromFloat(r.Total))
	}, decimal.Zero)

	out := lo.Map(rows, func(r clientRow, _ int) ClientShare {
		amount := decimal.NewFromFloat(r.Total)
		pct := decimal.Zero
		if total.IsPositive() {
			pct = amount.Div(total).Mul(hundred)
		}
		return ClientShare{
			ClientID:   r.ClientID,
			ClientName: r.ClientName,
			Total:      amount.Round(2).InexactFloat64(),
			Count:      r.Count,
			Percentage: pct.Round(2).InexactFloat64(),
		}
	})
	slices.SortStableFunc(out, func(a, b ClientShare) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		}
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	return out
}

// evaluateRules applies the client count minimum and the per-client share
// maximum. Equality with the maximum is allowed.
func evaluateRules(structure []ClientShare, rules AgencyRules) []Warning {
	warnings := []Warning{}
	if n := len(structure); n < rules.MinClients {
		warnings = append(warnings, Warning{
			Type:     WarningMinClients,
			Message:  fmt.Sprintf("Agency has only %d client(s) with invoices in the last 365 days. Minimum required is %d.", n, rules.MinClients),
			Severity: SeverityError,
		})
	}
	for _, c := range structure {
		if c.Percentage <= rules.MaxClientSharePercent {
			continue
		}
		id := c.ClientID
		warnings = append(warnings, Warning{
			Type:     WarningClientShare,
			Message:  fmt.Sprintf("Client \"%s\" represents %.2f%% of turnover (maximum allowed is %.2f%%).", c.ClientName, c.Percentage, rules.MaxClientSharePercent),
			Severity: SeverityError,
			ClientID: &id,
		})
	}
	return warnings
}

// PeriodQuery selects an agency and an inclusive date range.
type PeriodQuery struct {
	AgencyID uint
	Start    *time.Time
	End      *time.Time
}

func (q PeriodQuery) complete() bool {
	return q.AgencyID != 0 && q.Start != nil && q.End != nil
}

type PeriodInvoice struct {
	ID            uint       `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	TaxAmount     float64    `json:"tax_amount"`
	Total         float64    `json:"total"`
	AgencyID      uint       `json:"agency_id"`
	AgencyName    string     `json:"agency_name"`
	ClientID      uint       `json:"client_id"`
	ClientName    string     `json:"client_name"`
}

type PeriodReport struct {
	Invoices      []PeriodInvoice `json:"invoices"`
	TotalAmount   float64         `json:"total_amount"`
	ClientSummary []ClientShare   `json:"client_summary"`
}

// Period lists an agency's live invoices issued between Start and End, both
// days included. An incomplete query yields an empty report.
func (s *ReportService) Period(ctx context.Context, q PeriodQuery) (*PeriodReport, error) {
	out := &PeriodReport{Invoices: []PeriodInvoice{}, ClientSummary: []ClientShare{}}
	if !q.complete() {
		return out, nil
	}

	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Agency").
		Preload("Client").
		Where("agency_id = ? AND issue_date >= ? AND issue_date < ?",
			q.AgencyID, startOfDay(*q.Start), startOfDay(*q.End).AddDate(0, 0, 1)).
		Order("issue_date DESC").
		Order("id DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("period invoices: %w", err)
	}

	out.Invoices = lo.Map(invoices, func(inv models.Invoice, _ int) PeriodInvoice {
		return PeriodInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			IssueDate:     inv.IssueDate,
			DueDate:       inv.DueDate,
			Subtotal:      inv.Subtotal,
			TaxAmount:     inv.TaxAmount,
			Total:         inv.Total,
			AgencyID:      inv.AgencyID,
			AgencyName:    agencyName(inv.Agency),
			ClientID:      inv.ClientID,
			ClientName:    clientName(inv.Client),
		}
	})

	grouped := lo.GroupBy(out.Invoices, func(inv PeriodInvoice) uint { return inv.ClientID })
	rows := make([]clientRow, 0, len(grouped))
	for clientID, group := range grouped {
		sum := lo.Reduce(group, func(acc decimal.Decimal, inv PeriodInvoice, _ int) decimal.Decimal {
			return acc.Add(decimal.NewFromFloat(inv.Total))
		}, decimal.Zero)
		rows = append(rows, clientRow{
			ClientID:   clientID,
			ClientName: group[0].ClientName,
			Total:      sum.InexactFloat64(),
			Count:      len(group),
		})
	}
	out.ClientSummary = shares(rows)
	out.TotalAmount = round2(lo.SumBy(rows, func(r clientRow) float64 { return r.Total }))
	return out, nil
}

func agencyName(a *models.Agency) string {
	if a == nil {
		return "Unknown"
	}
	return a.Name
}

func clientName(c *models.Client) string {
	if c == nil {
		return "Unknown"
	}
	return c.Name
}
