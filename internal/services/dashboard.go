package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStats struct {
	Total     int64   `json:"total"`
	ThisMonth int64   `json:"this_month"`
	Trend     float64 `json:"trend"`
}

type RevenueStats struct {
	Total       float64 `json:"total"`
	ThisMonth   float64 `json:"this_month"`
	ThisYear    float64 `json:"this_year"`
	Last365Days float64 `json:"last_365_days"`
	Trend       float64 `json:"trend"`
}

type RecentInvoice struct {
	ID            uint    `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	AgencyName    string  `json:"agency_name"`
	ClientName    string  `json:"client_name"`
	Total         float64 `json:"total"`
	IssueDate     string  `json:"issue_date"`
}

type MonthlyRevenue struct {
	Month   int     `json:"month"`
	Revenue float64 `json:"revenue"`
}

type AgencyStats struct {
	ID                 uint    `json:"id"`
	Name               string  `json:"name"`
	InvoiceCount       int64   `json:"invoice_count"`
	CurrentYearRevenue float64 `json:"current_year_revenue"`
	Last365DaysRevenue float64 `json:"last_365_days_revenue"`
}

type Dashboard struct {
	Agencies       int64            `json:"agencies"`
	Clients        int64            `json:"clients"`
	Products       int64            `json:"products"`
	Invoices       InvoiceStats     `json:"invoices"`
	Revenue        RevenueStats     `json:"revenue"`
	RecentInvoices []RecentInvoice  `json:"recent_invoices"`
	MonthlyRevenue []MonthlyRevenue `json:"monthly_revenue"`
	AgencyStats    []AgencyStats    `json:"agency_stats"`
}

// DashboardService aggregates cross-agency figures for the home screen.
type DashboardService struct {
	db  *gorm.DB
	now Clock
}

func NewDashboardService(db *gorm.DB, now Clock) *DashboardService {
	if now == nil {
		now = SystemClock
	}
	return &DashboardService{db: db, now: now}
}

func (s *DashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	rollingStart := now.AddDate(0, 0, -365)

	d := &Dashboard{}
	if err := db.Model(&models.Agency{}).Where("is_active = ?", true).Count(&d.Agencies).Error; err != nil {
		return nil, fmt.Errorf("count agencies: %w", err)
	}
	if err := db.Model(&models.Client{}).Count(&d.Clients).Error; err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if err := db.Model(&models.Product{}).Count(&d.Products).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	thisMonth, err := windowStats(db, &monthStart, nil)
	if err != nil {
		return nil, err
	}
	lastMonth, err := windowStats(db, &lastMonthStart, &monthStart)
	if err != nil {
		return nil, err
	}
	all, err := windowStats(db, nil, nil)
	if err != nil {
		return nil, err
	}
	thisYear, err := windowStats(db, &yearStart, nil)
	if err != nil {
		return nil, err
	}
	rolling, err := windowStats(db, &rollingStart, nil)
	if err != nil {
		return nil, err
	}

	d.Invoices = InvoiceStats{
		Total:     all.Count,
		ThisMonth: thisMonth.Count,
		Trend:     trend(float64(thisMonth.Count), float64(lastMonth.Count)),
	}
	d.Revenue = RevenueStats{
		Total:       round2(all.Total),
		ThisMonth:   round2(thisMonth.Total),
		ThisYear:    round2(thisYear.Total),
		Last365Days: round2(rolling.Total),
		Trend:       trend(thisMonth.Total, lastMonth.Total),
	}

	if d.RecentInvoices, err = recentInvoices(db, 5); err != nil {
		return nil, err
	}
	if d.MonthlyRevenue, err = monthlyRevenue(db, yearStart); err != nil {
		return nil, err
	}
	if d.AgencyStats, err = agencyStats(db, yearStart, rollingStart); err != nil {
		return nil, err
	}
	return d, nil
}

type windowRow struct {
	Count int64
	Total float64
}

// windowStats counts and sums live invoices issued in [from, to). Nil bounds
// are open.
func windowStats(db *gorm.DB, from, to *time.Time) (windowRow, error) {
	q := db.Model(&models.Invoice{}).Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS total")
	if from != nil {
		q = q.Where("issue_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("issue_date < ?", *to)
	}
	var row windowRow
	if err := q.Scan(&row).Error; err != nil {
		return row, fmt.Errorf("invoice stats: %w", err)
	}
	return row, nil
}

// trend is the month over month change in percent, one decimal. Growth from
// nothing counts as 100.
func trend(current, previous float64) float64 {
	if previous > 0 {
		c, p := decimal.NewFromFloat(current), decimal.NewFromFloat(previous)
		return c.Sub(p).Div(p).Mul(hundred).Round(1).InexactFloat64()
	}
	if current > 0 {
		return 100
	}
	return 0
}

func recentInvoices(db *gorm.DB, limit int) ([]RecentInvoice, error) {
	var invoices []models.Invoice
	err := db.Preload("Agency").Preload("Client").
		Order("issue_date DESC").Order("id DESC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("recent invoices: %w", err)
	}
	return lo.Map(invoices, func(inv models.Invoice, _ int) RecentInvoice {
		return RecentInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			AgencyName:    agencyName(inv.Agency),
			ClientName:    clientName(inv.Client),
			Total:         round2(inv.Total),
			IssueDate:     inv.IssueDate.UTC().Format(dateLayout),
		}
	}), nil
}

func monthlyRevenue(db *gorm.DB, yearStart time.Time) ([]MonthlyRevenue, error) {
	var invoices []models.Invoice
	err := db.Select("issue_date", "total").
		Where("issue_date >= ?", yearStart).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	byMonth := lo.GroupBy(invoices, func(inv models.Invoice) int { return int(inv.IssueDate.UTC().Month()) })
	out := make([]MonthlyRevenue, 0, len(byMonth))
	for month, group := range byMonth {
		sum := lo.Reduce(group, func(acc decimal.Decimal, inv models.Invoice, _ int) decimal.Decimal {
			return acc.Add(decimal.NewFromFloat(inv.Total))
		}, decimal.Zero)
		out = append(out, MonthlyRevenue{Month: month, Revenue: sum.Round(2).InexactFloat64()})
	}
	slices.SortFunc(out, func(a, b MonthlyRevenue) int { return cmp.Compare(a.Month, b.Month) })
	return out, nil
}

type agencyRevenueRow struct {
	AgencyID     uint
	InvoiceCount int64
	YearTotal    float64
	RollingTotal float64
}

func agencyStats(db *gorm.DB, yearStart, rollingStart time.Time) ([]AgencyStats, error) {
	var agencies []models.Agency
	if err := db.Where("is_active = ?", true).Find(&agencies).Error; err != nil {
		return nil, fmt.Errorf("active agencies: %w", err)
	}
	var rows []agencyRevenueRow
	err := db.Model(&models.Invoice{}).
		Select(`agency_id,
			COUNT(*) AS invoice_count,
			COALESCE(SUM(CASE WHEN issue_date >= ? THEN total ELSE 0 END), 0) AS year_total,
			COALESCE(SUM(CASE WHEN issue_date >= ? THEN total ELSE 0 END), 0) AS rolling_total`,
			yearStart, rollingStart).
		Group("agency_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("agency revenue: %w", err)
	}
	byAgency := lo.KeyBy(rows, func(r agencyRevenueRow) uint { return r.AgencyID })

	out := lo.Map(agencies, func(a models.Agency, _ int) AgencyStats {
		r := byAgency[a.ID]
		return AgencyStats{
			ID:                 a.ID,
			Name:               a.Name,
			InvoiceCount:       r.InvoiceCount,
			CurrentYearRevenue: round2(r.YearTotal),
			Last365DaysRevenue: round2(r.RollingTotal),
		}
	})
	slices.SortStableFunc(out, func(a, b AgencyStats) int {
		return cmp.Compare(b.Last365DaysRevenue, a.Last365DaysRevenue)
	})
	return out, nil
}
