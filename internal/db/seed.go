package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/diewo77/invoice-tracker/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedAgency struct {
	name, taxID, address string
	clients              []int // 1-based indexes into the seeded clients
}

var seedAgencies = []seedAgency{
	{"Digital Solutions Agency", "105123456", "Kneza Mihaila 15", []int{1, 2, 3, 4, 5}},
	{"Creative Works Studio", "105789012", "Nemanjina 28", []int{2, 3, 4, 5, 6}},
	{"Tech Innovations Ltd", "105345678", "Terazije 27", []int{1, 3, 4, 5, 6}},
}

var seedProducts = []string{"Web Development", "Graphic Design", "Marketing Services", "Consulting", "Software License"}

const seedClients = 6

type seedLine struct {
	product  int // index into seedProducts
	quantity float64
	price    float64 // zero bills the product price
}

// Seed inserts demo agencies, clients, products and invoices. Existing rows
// are matched by name or email and left alone, so it can run on every start.
func Seed(ctx context.Context, db *gorm.DB, log *zap.Logger, now services.Clock) error {
	if now == nil {
		now = services.SystemClock
	}
	agencySvc := services.NewAgencyService(db, log)
	clientSvc := services.NewClientService(db, log)
	productSvc := services.NewProductService(db, log)

	agencies := make([]*models.Agency, len(seedAgencies))
	for i, sa := range seedAgencies {
		var existing models.Agency
		err := db.WithContext(ctx).Where("name = ?", sa.name).First(&existing).Error
		switch {
		case err == nil:
			agencies[i] = &existing
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("seed agency %s: %w", sa.name, err)
		}
		a, err := agencySvc.Create(ctx, services.AgencyInput{
			Name: sa.name, TaxID: sa.taxID, Address: sa.address,
			City: "Belgrade", ZipCode: "11000", Country: "Serbia",
		})
		if err != nil {
			return fmt.Errorf("seed agency %s: %w", sa.name, err)
		}
		agencies[i] = a
	}

	clients := make([]uint, seedClients+1)
	for i := 1; i <= seedClients; i++ {
		email := fmt.Sprintf("client%d@example.com", i)
		var existing models.Client
		err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
		if err == nil {
			clients[i] = existing.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed client %d: %w", i, err)
		}
		var agencyIDs []uint
		for j, sa := range seedAgencies {
			for _, c := range sa.clients {
				if c == i {
					agencyIDs = append(agencyIDs, agencies[j].ID)
				}
			}
		}
		c, err := clientSvc.Create(ctx, services.ClientInput{
			Name:      fmt.Sprintf("Client Company %d", i),
			TaxID:     fmt.Sprintf("200%d123456", i),
			Address:   fmt.Sprintf("Client Street %d", i),
			City:      "Belgrade",
			ZipCode:   "11000",
			Country:   "Serbia",
			Email:     email,
			Phone:     fmt.Sprintf("+381 11 %d23 456", i),
			AgencyIDs: agencyIDs,
		})
		if err != nil {
			return fmt.Errorf("seed client %d: %w", i, err)
		}
		clients[i] = c.ID
	}

	allAgencies := make([]services.AgencyPrice, len(agencies))
	for i, a := range agencies {
		allAgencies[i] = services.AgencyPrice{AgencyID: a.ID}
	}
	products := make([]*models.Product, len(seedProducts))
	for i, name := range seedProducts {
		var existing models.Product
		err := db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
		if err == nil {
			products[i] = &existing
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed product %s: %w", name, err)
		}
		p, err := productSvc.Create(ctx, services.ProductInput{
			Name:        name,
			Description: "Description for " + name,
			Price:       float64(i+1) * 50000,
			Unit:        "hour",
			Agencies:    allAgencies,
		})
		if err != nil {
			return fmt.Errorf("seed product %s: %w", name, err)
		}
		products[i] = p
	}

	created, err := seedInvoices(ctx, db, log, now, agencies, clients, products)
	if err != nil {
		return err
	}
	log.Info("seed complete",
		zap.Int("agencies", len(agencies)),
		zap.Int("clients", seedClients),
		zap.Int("products", len(products)),
		zap.Int("invoices_created", created))
	return nil
}

// seedInvoices bills a few sample invoices for agencies that have none yet.
func seedInvoices(ctx context.Context, db *gorm.DB, log *zap.Logger, now services.Clock, agencies []*models.Agency, clients []uint, products []*models.Product) (int, error) {
	today := now()
	day := func(months, days int) *time.Time {
		t := today.AddDate(0, months, days)
		return &t
	}
	samples := []struct {
		agency, client int
		issued, due    *time.Time
		lines          []seedLine
	}{
		{0, 1, day(-2, 0), day(-1, 0), []seedLine{{0, 40, 0}, {1, 20, 0}}},
		{0, 2, day(-1, 0), day(0, 0), []seedLine{{2, 30, 0}}},
		{1, 3, day(0, -15), day(0, 15), []seedLine{{0, 50, 0}, {3, 25, 0}}},
		{1, 4, day(0, -30), nil, []seedLine{{4, 1, 200000}}},
		{2, 5, day(0, -10), nil, []seedLine{{1, 35, 0}, {2, 15, 0}}},
	}

	invoices := services.NewInvoiceService(db, services.NewNumberGenerator(db, now), nil, log, now)
	billed := map[uint]bool{}
	for _, a := range agencies {
		var n int64
		if err := db.WithContext(ctx).Unscoped().Model(&models.Invoice{}).Where("agency_id = ?", a.ID).Count(&n).Error; err != nil {
			return 0, fmt.Errorf("seed invoices: %w", err)
		}
		billed[a.ID] = n > 0
	}

	created := 0
	for _, s := range samples {
		agency := agencies[s.agency]
		if billed[agency.ID] {
			continue
		}
		in := services.InvoiceInput{
			AgencyID:  agency.ID,
			ClientID:  clients[s.client],
			IssueDate: *s.issued,
			DueDate:   s.due,
		}
		for _, l := range s.lines {
			p := products[l.product]
			price := l.price
			if price == 0 {
				price = p.Price
			}
			in.Items = append(in.Items, services.ItemInput{ProductID: &p.ID, Quantity: l.quantity, UnitPrice: price})
		}
		if _, err := invoices.Create(ctx, in); err != nil {
			return created, fmt.Errorf("seed invoice for %s: %w", agency.Name, err)
		}
		created++
	}
	return created, nil
}
