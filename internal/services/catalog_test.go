package services

import (
	"context"
	"testing"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgencyService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgencyService(db, nopLogger())
	ctx := context.Background()

	a, err := svc.Create(ctx, AgencyInput{Name: "Acme", InvoiceNumberPrefix: " acm "})
	require.NoError(t, err)
	assert.Equal(t, "ACM", a.InvoiceNumberPrefix)
	assert.True(t, a.IsActive)

	inactive, err := svc.Create(ctx, AgencyInput{Name: "Dormant", IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "INV", inactive.InvoiceNumberPrefix)
	stored, err := svc.Get(ctx, inactive.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Acme", active[0].Name)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.Update(ctx, a.ID, AgencyInput{Name: "Acme Ltd", City: "Paris", InvoiceNumberPrefix: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", updated.Name)
	assert.True(t, updated.IsActive)

	_, err = svc.Create(ctx, AgencyInput{Name: " ", InvoiceNumberPrefix: "bad prefix"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["name"])
	assert.Equal(t, "invalid_format", verr.Fields["invoice_number_prefix"])

	_, err = svc.Update(ctx, 999, AgencyInput{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientService_SyncsAgencies(t *testing.T) {
	db := setupTestDB(t)
	a1 := createAgency(t, db, "One", "ONE")
	a2 := createAgency(t, db, "Two", "TWO")
	svc := NewClientService(db, nopLogger())
	ctx := context.Background()

	c, err := svc.Create(ctx, ClientInput{Name: "Globex", AgencyIDs: []uint{a1.ID, a2.ID, a1.ID}})
	require.NoError(t, err)
	assert.Len(t, c.Agencies, 2)

	c, err = svc.Update(ctx, c.ID, ClientInput{Name: "Globex Corp", AgencyIDs: []uint{a2.ID}})
	require.NoError(t, err)
	assert.Equal(t, "Globex Corp", c.Name)
	require.Len(t, c.Agencies, 1)
	assert.Equal(t, a2.ID, c.Agencies[0].ID)

	forOne, err := svc.List(ctx, a1.ID)
	require.NoError(t, err)
	assert.Empty(t, forOne)
	forTwo, err := svc.List(ctx, a2.ID)
	require.NoError(t, err)
	assert.Len(t, forTwo, 1)

	_, err = svc.Create(ctx, ClientInput{Name: "Ghost", AgencyIDs: []uint{a1.ID, 404}})
	assert.ErrorIs(t, err, ErrNotFound)
	var count int64
	require.NoError(t, db.Model(&models.Client{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.Create(ctx, ClientInput{Name: "Lonely"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductService_AgencyPrices(t *testing.T) {
	db := setupTestDB(t)
	a1 := createAgency(t, db, "One", "ONE")
	a2 := createAgency(t, db, "Two", "TWO")
	a3 := createAgency(t, db, "Three", "THR")
	svc := NewProductService(db, nopLogger())
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{
		Name:  "Consulting",
		Price: 100,
		Agencies: []AgencyPrice{
			{AgencyID: a1.ID},
			{AgencyID: a2.ID, Price: ptr(80.0)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "unit", p.Unit)
	require.Len(t, p.AgencyPrices, 2)

	price, err := svc.EffectivePrice(ctx, a1.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, price)
	price, err = svc.EffectivePrice(ctx, a2.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, price)

	p, err = svc.Update(ctx, p.ID, ProductInput{
		Name:     "Consulting",
		Price:    120,
		Unit:     "hour",
		Agencies: []AgencyPrice{{AgencyID: a3.ID, Price: ptr(90.0)}},
	})
	require.NoError(t, err)
	require.Len(t, p.AgencyPrices, 1)
	assert.True(t, p.AvailableTo(a3.ID))
	assert.False(t, p.AvailableTo(a1.ID))

	listed, err := svc.ListForAgency(ctx, a3.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 90.0, listed[0].PriceFor(a3.ID))
	listed, err = svc.ListForAgency(ctx, a1.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = svc.Create(ctx, ProductInput{Name: "Bad", Price: -1, Agencies: []AgencyPrice{{AgencyID: a1.ID, Price: ptr(-2.0)}}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "agencies.0.price")

	_, err = svc.EffectivePrice(ctx, a1.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
