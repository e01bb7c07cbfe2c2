package services

import (
	"context"
	"math"
	"testing"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func ptr[T any](v T) *T { return &v }

func TestSettingsStore_GetSet(t *testing.T) {
	db := setupTestDB(t)
	a := createAgency(t, db, "A", "AAA")
	b := createAgency(t, db, "B", "BBB")
	s := NewSettingsStore(db, nopLogger())
	ctx := context.Background()

	v, err := s.Get(ctx, a.ID, "pdv_limit", "6000000")
	require.NoError(t, err)
	assert.Equal(t, "6000000", v)

	require.NoError(t, s.Set(ctx, a.ID, "pdv_limit", "100"))
	require.NoError(t, s.Set(ctx, a.ID, "pdv_limit", "200"))

	v, err = s.Get(ctx, a.ID, "pdv_limit", "")
	require.NoError(t, err)
	assert.Equal(t, "200", v)

	// scoped per agency
	v, err = s.Get(ctx, b.ID, "pdv_limit", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", v)

	var count int64
	require.NoError(t, db.Model(&models.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettingsStore_Rules(t *testing.T) {
	db := setupTestDB(t)
	a := createAgency(t, db, "A", "AAA")
	core, logs := observer.New(zap.WarnLevel)
	s := NewSettingsStore(db, zap.New(core))
	ctx := context.Background()

	rules, err := s.Rules(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules, rules)

	require.NoError(t, s.Set(ctx, a.ID, models.SettingPDVLimit, "1000"))
	require.NoError(t, s.Set(ctx, a.ID, models.SettingMinClientsPerYear, "three"))
	require.NoError(t, s.Set(ctx, a.ID, models.SettingClientMaxSharePercent, "55.5"))

	rules, err = s.Rules(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, AgencyRules{VATThreshold: 1000, MinClients: 5, MaxClientSharePercent: 55.5}, rules)
	assert.Equal(t, 1, logs.FilterMessage("invalid setting, using default").Len())
}

func TestSettingsStore_RulesIgnoresInfiniteLimit(t *testing.T) {
	db := setupTestDB(t)
	a := createAgency(t, db, "A", "AAA")
	core, logs := observer.New(zap.WarnLevel)
	s := NewSettingsStore(db, zap.New(core))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, a.ID, models.SettingPDVLimit, "+Inf"))
	require.NoError(t, s.Set(ctx, a.ID, models.SettingClientMaxSharePercent, "NaN"))

	rules, err := s.Rules(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules, rules)
	assert.Equal(t, 2, logs.FilterMessage("invalid setting, using default").Len())
}

func TestSettingsStore_UpdateApplication(t *testing.T) {
	db := setupTestDB(t)
	a := createAgency(t, db, "A", "AAA")
	s := NewSettingsStore(db, nopLogger())
	ctx := context.Background()

	err := s.UpdateApplication(ctx, a.ID, SettingsInput{
		PDVLimit:              ptr(5000.0),
		ClientMaxSharePercent: ptr(60.0),
		MinClientsPerYear:     ptr(3),
		InvoiceNumberPrefix:   ptr(" acme "),
	})
	require.NoError(t, err)

	rules, err := s.Rules(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, AgencyRules{VATThreshold: 5000, MinClients: 3, MaxClientSharePercent: 60}, rules)

	var agency models.Agency
	require.NoError(t, db.First(&agency, a.ID).Error)
	assert.Equal(t, "ACME", agency.InvoiceNumberPrefix)

	// blank prefix resets to the default
	err = s.UpdateApplication(ctx, a.ID, SettingsInput{
		PDVLimit:              ptr(5000.0),
		ClientMaxSharePercent: ptr(60.0),
		MinClientsPerYear:     ptr(3),
		InvoiceNumberPrefix:   ptr(""),
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&agency, a.ID).Error)
	assert.Equal(t, "INV", agency.InvoiceNumberPrefix)

	// nil prefix leaves it alone
	require.NoError(t, db.Model(&agency).Update("invoice_number_prefix", "KEEP").Error)
	err = s.UpdateApplication(ctx, a.ID, SettingsInput{
		PDVLimit:              ptr(1.0),
		ClientMaxSharePercent: ptr(10.0),
		MinClientsPerYear:     ptr(1),
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&agency, a.ID).Error)
	assert.Equal(t, "KEEP", agency.InvoiceNumberPrefix)
}

func TestSettingsStore_UpdateApplicationValidation(t *testing.T) {
	db := setupTestDB(t)
	a := createAgency(t, db, "A", "AAA")
	s := NewSettingsStore(db, nopLogger())

	tests := []struct {
		name  string
		in    SettingsInput
		field string
	}{
		{"missing pdv", SettingsInput{ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(1)}, "pdv_limit"},
		{"negative pdv", SettingsInput{PDVLimit: ptr(-1.0), ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(1)}, "pdv_limit"},
		{"NaN pdv", SettingsInput{PDVLimit: ptr(math.NaN()), ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(1)}, "pdv_limit"},
		{"infinite share", SettingsInput{PDVLimit: ptr(1.0), ClientMaxSharePercent: ptr(math.Inf(1)), MinClientsPerYear: ptr(1)}, "client_max_share_percent"},
		{"share over 100", SettingsInput{PDVLimit: ptr(1.0), ClientMaxSharePercent: ptr(100.5), MinClientsPerYear: ptr(1)}, "client_max_share_percent"},
		{"zero min clients", SettingsInput{PDVLimit: ptr(1.0), ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(0)}, "min_clients_per_year"},
		{"bad prefix", SettingsInput{PDVLimit: ptr(1.0), ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(1), InvoiceNumberPrefix: ptr("A B")}, "invoice_number_prefix"},
		{"long prefix", SettingsInput{PDVLimit: ptr(1.0), ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(1), InvoiceNumberPrefix: ptr("ABCDEFGHIJKLMNOPQRSTU")}, "invoice_number_prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpdateApplication(context.Background(), a.ID, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	err := s.UpdateApplication(context.Background(), 999, SettingsInput{
		PDVLimit: ptr(1.0), ClientMaxSharePercent: ptr(1.0), MinClientsPerYear: ptr(1),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsStore_Application(t *testing.T) {
	db := setupTestDB(t)
	a := createAgency(t, db, "Alpha", "AAA")
	b := createAgency(t, db, "Beta", "BBB")
	inactive := createAgency(t, db, "Gamma", "GGG")
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	s := NewSettingsStore(db, nopLogger())
	require.NoError(t, s.Set(context.Background(), b.ID, models.SettingMinClientsPerYear, "2"))

	app, err := s.Application(context.Background())
	require.NoError(t, err)
	require.Len(t, app.Agencies, 2)
	assert.Equal(t, "Alpha", app.Agencies[0].Name)
	assert.Equal(t, DefaultRules, app.Settings[a.ID])
	assert.Equal(t, 2, app.Settings[b.ID].MinClients)
	assert.Equal(t, DefaultRules, app.Defaults)
	assert.NotContains(t, app.Settings, inactive.ID)
}
