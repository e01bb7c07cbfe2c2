package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/diewo77/invoice-tracker/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgencyRules are the compliance thresholds of one agency.
type AgencyRules struct {
	VATThreshold          float64 `json:"pdv_limit"`
	MinClients            int     `json:"min_clients_per_year"`
	MaxClientSharePercent float64 `json:"client_max_share_percent"`
}

// DefaultRules apply to any setting an agency has not configured.
var DefaultRules = AgencyRules{
	VATThreshold:          6000000,
	MinClients:            5,
	MaxClientSharePercent: 70,
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)

// SettingsInput is the settings screen payload. The three rule values are
// required; a nil prefix leaves the agency prefix untouched.
type SettingsInput struct {
	PDVLimit              *float64 `json:"pdv_limit"`
	ClientMaxSharePercent *float64 `json:"client_max_share_percent"`
	MinClientsPerYear     *int     `json:"min_clients_per_year"`
	InvoiceNumberPrefix   *string  `json:"invoice_number_prefix"`
}

func (in SettingsInput) Validate() error {
	v := validation.Violations{}
	if in.PDVLimit == nil {
		v.Add("pdv_limit", "required")
	} else {
		validation.NonNegativeFloat("pdv_limit", *in.PDVLimit, v)
	}
	if in.ClientMaxSharePercent == nil {
		v.Add("client_max_share_percent", "required")
	} else {
		validation.RangeFloat("client_max_share_percent", *in.ClientMaxSharePercent, 0, 100, v)
	}
	if in.MinClientsPerYear == nil {
		v.Add("min_clients_per_year", "required")
	} else if *in.MinClientsPerYear < 1 {
		v.Add("min_clients_per_year", "out_of_range")
	}
	if in.InvoiceNumberPrefix != nil {
		p := strings.TrimSpace(*in.InvoiceNumberPrefix)
		validation.MaxLen("invoice_number_prefix", p, 20, v)
		validation.Matches("invoice_number_prefix", p, prefixPattern, v)
	}
	return newValidationError(v)
}

// ApplicationSettings is the settings overview of all active agencies.
type ApplicationSettings struct {
	Agencies []models.Agency      `json:"agencies"`
	Settings map[uint]AgencyRules `json:"settings"`
	Defaults AgencyRules          `json:"default_settings"`
}

// SettingsStore reads and writes agency-scoped settings. Every call names
// its agency explicitly.
type SettingsStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSettingsStore(db *gorm.DB, logger *zap.Logger) *SettingsStore {
	return &SettingsStore{db: db, logger: logger}
}

// Get returns the stored value or def when the key is unset.
func (s *SettingsStore) Get(ctx context.Context, agencyID uint, key, def string) (string, error) {
	var st models.Setting
	err := s.db.WithContext(ctx).Where("agency_id = ? AND key = ?", agencyID, key).Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return st.Value, nil
}

// Set upserts the value for (agency, key).
func (s *SettingsStore) Set(ctx context.Context, agencyID uint, key, value string) error {
	if err := upsertSetting(s.db.WithContext(ctx), agencyID, key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func upsertSetting(tx *gorm.DB, agencyID uint, key, value string) error {
	st := models.Setting{AgencyID: agencyID, Key: key, Value: value}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agency_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&st).Error
}

// Rules resolves the agency thresholds. Missing or unusable values fall back
// to DefaultRules.
func (s *SettingsStore) Rules(ctx context.Context, agencyID uint) (AgencyRules, error) {
	values, err := s.values(ctx, []uint{agencyID})
	if err != nil {
		return AgencyRules{}, err
	}
	return s.resolve(agencyID, values[agencyID]), nil
}

func (s *SettingsStore) values(ctx context.Context, agencyIDs []uint) (map[uint]map[string]string, error) {
	out := make(map[uint]map[string]string, len(agencyIDs))
	if len(agencyIDs) == 0 {
		return out, nil
	}
	var rows []models.Setting
	err := s.db.WithContext(ctx).
		Where("agency_id IN ?", agencyIDs).
		Where("key IN ?", []string{models.SettingPDVLimit, models.SettingMinClientsPerYear, models.SettingClientMaxSharePercent}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	for _, r := range rows {
		if out[r.AgencyID] == nil {
			out[r.AgencyID] = map[string]string{}
		}
		out[r.AgencyID][r.Key] = r.Value
	}
	return out, nil
}

func (s *SettingsStore) resolve(agencyID uint, values map[string]string) AgencyRules {
	rules := DefaultRules
	if raw, ok := values[models.SettingPDVLimit]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && v >= 0 && !math.IsInf(v, 1) {
			rules.VATThreshold = v
		} else {
			s.invalid(agencyID, models.SettingPDVLimit, raw)
		}
	}
	if raw, ok := values[models.SettingMinClientsPerYear]; ok {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v >= 1 {
			rules.MinClients = v
		} else {
			s.invalid(agencyID, models.SettingMinClientsPerYear, raw)
		}
	}
	if raw, ok := values[models.SettingClientMaxSharePercent]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && v >= 0 && v <= 100 {
			rules.MaxClientSharePercent = v
		} else {
			s.invalid(agencyID, models.SettingClientMaxSharePercent, raw)
		}
	}
	return rules
}

func (s *SettingsStore) invalid(agencyID uint, key, raw string) {
	s.logger.Warn("invalid setting, using default",
		zap.Uint("agency_id", agencyID),
		zap.String("key", key),
		zap.String("value", raw))
}

// Application lists active agencies with their resolved rules.
func (s *SettingsStore) Application(ctx context.Context) (*ApplicationSettings, error) {
	var agencies []models.Agency
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&agencies).Error; err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	ids := make([]uint, len(agencies))
	for i, a := range agencies {
		ids[i] = a.ID
	}
	values, err := s.values(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := &ApplicationSettings{
		Agencies: agencies,
		Settings: make(map[uint]AgencyRules, len(agencies)),
		Defaults: DefaultRules,
	}
	for _, id := range ids {
		out.Settings[id] = s.resolve(id, values[id])
	}
	return out, nil
}

// UpdateApplication writes the three rule settings and, when given, the
// agency invoice prefix. A blank prefix resets it to INV.
func (s *SettingsStore) UpdateApplication(ctx context.Context, agencyID uint, in SettingsInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Agency{}, "agency", agencyID); err != nil {
			return err
		}
		values := map[string]string{
			models.SettingPDVLimit:              strconv.FormatFloat(*in.PDVLimit, 'f', -1, 64),
			models.SettingClientMaxSharePercent: strconv.FormatFloat(*in.ClientMaxSharePercent, 'f', -1, 64),
			models.SettingMinClientsPerYear:     strconv.Itoa(*in.MinClientsPerYear),
		}
		for key, value := range values {
			if err := upsertSetting(tx, agencyID, key, value); err != nil {
				return err
			}
		}
		if in.InvoiceNumberPrefix == nil {
			return nil
		}
		prefix := strings.ToUpper(strings.TrimSpace(*in.InvoiceNumberPrefix))
		if prefix == "" {
			prefix = models.DefaultInvoicePrefix
		}
		return tx.Model(&models.Agency{}).Where("id = ?", agencyID).Update("invoice_number_prefix", prefix).Error
	})
	if err != nil {
		return txError("update settings", err)
	}
	s.logger.Info("settings updated", zap.Uint("agency_id", agencyID))
	return nil
}
