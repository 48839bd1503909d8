package signal

// Escalation variant names. The source data supports two materially
// different definitions of the rapid-escalation signal; exactly one is
// active per run.
const (
	// EscalationMonthOverMonth flags any month-over-month jump above the
	// growth threshold when the prior month cleared the dollar floor.
	EscalationMonthOverMonth = "month-over-month"
	// EscalationNewEntity restricts to recently enumerated providers and
	// evaluates a 3-month rolling average of month-over-month growth.
	EscalationNewEntity = "new-entity"
)

// Config carries the detector thresholds. Zero values are replaced by
// defaults via Normalize, so a partially filled config from viper works.
type Config struct {
	MinPeerGroup      int     `mapstructure:"min_peer_group"`
	OutlierPercentile float64 `mapstructure:"outlier_percentile"`
	OutlierHighRatio  float64 `mapstructure:"outlier_high_ratio"`

	EscalationVariant    string  `mapstructure:"escalation_variant"`
	EscalationPriorFloor float64 `mapstructure:"escalation_prior_floor"`
	EscalationGrowthPct  float64 `mapstructure:"escalation_growth_pct"`
	EscalationHighPct    float64 `mapstructure:"escalation_high_pct"`

	NewEntityMonths    int     `mapstructure:"new_entity_months"`
	NewEntityWindow    int     `mapstructure:"new_entity_window"`
	NewEntityGrowthPct float64 `mapstructure:"new_entity_growth_pct"`
	NewEntityHighPct   float64 `mapstructure:"new_entity_high_pct"`

	WorkforceClaimsPerHour float64 `mapstructure:"workforce_claims_per_hour"`
	WorkingDaysPerMonth    int     `mapstructure:"working_days_per_month"`
	WorkingHoursPerDay     int     `mapstructure:"working_hours_per_day"`

	SharedOfficialMinNPIs   int     `mapstructure:"shared_official_min_npis"`
	SharedOfficialMinTotal  float64 `mapstructure:"shared_official_min_total"`
	SharedOfficialHighTotal float64 `mapstructure:"shared_official_high_total"`

	GeoMinClaims int64   `mapstructure:"geo_min_claims"`
	GeoMaxRatio  float64 `mapstructure:"geo_max_ratio"`
}

// DefaultConfig returns the thresholds the signal definitions are written
// against.
func DefaultConfig() Config {
	return Config{
		MinPeerGroup:      10,
		OutlierPercentile: 0.99,
		OutlierHighRatio:  5,

		EscalationVariant:    EscalationMonthOverMonth,
		EscalationPriorFloor: 1000,
		EscalationGrowthPct:  500,
		EscalationHighPct:    1000,

		NewEntityMonths:    24,
		NewEntityWindow:    3,
		NewEntityGrowthPct: 200,
		NewEntityHighPct:   500,

		WorkforceClaimsPerHour: 6,
		WorkingDaysPerMonth:    22,
		WorkingHoursPerDay:     8,

		SharedOfficialMinNPIs:   5,
		SharedOfficialMinTotal:  1_000_000,
		SharedOfficialHighTotal: 5_000_000,

		GeoMinClaims: 100,
		GeoMaxRatio:  0.1,
	}
}

// Normalize fills zero-valued fields from the defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.MinPeerGroup == 0 {
		c.MinPeerGroup = d.MinPeerGroup
	}
	if c.OutlierPercentile == 0 {
		c.OutlierPercentile = d.OutlierPercentile
	}
	if c.OutlierHighRatio == 0 {
		c.OutlierHighRatio = d.OutlierHighRatio
	}
	if c.EscalationVariant == "" {
		c.EscalationVariant = d.EscalationVariant
	}
	if c.EscalationPriorFloor == 0 {
		c.EscalationPriorFloor = d.EscalationPriorFloor
	}
	if c.EscalationGrowthPct == 0 {
		c.EscalationGrowthPct = d.EscalationGrowthPct
	}
	if c.EscalationHighPct == 0 {
		c.EscalationHighPct = d.EscalationHighPct
	}
	if c.NewEntityMonths == 0 {
		c.NewEntityMonths = d.NewEntityMonths
	}
	if c.NewEntityWindow == 0 {
		c.NewEntityWindow = d.NewEntityWindow
	}
	if c.NewEntityGrowthPct == 0 {
		c.NewEntityGrowthPct = d.NewEntityGrowthPct
	}
	if c.NewEntityHighPct == 0 {
		c.NewEntityHighPct = d.NewEntityHighPct
	}
	if c.WorkforceClaimsPerHour == 0 {
		c.WorkforceClaimsPerHour = d.WorkforceClaimsPerHour
	}
	if c.WorkingDaysPerMonth == 0 {
		c.WorkingDaysPerMonth = d.WorkingDaysPerMonth
	}
	if c.WorkingHoursPerDay == 0 {
		c.WorkingHoursPerDay = d.WorkingHoursPerDay
	}
	if c.SharedOfficialMinNPIs == 0 {
		c.SharedOfficialMinNPIs = d.SharedOfficialMinNPIs
	}
	if c.SharedOfficialMinTotal == 0 {
		c.SharedOfficialMinTotal = d.SharedOfficialMinTotal
	}
	if c.SharedOfficialHighTotal == 0 {
		c.SharedOfficialHighTotal = d.SharedOfficialHighTotal
	}
	if c.GeoMinClaims == 0 {
		c.GeoMinClaims = d.GeoMinClaims
	}
	if c.GeoMaxRatio == 0 {
		c.GeoMaxRatio = d.GeoMaxRatio
	}
	return c
}

// MaxMonthlyClaims is the largest claim volume deemed physically plausible
// for one organization in one month.
func (c Config) MaxMonthlyClaims() float64 {
	return c.WorkforceClaimsPerHour * float64(c.WorkingHoursPerDay) * float64(c.WorkingDaysPerMonth)
}

// homeHealthCodes is the fixed HCPCS set scanned by the geographic
// implausibility detector: skilled nursing and home/personal care services.
var homeHealthCodes = map[string]struct{}{
	"G0151": {}, "G0152": {}, "G0153": {}, "G0154": {}, "G0155": {}, "G0156": {},
	"G0157": {}, "G0158": {}, "G0159": {}, "G0160": {}, "G0161": {}, "G0162": {},
	"G0299": {}, "G0300": {},
	"S9122": {}, "S9123": {}, "S9124": {},
	"T1019": {}, "T1020": {}, "T1021": {}, "T1022": {},
}
