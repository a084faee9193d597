package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fincast/internal/config"
	"fincast/pkg/contracts/domain"
)

// RampSchedule maps a forecast year to the realized share of total lift
type RampSchedule map[int]float64

// Fraction returns the ramp share for year
func (r RampSchedule) Fraction(year int) (float64, bool) {
	f, ok := r[year]
	return f, ok
}

// Options configures a Projector
type Options struct {
	Years           []int
	Scenarios       []domain.Scenario
	AccessIndicator string
	UsageIndicator  string
	Policy          domain.Policy
	Epsilon         float64
	FallbackMargin  float64
	Ramp            RampSchedule
}

// OptionsFromConfig maps the forecast section of the config
func OptionsFromConfig(cfg config.ForecastConfig) Options {
	return Options{
		Years:           cfg.SortedYears(),
		Scenarios:       cfg.Scenarios(),
		AccessIndicator: cfg.AccessIndicator,
		UsageIndicator:  cfg.UsageIndicator,
		Policy:          cfg.PolicyValue(),
		Epsilon:         cfg.Epsilon,
		FallbackMargin:  cfg.FallbackMargin,
		Ramp:            RampSchedule(cfg.Ramp),
	}
}

func (o Options) validate() error {
	if len(o.Years) == 0 {
		return errors.New("no forecast years")
	}
	if len(o.Scenarios) == 0 {
		return errors.New("no scenarios")
	}
	for _, sc := range o.Scenarios {
		if domain.ScenarioRank(sc.Name) < 0 {
			return fmt.Errorf("unknown scenario %q", sc.Name)
		}
	}
	if o.AccessIndicator == "" && o.UsageIndicator == "" {
		return errors.New("no indicator to project")
	}
	if _, err := domain.ParsePolicy(string(o.Policy)); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of one projection run
type Result struct {
	RunID       string                  `json:"run_id"`
	Policy      domain.Policy           `json:"policy"`
	GeneratedAt time.Time               `json:"generated_at"`
	Records     []domain.ForecastRecord `json:"records"`
	Margin      float64                 `json:"margin"`
	Trends      map[string]Trend        `json:"trends"`
	Warnings    []Warning               `json:"warnings"`
}

// Projector combines baseline trends with scenario-weighted event shocks
type Projector struct {
	opts     Options
	resolver *ShockResolver
	logger   *slog.Logger
}

// NewProjector validates opts and creates a projector
func NewProjector(opts Options, logger *slog.Logger) (*Projector, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid forecast options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts.Years = append([]int(nil), opts.Years...)
	sort.Ints(opts.Years)
	opts.Scenarios = append([]domain.Scenario(nil), opts.Scenarios...)
	sort.SliceStable(opts.Scenarios, func(i, j int) bool {
		return domain.ScenarioRank(opts.Scenarios[i].Name) < domain.ScenarioRank(opts.Scenarios[j].Name)
	})

	return &Projector{
		opts:     opts,
		resolver: NewShockResolver(opts.Epsilon),
		logger:   logger.With(slog.String("component", "projector")),
	}, nil
}

// Options returns the effective options
func (p *Projector) Options() Options {
	return p.opts
}

// indicatorFit is the baseline of one projected indicator
type indicatorFit struct {
	code  string
	trend Trend
	ok    bool
}

// cell holds a prediction while rows are assembled
type cell struct {
	value float64
	ok    bool
}

// Project produces one record per (year, scenario), ordered by year then
// canonical scenario order. Indicators without history are left nil and
// reported as warnings; rows where both are missing are dropped.
func (p *Projector) Project(records []domain.Observation, matrix *domain.ImpactMatrix) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:       uuid.New().String(),
		Policy:      p.opts.Policy,
		GeneratedAt: start.UTC(),
		Trends:      make(map[string]Trend),
	}
	var warnings warningSet

	access := p.fit(records, p.opts.AccessIndicator, &warnings)
	usage := p.fit(records, p.opts.UsageIndicator, &warnings)
	for _, f := range []indicatorFit{access, usage} {
		if f.ok {
			result.Trends[f.code] = f.trend
		}
	}
	if access.ok {
		result.Margin = access.trend.Margin95()
	}

	for _, label := range UnparseableLabels(matrix) {
		warnings.add(Warning{
			Kind:    WarningUnparseableLabel,
			Event:   label,
			Message: fmt.Sprintf("event %q has no (year) suffix and contributes no shock", label),
		})
	}

	// predictions[scenario][year index]
	accessPred := make(map[string][]cell, len(p.opts.Scenarios))
	usagePred := make(map[string][]cell, len(p.opts.Scenarios))
	for _, sc := range p.opts.Scenarios {
		accessPred[sc.Name] = p.projectIndicator(access, matrix, sc, &warnings)
		usagePred[sc.Name] = p.projectIndicator(usage, matrix, sc, &warnings)
	}

	for i, year := range p.opts.Years {
		for _, sc := range p.opts.Scenarios {
			a, u := accessPred[sc.Name][i], usagePred[sc.Name][i]
			if !a.ok && !u.ok {
				continue
			}
			rec := domain.ForecastRecord{Year: year, Scenario: sc.Name}
			if a.ok {
				rec.AccessRate = domain.Float(round2(a.value))
				rec.LowerCI = domain.Float(round2(a.value - result.Margin))
				rec.UpperCI = domain.Float(round2(a.value + result.Margin))
			}
			if u.ok {
				rec.UsageRate = domain.Float(round2(u.value))
			}
			result.Records = append(result.Records, rec)
		}
	}

	result.Warnings = warnings.items
	for _, w := range result.Warnings {
		p.logger.Warn("Forecast warning",
			slog.String("run_id", result.RunID),
			slog.String("kind", string(w.Kind)),
			slog.String("detail", w.Message))
	}
	p.logger.Info("Forecast complete",
		slog.String("run_id", result.RunID),
		slog.String("policy", string(p.opts.Policy)),
		slog.Int("rows", len(result.Records)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Float64("margin", result.Margin),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

func (p *Projector) fit(records []domain.Observation, code string, warnings *warningSet) indicatorFit {
	if code == "" {
		return indicatorFit{}
	}
	trend, ok := FitTrend(ExtractSeries(records, code), p.opts.FallbackMargin)
	if !ok {
		warnings.add(Warning{
			Kind:      WarningEmptyHistory,
			Indicator: code,
			Message:   fmt.Sprintf("no observations for %s; rate left empty", code),
		})
	}
	return indicatorFit{code: code, trend: trend, ok: ok}
}

// projectIndicator returns predictions for every forecast year of one scenario
func (p *Projector) projectIndicator(f indicatorFit, matrix *domain.ImpactMatrix, sc domain.Scenario, warnings *warningSet) []cell {
	out := make([]cell, len(p.opts.Years))
	if !f.ok {
		return out
	}

	switch p.opts.Policy {
	case domain.PolicyRamp:
		total := p.resolver.ColumnTotal(matrix, f.code, sc)
		if total.Scaled {
			warnings.add(p.scaleWarning(f.code, 0, sc.Name))
		}
		for i, year := range p.opts.Years {
			fraction, ok := p.opts.Ramp.Fraction(year)
			if !ok {
				warnings.add(Warning{
					Kind:    WarningMissingRamp,
					Year:    year,
					Message: fmt.Sprintf("no ramp fraction for %d; lift treated as 0", year),
				})
			}
			out[i] = cell{value: f.trend.Predict(year) + total.Total*fraction, ok: true}
		}
	default:
		var cumulative float64
		for i, year := range p.opts.Years {
			shock := p.resolver.Resolve(year, matrix, f.code, sc)
			if shock.Scaled {
				warnings.add(p.scaleWarning(f.code, year, sc.Name))
			}
			cumulative += shock.Total + sc.Adjustment
			out[i] = cell{value: f.trend.Predict(year) + cumulative, ok: true}
		}
	}
	return out
}

func (p *Projector) scaleWarning(indicator string, year int, scenario string) Warning {
	return Warning{
		Kind:      WarningAmbiguousScale,
		Indicator: indicator,
		Year:      year,
		Scenario:  scenario,
		Message:   fmt.Sprintf("untagged %s magnitude below 1 read as a fraction and scaled by 100", indicator),
	}
}

// round2 rounds half away from zero to two decimal places
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
