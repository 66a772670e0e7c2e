package vesting

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

// Built-in plans, available unless a plans file replaces them.
var defaultPlans = []domain.VestingPlan{
	{ID: "5y-quarterly", Name: "20 periods every 3 months", PeriodCount: 20, IntervalMonths: 3},
	{ID: "4y-quarterly", Name: "16 periods every 3 months", PeriodCount: 16, IntervalMonths: 3},
	{ID: "4y-semiannual", Name: "8 periods every 6 months", PeriodCount: 8, IntervalMonths: 6},
}

// PlanRegistry is the closed set of vesting plans known to the engine.
type PlanRegistry struct {
	plans map[string]domain.VestingPlan
}

// plansFile is the YAML layout of a plans file.
type plansFile struct {
	// Replace drops the built-in plans instead of extending them
	Replace bool                 `yaml:"replace"`
	Plans   []domain.VestingPlan `yaml:"plans"`
}

// NewPlanRegistry builds a registry from plans, rejecting invalid or duplicate entries.
func NewPlanRegistry(plans []domain.VestingPlan) (*PlanRegistry, error) {
	r := &PlanRegistry{plans: make(map[string]domain.VestingPlan, len(plans))}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan %q: %w", p.ID, err)
		}
		if _, dup := r.plans[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		r.plans[p.ID] = p
	}
	return r, nil
}

// DefaultPlans returns a registry holding the built-in plans.
func DefaultPlans() *PlanRegistry {
	r, err := NewPlanRegistry(defaultPlans)
	if err != nil {
		panic(err)
	}
	return r
}

// ParsePlans reads a YAML plans document. Plans extend the built-in set
// unless the document sets `replace: true`.
func ParsePlans(data []byte) (*PlanRegistry, error) {
	var f plansFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse plans: %w", err)
	}
	plans := f.Plans
	if !f.Replace {
		plans = append(append([]domain.VestingPlan{}, defaultPlans...), f.Plans...)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plans file defines no plans")
	}
	return NewPlanRegistry(plans)
}

// LoadPlans reads the plans file at path; an empty path yields the defaults.
func LoadPlans(path string) (*PlanRegistry, error) {
	if path == "" {
		return DefaultPlans(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}
	return ParsePlans(data)
}

// Get returns the plan with the given id or a validation error for unknown ids.
func (r *PlanRegistry) Get(id string) (domain.VestingPlan, error) {
	p, ok := r.plans[id]
	if !ok {
		return domain.VestingPlan{}, domain.Validationf("unknown vesting plan %q", id)
	}
	return p, nil
}

// List returns all plans ordered by id.
func (r *PlanRegistry) List() []domain.VestingPlan {
	out := make([]domain.VestingPlan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
