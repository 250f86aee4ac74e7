package catalog

import (
	"errors"

	"termivoxed-billing/internal/model"
)

var (
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrInvalidBillingPeriod = errors.New("billing period must be 'monthly' or 'yearly'")
)

// Unlimited marks a feature limit with no cap.
const Unlimited int64 = -1

// Pricing is one billing-period block of a plan. Amount is in minor
// currency units (paise); amount 0 means the tier has no self-serve
// price. RazorpayPlanID references a recurring plan pre-provisioned on
// the gateway; empty means no recurring billing for this period.
type Pricing struct {
	Amount         int64
	Currency       string
	RazorpayPlanID string
}

type Features struct {
	ExportsPerMonth  int64
	DeviceLimit      int64
	WatermarkRemoval bool
	PrioritySupport  bool
	SSO              bool
	APIAccess        bool
}

type Plan struct {
	ID       string
	Name     string
	Monthly  Pricing
	Yearly   Pricing
	Features Features
}

// Pricing selects the billing-period block for the given period.
func (p *Plan) Pricing(billingPeriod string) (Pricing, error) {
	switch billingPeriod {
	case model.PeriodMonthly:
		return p.Monthly, nil
	case model.PeriodYearly:
		return p.Yearly, nil
	default:
		return Pricing{}, ErrInvalidBillingPeriod
	}
}

// Catalog is the static plan table. Built once at startup and shared
// read-only across all requests.
type Catalog struct {
	plans map[string]*Plan
}

func New() *Catalog {
	plans := map[string]*Plan{
		model.PlanIndividual: {
			ID:   model.PlanIndividual,
			Name: "Individual",
			Monthly: Pricing{
				Amount:         19900,
				Currency:       "INR",
				RazorpayPlanID: "plan_NvIndM19kTermiVx",
			},
			Yearly: Pricing{
				Amount:         199900,
				Currency:       "INR",
				RazorpayPlanID: "plan_NvIndY199TermiVx",
			},
			Features: Features{
				ExportsPerMonth: 30,
				DeviceLimit:     1,
			},
		},
		model.PlanPro: {
			ID:   model.PlanPro,
			Name: "Pro",
			Monthly: Pricing{
				Amount:         49900,
				Currency:       "INR",
				RazorpayPlanID: "plan_NvProM49kTermiVx",
			},
			Yearly: Pricing{
				Amount:         499900,
				Currency:       "INR",
				RazorpayPlanID: "plan_NvProY499TermiVx",
			},
			Features: Features{
				ExportsPerMonth:  Unlimited,
				DeviceLimit:      3,
				WatermarkRemoval: true,
				PrioritySupport:  true,
			},
		},
		model.PlanEnterprise: {
			ID:   model.PlanEnterprise,
			Name: "Enterprise",
			// amount 0: contact sales, no self-serve checkout
			Monthly: Pricing{Amount: 0, Currency: "INR"},
			Yearly:  Pricing{Amount: 0, Currency: "INR"},
			Features: Features{
				ExportsPerMonth:  Unlimited,
				DeviceLimit:      Unlimited,
				WatermarkRemoval: true,
				PrioritySupport:  true,
				SSO:              true,
				APIAccess:        true,
			},
		},
	}

	return &Catalog{plans: plans}
}

// Lookup resolves a plan id, returning ErrInvalidPlan for anything
// outside the known set.
func (c *Catalog) Lookup(planID string) (*Plan, error) {
	plan, ok := c.plans[planID]
	if !ok {
		return nil, ErrInvalidPlan
	}
	return plan, nil
}
