package plans

// Plan describes a pricing plan and the credits it grants every month.
type Plan struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description,omitempty"`
	MonthlyCredits int64  `yaml:"monthly_credits"`
	Public         bool   `yaml:"public"`
}

// GrantsCredits reports whether the plan grants a positive monthly amount.
func (p Plan) GrantsCredits() bool {
	return p.MonthlyCredits > 0
}
