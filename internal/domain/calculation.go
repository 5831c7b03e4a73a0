package domain

import (
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DeductionKind names an itemized deduction category
type DeductionKind string

const (
	DeductionInvestment       DeductionKind = "investment"
	DeductionInsurancePremium DeductionKind = "insurance_premium"
	DeductionHomeLoanInterest DeductionKind = "home_loan_interest"
	DeductionEducationLoan    DeductionKind = "education_loan_interest"
)

// DeductionKinds lists the itemized categories in display order
var DeductionKinds = []DeductionKind{
	DeductionInvestment,
	DeductionInsurancePremium,
	DeductionHomeLoanInterest,
	DeductionEducationLoan,
}

// DeductionInputs holds the claimed itemized deductions
type DeductionInputs struct {
	Investment            decimal.Decimal `yaml:"investment" json:"investment"`
	InsurancePremium      decimal.Decimal `yaml:"insurance_premium" json:"insurance_premium"`
	HomeLoanInterest      decimal.Decimal `yaml:"home_loan_interest" json:"home_loan_interest"`
	EducationLoanInterest decimal.Decimal `yaml:"education_loan_interest" json:"education_loan_interest"`
}

// Amount returns the claimed amount for a category
func (d DeductionInputs) Amount(kind DeductionKind) decimal.Decimal {
	switch kind {
	case DeductionInvestment:
		return d.Investment
	case DeductionInsurancePremium:
		return d.InsurancePremium
	case DeductionHomeLoanInterest:
		return d.HomeLoanInterest
	case DeductionEducationLoan:
		return d.EducationLoanInterest
	default:
		return decimal.Zero
	}
}

// CalculationInput is the employee-facing calculator input
type CalculationInput struct {
	MonthlyIncome decimal.Decimal `yaml:"monthly_income" json:"monthly_income"`
	AnnualBonus   decimal.Decimal `yaml:"annual_bonus" json:"annual_bonus"`
	Deductions    DeductionInputs `yaml:"deductions" json:"deductions"`
	Regime        Regime          `yaml:"regime" json:"regime"`
}

// Validate checks that every monetary field is non-negative and the regime is known
func (in CalculationInput) Validate() error {
	if err := nonNegative("monthly_income", in.MonthlyIncome); err != nil {
		return err
	}
	if err := nonNegative("annual_bonus", in.AnnualBonus); err != nil {
		return err
	}
	for _, kind := range DeductionKinds {
		if err := nonNegative("deductions."+string(kind), in.Deductions.Amount(kind)); err != nil {
			return err
		}
	}
	if !in.Regime.Valid() {
		return &ValidationError{Field: "regime", Constraint: "must be one of old, new", Value: string(in.Regime)}
	}
	return nil
}

// MaxAmount bounds every monetary input. Anything at or above it is rejected
// before it reaches an engine.
var MaxAmount = decimal.New(1, 15)

// maxScale is the most fractional digits an amount may carry
const maxScale = 10

// CheckAmount rejects amounts whose magnitude is MaxAmount or more, or that
// carry more than maxScale fractional digits. The digit-count tests run first
// so a value like 1e30000000 is rejected without being expanded.
func CheckAmount(field string, v decimal.Decimal) error {
	exp := int(v.Exponent())
	digits := len(new(big.Int).Abs(v.Coefficient()).String())
	if exp < -maxScale || digits+exp > 16 || v.Abs().GreaterThanOrEqual(MaxAmount) {
		return &ValidationError{Field: field, Constraint: "out of range", Value: boundedString(v)}
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return &ValidationError{Field: field, Constraint: "must be non-negative", Value: boundedString(v)}
	}
	return CheckAmount(field, v)
}

// boundedString renders v for an error message without expanding huge exponents
func boundedString(v decimal.Decimal) string {
	if e := v.Exponent(); e > 30 || e < -30 {
		return v.Coefficient().String() + "e" + strconv.Itoa(int(e))
	}
	return v.String()
}

// AppliedDeduction records how a claimed deduction was capped
type AppliedDeduction struct {
	Kind    DeductionKind   `json:"kind"`
	Claimed decimal.Decimal `json:"claimed"`
	Allowed decimal.Decimal `json:"allowed"`
}

// BracketContribution is one traversed bracket of a calculation
type BracketContribution struct {
	Label           string          `json:"label"`
	RatePercent     decimal.Decimal `json:"rate_percent"`
	IncomeInBracket decimal.Decimal `json:"income_in_bracket"`
	TaxInBracket    decimal.Decimal `json:"tax_in_bracket"`
}

// CalculationResult is the full breakdown produced by the regime engine
type CalculationResult struct {
	Regime            Regime                `json:"regime"`
	AnnualIncome      decimal.Decimal       `json:"annual_income"`
	StandardDeduction decimal.Decimal       `json:"standard_deduction"`
	AppliedDeductions []AppliedDeduction    `json:"applied_deductions"`
	TotalDeductions   decimal.Decimal       `json:"total_deductions"`
	TaxableIncome     decimal.Decimal       `json:"taxable_income"`
	BaseTax           decimal.Decimal       `json:"base_tax"`
	Surcharge         decimal.Decimal       `json:"surcharge"`
	Cess              decimal.Decimal       `json:"cess"`
	TotalTax          decimal.Decimal       `json:"total_tax"`
	Breakdown         []BracketContribution `json:"breakdown"`
}

// ScheduleCalculationInput is the input of the admin-schedule calculator
type ScheduleCalculationInput struct {
	GrossIncome decimal.Decimal `yaml:"gross_income" json:"gross_income"`
	Deductions  decimal.Decimal `yaml:"deductions" json:"deductions"`
}

// Validate checks that both fields are non-negative
func (in ScheduleCalculationInput) Validate() error {
	if err := nonNegative("gross_income", in.GrossIncome); err != nil {
		return err
	}
	return nonNegative("deductions", in.Deductions)
}

// ScheduleResult is the output of the admin-schedule calculator
type ScheduleResult struct {
	ScheduleName  string                `json:"schedule_name,omitempty"`
	GrossIncome   decimal.Decimal       `json:"gross_income"`
	Deductions    decimal.Decimal       `json:"deductions"`
	TaxableIncome decimal.Decimal       `json:"taxable_income"`
	TaxAmount     decimal.Decimal       `json:"tax_amount"`
	Breakdown     []BracketContribution `json:"breakdown"`
}

// CalculationKind distinguishes records produced by the two calculators
type CalculationKind string

const (
	KindRegime   CalculationKind = "regime"
	KindSchedule CalculationKind = "schedule"
)

// CalculationRecord is a persisted calculation. Exactly one of Result and
// ScheduleResult is set, matching Kind.
type CalculationRecord struct {
	ID             string                    `json:"id"`
	TenantID       string                    `json:"tenant_id"`
	EmployeeID     string                    `json:"employee_id"`
	Kind           CalculationKind           `json:"kind"`
	Input          *CalculationInput         `json:"input,omitempty"`
	Result         *CalculationResult        `json:"result,omitempty"`
	ScheduleInput  *ScheduleCalculationInput `json:"schedule_input,omitempty"`
	ScheduleResult *ScheduleResult           `json:"schedule_result,omitempty"`
	CalculatedAt   time.Time                 `json:"calculated_at"`
	Saved          bool                      `json:"saved"`
}

// Summary returns the headline figures shared by both record kinds:
// gross income, deductions, taxable income and tax payable.
func (r *CalculationRecord) Summary() (gross, deductions, taxable, tax decimal.Decimal) {
	switch {
	case r.Result != nil:
		return r.Result.AnnualIncome, r.Result.TotalDeductions, r.Result.TaxableIncome, r.Result.TotalTax
	case r.ScheduleResult != nil:
		return r.ScheduleResult.GrossIncome, r.ScheduleResult.Deductions, r.ScheduleResult.TaxableIncome, r.ScheduleResult.TaxAmount
	default:
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	}
}

// RegimeLabel returns the regime for regime records and "schedule" otherwise
func (r *CalculationRecord) RegimeLabel() string {
	if r.Result != nil {
		return string(r.Result.Regime)
	}
	return string(KindSchedule)
}
