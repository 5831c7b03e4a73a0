package main

import (
	"fmt"
	"strings"

	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/config"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/output"
	"github.com/rgehrsitz/paytax/internal/payroll"
	"github.com/spf13/cobra"
)

func calculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate [input-file]",
		Short: "Calculate annual income tax under the Old or New regime",
		Long: "Calculate annual income tax from an input file or from flags. Amounts may be\n" +
			"plain numbers or currency formatted (\"₹1,50,000\"). Pass --tenant and --employee\n" +
			"to record the calculation in the history database.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := config.NewInputParser()

			var input domain.CalculationInput
			if len(args) == 1 {
				loaded, err := parser.LoadCalculationInput(args[0])
				if err != nil {
					return err
				}
				input = *loaded
			} else {
				raw := calculation.RawInput{}
				raw.MonthlyIncome, _ = cmd.Flags().GetString("monthly-income")
				raw.AnnualBonus, _ = cmd.Flags().GetString("bonus")
				raw.Investment, _ = cmd.Flags().GetString("investment")
				raw.InsurancePremium, _ = cmd.Flags().GetString("insurance")
				raw.HomeLoanInterest, _ = cmd.Flags().GetString("home-loan-interest")
				raw.EducationLoanInterest, _ = cmd.Flags().GetString("education-loan-interest")
				raw.Regime, _ = cmd.Flags().GetString("regime")

				parsed, err := calculation.ParseInput(raw)
				if err != nil {
					return err
				}
				input = parsed
			}

			policyFile, _ := cmd.Flags().GetString("policy")
			policy, err := parser.LoadPolicyOrDefault(policyFile)
			if err != nil {
				return err
			}

			tenantID, _ := cmd.Flags().GetString("tenant")
			employeeID, _ := cmd.Flags().GetString("employee")

			var rec *domain.CalculationRecord
			if tenantID != "" || employeeID != "" {
				dbPath, _ := cmd.Flags().GetString("db")
				rec, err = withService(dbPath, *policy, func(svc *payroll.Service) (*domain.CalculationRecord, error) {
					return svc.Calculate(cmd.Context(), tenantID, employeeID, input)
				})
			} else {
				rec, err = calculateLocally(input, *policy)
			}
			if err != nil {
				return err
			}

			return writeRecord(cmd, rec)
		},
	}

	cmd.Flags().String("monthly-income", "", "Monthly salary")
	cmd.Flags().String("bonus", "", "Annual bonus")
	cmd.Flags().String("investment", "", "Investment deduction claimed")
	cmd.Flags().String("insurance", "", "Insurance premium deduction claimed")
	cmd.Flags().String("home-loan-interest", "", "Home loan interest deduction claimed")
	cmd.Flags().String("education-loan-interest", "", "Education loan interest deduction claimed")
	cmd.Flags().String("regime", "old", "Tax regime (old, new)")
	cmd.Flags().String("policy", "", "Tax policy file overriding the built-in rates and caps")
	addOutputFlags(cmd)
	addStoreFlags(cmd)
	cmd.Flags().String("employee", "", "Employee ID to record the calculation under")

	return cmd
}

func scheduleCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule-calc",
		Short: "Calculate tax against a bracket schedule",
		Long: "Calculate tax on gross income less deductions using a bracket schedule file,\n" +
			"the built-in default schedule, or a tenant's stored schedule when --tenant is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grossRaw, _ := cmd.Flags().GetString("gross")
			deductionsRaw, _ := cmd.Flags().GetString("deductions")

			var input domain.ScheduleCalculationInput
			var err error
			if input.GrossIncome, err = calculation.ParseAmount("gross_income", grossRaw); err != nil {
				return err
			}
			if input.Deductions, err = calculation.ParseAmount("deductions", deductionsRaw); err != nil {
				return err
			}
			if err := input.Validate(); err != nil {
				return err
			}

			tenantID, _ := cmd.Flags().GetString("tenant")
			employeeID, _ := cmd.Flags().GetString("employee")

			var rec *domain.CalculationRecord
			if tenantID != "" {
				dbPath, _ := cmd.Flags().GetString("db")
				rec, err = withService(dbPath, calculation.DefaultPolicy(), func(svc *payroll.Service) (*domain.CalculationRecord, error) {
					return svc.CalculateWithSchedule(cmd.Context(), tenantID, employeeID, input)
				})
			} else {
				scheduleFile, _ := cmd.Flags().GetString("schedule")
				schedule := calculation.DefaultSchedule()
				if scheduleFile != "" {
					loaded, err := config.NewInputParser().LoadSchedule(scheduleFile)
					if err != nil {
						return err
					}
					schedule = *loaded
				}
				rec, err = scheduleLocally(input, schedule)
			}
			if err != nil {
				return err
			}

			return writeRecord(cmd, rec)
		},
	}

	cmd.Flags().String("gross", "", "Gross annual income")
	cmd.Flags().String("deductions", "", "Total deductions")
	cmd.Flags().String("schedule", "", "Bracket schedule file (default: built-in schedule)")
	addOutputFlags(cmd)
	addStoreFlags(cmd)
	cmd.Flags().String("employee", "", "Employee ID to record the calculation under")

	return cmd
}

// calculateLocally runs the engine without recording; the record carries no id
func calculateLocally(input domain.CalculationInput, policy domain.TaxPolicy) (*domain.CalculationRecord, error) {
	result, err := calculation.NewRegimeTableEngineWithPolicy(policy).Compute(input)
	if err != nil {
		return nil, err
	}
	return &domain.CalculationRecord{
		Kind:   domain.KindRegime,
		Input:  &input,
		Result: result,
	}, nil
}

func scheduleLocally(input domain.ScheduleCalculationInput, schedule domain.BracketSchedule) (*domain.CalculationRecord, error) {
	result, err := calculation.NewConfigurableScheduleEngine().Compute(input, schedule)
	if err != nil {
		return nil, err
	}
	return &domain.CalculationRecord{
		Kind:           domain.KindSchedule,
		ScheduleInput:  &input,
		ScheduleResult: result,
	}, nil
}

// withService opens the configured store for the duration of fn
func withService(dbPath string, policy domain.TaxPolicy, fn func(*payroll.Service) (*domain.CalculationRecord, error)) (*domain.CalculationRecord, error) {
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	svc := payroll.NewService(st.repo, st.cache, policy, st.cfg.Cache.TTL)
	svc.SetLogger(slogLogger{l: newSlogLogger(st.cfg.Logging)})
	return fn(svc)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "console", "Output format ("+strings.Join(output.AvailableFormatters(), ", ")+")")
}

func writeRecord(cmd *cobra.Command, rec *domain.CalculationRecord) error {
	format, _ := cmd.Flags().GetString("format")
	f := output.GetFormatterByName(format)
	if f == nil {
		return fmt.Errorf("unsupported format %q (available: %s)", format, strings.Join(output.AvailableFormatters(), ", "))
	}

	data, err := f.Format(rec)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
