package domain

import (
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }

func ruleInput() RuleInput {
	return RuleInput{
		PaymentAmountMinor: 5000,
		PaymentMethod:      "cash",
		OrderTotalMinor:    5000,
		Owner:              UserOwner("u-1"),
		Now:                time.Date(2026, 4, 17, 12, 0, 0, 0, time.UTC),
	}
}

func TestAutomationRuleMatches(t *testing.T) {
	tests := []struct {
		name string
		rule AutomationRule
		in   func(RuleInput) RuleInput
		want bool
	}{
		{
			name: "empty conditions always match",
			rule: AutomationRule{Enabled: true},
			in:   func(in RuleInput) RuleInput { return in },
			want: true,
		},
		{
			name: "disabled never fires",
			rule: AutomationRule{Enabled: false},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "amount inside range",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{
				AmountMinorMin: int64Ptr(1000), AmountMinorMax: int64Ptr(10000),
			}},
			in:   func(in RuleInput) RuleInput { return in },
			want: true,
		},
		{
			name: "amount below min",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{AmountMinorMin: int64Ptr(6000)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "amount above max",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{AmountMinorMax: int64Ptr(4999)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "method code matches",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{MethodCodes: []string{"card", "cash"}}},
			in:   func(in RuleInput) RuleInput { return in },
			want: true,
		},
		{
			name: "method code mismatch",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{MethodCodes: []string{"card"}}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "registered required, registered owner",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{RequireRegistered: boolPtr(true)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: true,
		},
		{
			name: "registered required, guest owner",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{RequireRegistered: boolPtr(true)}},
			in: func(in RuleInput) RuleInput {
				in.Owner = GuestOwner("sess-1")
				return in
			},
			want: false,
		},
		{
			name: "guests only, guest owner",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{RequireRegistered: boolPtr(false)}},
			in: func(in RuleInput) RuleInput {
				in.Owner = GuestOwner("sess-1")
				return in
			},
			want: true,
		},
		{
			name: "min order total not reached",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{MinOrderTotalMinor: int64Ptr(9000)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "hour inside window",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{HourFrom: intPtr(9), HourTo: intPtr(18)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: true,
		},
		{
			name: "hour outside window",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{HourFrom: intPtr(13), HourTo: intPtr(18)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "window upper bound exclusive",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{HourFrom: intPtr(9), HourTo: intPtr(12)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "midnight wrap, late evening",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{HourFrom: intPtr(22), HourTo: intPtr(6)}},
			in: func(in RuleInput) RuleInput {
				in.Now = time.Date(2026, 4, 17, 23, 30, 0, 0, time.UTC)
				return in
			},
			want: true,
		},
		{
			name: "midnight wrap, early morning",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{HourFrom: intPtr(22), HourTo: intPtr(6)}},
			in: func(in RuleInput) RuleInput {
				in.Now = time.Date(2026, 4, 17, 5, 0, 0, 0, time.UTC)
				return in
			},
			want: true,
		},
		{
			name: "midnight wrap, daytime",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{HourFrom: intPtr(22), HourTo: intPtr(6)}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
		{
			name: "all conditions AND",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{
				AmountMinorMin:    int64Ptr(1000),
				MethodCodes:       []string{"cash"},
				RequireRegistered: boolPtr(true),
				MinOrderTotalMinor: int64Ptr(1000),
				HourFrom:          intPtr(9),
				HourTo:            intPtr(18),
			}},
			in:   func(in RuleInput) RuleInput { return in },
			want: true,
		},
		{
			name: "one failed condition fails the rule",
			rule: AutomationRule{Enabled: true, Conditions: RuleConditions{
				AmountMinorMin: int64Ptr(1000),
				MethodCodes:    []string{"card"},
			}},
			in:   func(in RuleInput) RuleInput { return in },
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.in(ruleInput())); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
