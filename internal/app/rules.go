package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type ruleFile struct {
	Rules []ruleJSON `json:"rules"`
}

type ruleJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Priority   int32  `json:"priority"`
	Conditions struct {
		AmountMinorMin     *int64   `json:"amount_minor_min,omitempty"`
		AmountMinorMax     *int64   `json:"amount_minor_max,omitempty"`
		MethodCodes        []string `json:"method_codes,omitempty"`
		RequireRegistered  *bool    `json:"require_registered,omitempty"`
		MinOrderTotalMinor *int64   `json:"min_order_total_minor,omitempty"`
		HourFrom           *int     `json:"hour_from,omitempty"`
		HourTo             *int     `json:"hour_to,omitempty"`
	} `json:"conditions"`
	Actions struct {
		Notify         bool   `json:"notify"`
		SetOrderStatus string `json:"set_order_status,omitempty"`
		Note           string `json:"note,omitempty"`
	} `json:"actions"`
}

// LoadAutomationRules читает правила автоподтверждения из JSON-файла и
// упорядочивает их по убыванию priority: при нескольких совпадениях
// срабатывает правило с наибольшим приоритетом, порядок равных сохраняется
// как в файле. Пустой путь означает "правила не настроены".
func LoadAutomationRules(path string) ([]domain.AutomationRule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file ruleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	rules := make([]domain.AutomationRule, 0, len(file.Rules))
	for _, raw := range file.Rules {
		rule := domain.AutomationRule{
			ID:       raw.ID,
			Name:     raw.Name,
			Enabled:  raw.Enabled,
			Priority: raw.Priority,
			Conditions: domain.RuleConditions{
				AmountMinorMin:     raw.Conditions.AmountMinorMin,
				AmountMinorMax:     raw.Conditions.AmountMinorMax,
				MethodCodes:        raw.Conditions.MethodCodes,
				RequireRegistered:  raw.Conditions.RequireRegistered,
				MinOrderTotalMinor: raw.Conditions.MinOrderTotalMinor,
				HourFrom:           raw.Conditions.HourFrom,
				HourTo:             raw.Conditions.HourTo,
			},
			Actions: domain.RuleActions{
				Notify:         raw.Actions.Notify,
				SetOrderStatus: domain.OrderStatus(raw.Actions.SetOrderStatus),
				Note:           raw.Actions.Note,
			},
		}
		rules = append(rules, rule)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	return rules, nil
}
