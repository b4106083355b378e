// Package trend computes windowed metric trends from the historical run index.
package trend

import (
	"fmt"

	"rageval/internal/results"
	"rageval/internal/spec"
)

// Rule decides the status of one metric in one run.
type Rule interface {
	Name() string
	Status(point results.MetricSnapshot) string
}

type noneRule struct{}

func (noneRule) Name() string { return spec.RuleNone }

func (noneRule) Status(point results.MetricSnapshot) string {
	if point.NoData || point.AvgScore == nil {
		return results.StatusNoData
	}
	if *point.AvgScore < point.Threshold {
		return results.StatusFail
	}
	return results.StatusPass
}

// minPassRateRule also fails points whose pass rate is below a fixed floor.
type minPassRateRule struct {
	min float64
}

func (minPassRateRule) Name() string { return spec.RuleMinPassRate }

func (r minPassRateRule) Status(point results.MetricSnapshot) string {
	status := noneRule{}.Status(point)
	if status == results.StatusPass && point.PassRate < r.min {
		return results.StatusFail
	}
	return status
}

// thresholdRule also fails points whose pass rate is below the metric threshold.
type thresholdRule struct{}

func (thresholdRule) Name() string { return spec.RuleThresholdBased }

func (thresholdRule) Status(point results.MetricSnapshot) string {
	status := noneRule{}.Status(point)
	if status == results.StatusPass && point.PassRate < point.Threshold {
		return results.StatusFail
	}
	return status
}

// NewRule returns the rule for name. minPassRate is a fraction in [0,1].
func NewRule(name string, minPassRate float64) (Rule, error) {
	switch name {
	case spec.RuleNone:
		return noneRule{}, nil
	case spec.RuleMinPassRate, "":
		return minPassRateRule{min: minPassRate}, nil
	case spec.RuleThresholdBased:
		return thresholdRule{}, nil
	default:
		return nil, fmt.Errorf("unknown trend status rule %q", name)
	}
}

// RuleFor builds the configured rule.
func RuleFor(cfg spec.Config) (Rule, error) {
	return NewRule(cfg.Reporting.TrendStatusPassRule, cfg.Reporting.TrendStatusMinPassRate)
}

// RunStatus is the overall status of one run: FAIL when any metric fails, NO_DATA
// when no metric has data, PASS otherwise.
func RunStatus(rule Rule, metrics map[string]results.MetricSnapshot) string {
	status := results.StatusNoData
	for _, point := range metrics {
		switch rule.Status(point) {
		case results.StatusFail:
			return results.StatusFail
		case results.StatusPass:
			status = results.StatusPass
		}
	}
	return status
}

// WindowStatus folds point statuses, oldest first, into one status.
func WindowStatus(statuses []string) string {
	var withData []string
	for _, status := range statuses {
		if status != results.StatusNoData {
			withData = append(withData, status)
		}
	}
	if len(withData) == 0 {
		return results.StatusNoData
	}
	allPass := true
	for _, status := range withData {
		if status != results.StatusPass {
			allPass = false
			break
		}
	}
	switch {
	case allPass:
		return results.StatusPass
	case statuses[len(statuses)-1] == results.StatusFail:
		return results.StatusFail
	default:
		return results.StatusWarn
	}
}
