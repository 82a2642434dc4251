package analyzer

import (
	"github-repo-analyzer/internal/scoring"

	"github.com/montanaflynn/stats"
)

// Summary 一批评分结果的统计
type Summary struct {
	Count  int            `json:"count"`
	Failed int            `json:"failed"`
	Mean   float64        `json:"mean"`
	Median float64        `json:"median"`
	Min    float64        `json:"min"`
	Max    float64        `json:"max"`
	StdDev float64        `json:"stddev"`
	Grades map[string]int `json:"grades"`
}

// Summarize 只统计成功的结果；全部失败时各项统计为 0
func Summarize(results []BatchResult) Summary {
	s := Summary{Count: len(results), Grades: map[string]int{}}

	var totals stats.Float64Data
	for _, r := range results {
		if r.Err != nil || r.Result == nil {
			s.Failed++
			continue
		}
		totals = append(totals, float64(r.Result.Breakdown.Total))
		s.Grades[r.Result.Breakdown.Grade]++
	}
	if len(totals) == 0 {
		return s
	}

	// 输入非空时这些函数不会返回错误
	s.Mean, _ = stats.Mean(totals)
	s.Median, _ = stats.Median(totals)
	s.Min, _ = stats.Min(totals)
	s.Max, _ = stats.Max(totals)
	s.StdDev, _ = stats.StandardDeviation(totals)
	s.Mean, _ = stats.Round(s.Mean, 2)
	s.StdDev, _ = stats.Round(s.StdDev, 2)
	return s
}

// GradeOrder 返回出现过的等级，按从高到低排列
func (s Summary) GradeOrder() []string {
	var order []string
	for _, g := range scoring.Grades() {
		if s.Grades[g.Letter] > 0 {
			order = append(order, g.Letter)
		}
	}
	return order
}
