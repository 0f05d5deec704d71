package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/fatih/color"

	"price-recommender/models"
	"price-recommender/utils"
)

// InsightService summarises a recommendation run for the terminal.
type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: color.Output}
}

func (s *InsightService) Generate(run *models.RecommendationRun) *models.RunReport {
	report := &models.RunReport{
		RecommendationsByCat: make(map[string]int),
	}
	if run == nil {
		return report
	}

	report.Trained = len(run.Models)
	report.Skipped = len(run.Skipped)
	report.Failed = len(run.Failed)
	report.Categories = report.Trained + report.Skipped + report.Failed
	report.TotalRecommendations = len(run.Recommendations)
	report.Models = run.Models
	report.Failures = run.Failed

	for _, rec := range run.Recommendations {
		report.RecommendationsByCat[rec.Category]++
	}

	if len(run.Models) == 0 {
		return report
	}

	var total float64
	for i := range run.Models {
		m := &run.Models[i]
		total += m.MSE
		if report.WorstFit == nil || m.MSE > report.WorstFit.MSE {
			report.WorstFit = m
		}
		if report.LargestCategory == nil || m.TrainRows+m.TestRows > report.LargestCategory.TrainRows+report.LargestCategory.TestRows {
			report.LargestCategory = m
		}
	}
	report.AverageMSE = round2(total / float64(len(run.Models)))
	s.logger.Debug("[insights] %d models, average MSE %.2f, worst %q", report.Trained, report.AverageMSE, report.WorstFit.Category)

	return report
}

func (s *InsightService) Print(r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	title := color.New(color.FgMagenta, color.Bold)
	heading := color.New(color.FgYellow, color.Bold)
	bold := color.New(color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	title.Fprintf(s.out, "\n%s\n", sep)
	title.Fprintf(s.out, "  PRICE RECOMMENDATION RUN\n")
	title.Fprintf(s.out, "%s\n\n", sep)

	// Overview
	heading.Fprintf(s.out, "  Overview\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	fmt.Fprintf(s.out, "  Categories seen        : %s\n", bold.Sprint(r.Categories))
	fmt.Fprintf(s.out, "  Trained / skipped      : %s / %s\n", good.Sprint(r.Trained), bold.Sprint(r.Skipped))
	if r.Failed > 0 {
		fmt.Fprintf(s.out, "  Failed                 : %s\n", bad.Sprint(r.Failed))
	}
	fmt.Fprintf(s.out, "  Recommendations        : %s\n", bold.Sprint(r.TotalRecommendations))
	fmt.Fprintln(s.out)

	// Model quality
	heading.Fprintf(s.out, "  Held-out MSE by Category\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	if len(r.Models) == 0 {
		fmt.Fprintf(s.out, "  No category had enough rows to train\n")
	} else {
		for _, m := range r.Models {
			fmt.Fprintf(s.out, "  %-30s %12.2f  (%d/%d)\n", truncate(m.Category, 28), m.MSE, m.TrainRows, m.TestRows)
		}
		fmt.Fprintf(s.out, "  Average MSE : %s\n", good.Sprintf("%.2f", r.AverageMSE))
		if r.WorstFit != nil {
			fmt.Fprintf(s.out, "  Worst fit   : %s %s\n", truncate(r.WorstFit.Category, 30), bad.Sprintf("%.2f", r.WorstFit.MSE))
		}
	}
	fmt.Fprintln(s.out)

	if len(r.Failures) > 0 {
		heading.Fprintf(s.out, "  Failed Categories\n")
		fmt.Fprintf(s.out, "  %s\n", thin)
		for _, f := range r.Failures {
			fmt.Fprintf(s.out, "  %-30s %s\n", truncate(f.Category, 28), bad.Sprint(f.Err))
		}
		fmt.Fprintln(s.out)
	}

	// Recommendations by category
	heading.Fprintf(s.out, "  Recommendations by Category\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	if len(r.RecommendationsByCat) == 0 {
		fmt.Fprintf(s.out, "  No recommendations written\n")
	} else {
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.RecommendationsByCat {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", min(cc.count, 40))
			fmt.Fprintf(s.out, "  %-30s %s (%d)\n", truncate(cc.cat, 28), bar, cc.count)
		}
	}

	title.Fprintf(s.out, "\n%s\n\n", sep)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
