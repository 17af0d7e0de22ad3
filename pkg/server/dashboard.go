package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/elonfeng/techriver/pkg/resolver"
	"github.com/elonfeng/techriver/pkg/river"
	"github.com/elonfeng/techriver/pkg/sentiment"
)

// dashboardTags bounds the slices of the tag pie.
const dashboardTags = 10

// handleDashboard renders the charts of one community river.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, err := riverRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if r.URL.Query().Get("limit") == "" {
		req.Limit = resolver.MaxLimit
	}

	res, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	page := components.NewPage()
	page.PageTitle = "techriver: r/" + res.Name
	page.AddCharts(importanceChart(res), tagChart(res.Posts), sentimentChart(res.Posts))
	if s.tagger != nil {
		page.AddCharts(categoryChart(s.tagger, res.Posts))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		s.log.Error("render dashboard", "name", res.Name, "error", err)
	}
}

func importanceChart(res *resolver.Result) *charts.Bar {
	summary := river.Distribution(res.Posts)
	subtitle := fmt.Sprintf("%d posts, mean %.2f, median %.2f", summary.Count, summary.Mean, summary.Median)
	if res.Fallback {
		subtitle += fmt.Sprintf(" (fallback from %v)", res.FallbackFrom)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Importance of r/" + res.Name, Subtitle: subtitle}),
	)

	buckets := river.Buckets(res.Posts)
	x := make([]string, len(buckets))
	y := make([]opts.BarData, len(buckets))
	for i, n := range buckets {
		x[i] = fmt.Sprintf("%.1f-%.1f", float64(i)/10, float64(i+1)/10)
		y[i] = opts.BarData{Value: n}
	}
	bar.SetXAxis(x).AddSeries("Posts", y)
	return bar
}

func tagChart(posts []river.ScoredPost) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Tags"}),
	)

	type tagCount struct {
		tag string
		n   int
	}
	var counts []tagCount
	for tag, n := range river.TagCounts(posts) {
		counts = append(counts, tagCount{tag, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].n != counts[j].n {
			return counts[i].n > counts[j].n
		}
		return counts[i].tag < counts[j].tag
	})
	if len(counts) > dashboardTags {
		counts = counts[:dashboardTags]
	}

	items := make([]opts.PieData, 0, len(counts))
	for _, c := range counts {
		items = append(items, opts.PieData{Name: c.tag, Value: c.n})
	}
	pie.AddSeries("Posts", items)
	return pie
}

func sentimentChart(posts []river.ScoredPost) *charts.Pie {
	results := make([]sentiment.Result, len(posts))
	for i, p := range posts {
		results[i] = sentiment.Result{Label: p.SentimentLabel, Score: p.SentimentScore}
	}
	dist := sentiment.Distribution(results)

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Sentiment"}),
	)
	items := make([]opts.PieData, 0, len(dist))
	for _, label := range []sentiment.Label{sentiment.Positive, sentiment.Neutral, sentiment.Negative} {
		items = append(items, opts.PieData{Name: string(label), Value: dist[label]})
	}
	pie.AddSeries("Posts", items)
	return pie
}

// categoryChart counts posts per keyword category.
func categoryChart(c Categorizer, posts []river.ScoredPost) *charts.Bar {
	counts := make(map[string]int)
	relevance := 0.0
	for _, p := range posts {
		text := p.Text
		if text == "" {
			text = p.Title
		}
		for name := range c.CategoryDistribution(text) {
			counts[name]++
		}
		relevance += c.RelevanceScore(text)
	}
	if len(posts) > 0 {
		relevance /= float64(len(posts))
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	y := make([]opts.BarData, len(names))
	for i, name := range names {
		y[i] = opts.BarData{Value: counts[name]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Categories",
			Subtitle: fmt.Sprintf("mean relevance %.2f", relevance),
		}),
	)
	bar.SetXAxis(names).AddSeries("Posts", y)
	return bar
}
