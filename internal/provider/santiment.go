package provider

import (
	"context"
	"fmt"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const santimentURL = "https://api.santiment.net/graphql"

const socialVolumeQuery = `query SocialVolume($slug: String!, $from: DateTime!, $to: DateTime!) {
  getMetric(metric: "social_volume_total") {
    timeseriesData(slug: $slug, from: $from, to: $to, interval: "1d") {
      datetime
      value
    }
  }
}`

// SantimentProvider reads social volume series from Santiment.
type SantimentProvider struct {
	base
}

func NewSantimentProvider(tracer trace.Tracer, opts Options) *SantimentProvider {
	return &SantimentProvider{base: newBase("santiment", santimentURL, tracer, opts, PerMinute(20))}
}

// SocialVolume returns daily social mention counts for slug over the last days.
func (p *SantimentProvider) SocialVolume(ctx context.Context, slug string, days int) ([]domain.SeriesPoint, error) {
	ctx, span := p.startSpan(ctx, "social-volume")
	defer span.End()
	span.SetAttributes(attribute.String("slug", slug))

	if err := p.requireKey(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}

	to := time.Now().UTC()
	vars := map[string]any{
		"slug": slug,
		"from": to.AddDate(0, 0, -days).Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}
	var data struct {
		GetMetric struct {
			TimeseriesData []struct {
				Datetime string    `json:"datetime"`
				Value    flexFloat `json:"value"`
			} `json:"timeseriesData"`
		} `json:"getMetric"`
	}
	headers := map[string]string{"Authorization": "Apikey " + p.apiKey}
	if err := p.graphQL(ctx, p.baseURL, headers, socialVolumeQuery, vars, &data); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("social volume for %s: %w", slug, err)
	}

	points := make([]domain.SeriesPoint, 0, len(data.GetMetric.TimeseriesData))
	for _, pt := range data.GetMetric.TimeseriesData {
		ts := parseTime(pt.Datetime)
		if ts.IsZero() {
			continue
		}
		points = append(points, domain.SeriesPoint{Timestamp: ts.Unix(), Value: pt.Value.Float()})
	}
	return points, nil
}
