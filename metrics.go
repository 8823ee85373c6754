package main

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ckwame-jpg/portfolio"

// siteMetrics counts the interactive parts of the page. With the global
// no-op MeterProvider the counters cost nothing.
type siteMetrics struct {
	introCompletions metric.Int64Counter
	konamiTriggers   metric.Int64Counter
	playgroundRuns   metric.Int64Counter
	githubFetches    metric.Int64Counter
}

func newSiteMetrics(mp metric.MeterProvider) (*siteMetrics, error) {
	meter := mp.Meter(meterName)
	m := &siteMetrics{}
	var err error

	if m.introCompletions, err = meter.Int64Counter("portfolio.intro.completions",
		metric.WithDescription("Intro animations played to the end"),
	); err != nil {
		return nil, err
	}
	if m.konamiTriggers, err = meter.Int64Counter("portfolio.konami.triggers",
		metric.WithDescription("Konami code detections"),
	); err != nil {
		return nil, err
	}
	if m.playgroundRuns, err = meter.Int64Counter("portfolio.playground.runs",
		metric.WithDescription("API playground requests"),
	); err != nil {
		return nil, err
	}
	if m.githubFetches, err = meter.Int64Counter("portfolio.github.fetches",
		metric.WithDescription("Contribution calendar lookups"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *siteMetrics) introCompleted(ctx context.Context) {
	m.introCompletions.Add(ctx, 1)
}

func (m *siteMetrics) konamiTriggered(ctx context.Context) {
	m.konamiTriggers.Add(ctx, 1)
}

func (m *siteMetrics) playgroundRan(ctx context.Context, mode string, status int) {
	m.playgroundRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", strconv.Itoa(status)),
	))
}

func (m *siteMetrics) githubFetched(ctx context.Context, err error) {
	m.githubFetches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("error", err != nil)))
}
