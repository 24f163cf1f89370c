package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/metrics"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

// LabelURL is one external search link for a record label.
type LabelURL struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LabelURLs builds Discogs, Bandcamp, and Google search links for each
// label in a comma-separated label_names value. Titles are prefixed
// with the label name only when the release credits more than one.
func LabelURLs(labelNames string) []LabelURL {
	urls := []LabelURL{}
	if labelNames == "" || labelNames == "Unknown" {
		return urls
	}

	labels := splitLabels(labelNames)
	for _, label := range labels {
		prefix := ""
		if len(labels) > 1 {
			prefix = label + " - "
		}
		quoted := escapeQuery(label)
		plusQuoted := url.QueryEscape(label)

		urls = append(urls,
			LabelURL{
				URL:         fmt.Sprintf("https://www.discogs.com/search/?q=%s&type=label", quoted),
				Title:       prefix + "Discogs Label Page",
				Description: fmt.Sprintf("Search for %s on Discogs", label),
			},
			LabelURL{
				URL:         fmt.Sprintf("https://bandcamp.com/search?q=%s&item_type=b", plusQuoted),
				Title:       prefix + "Bandcamp Search",
				Description: fmt.Sprintf("Find %s on Bandcamp", label),
			},
			LabelURL{
				URL:         fmt.Sprintf("https://www.google.com/search?q=%s+record+label", quoted),
				Title:       prefix + "Google Search",
				Description: fmt.Sprintf("Search for %s information", label),
			})
	}
	return urls
}

// LabelOverviews returns an overview per label, generating and caching
// missing ones. A label whose generation fails is omitted; this never
// errors the surrounding request.
func (s *Service) LabelOverviews(ctx context.Context, labelNames string) map[string]string {
	overviews := map[string]string{}
	if !s.overviewsEnabled || s.overviews == nil || !s.overviews.Available() {
		return overviews
	}
	if labelNames == "" || labelNames == "Unknown" {
		return overviews
	}

	for _, name := range splitLabels(labelNames) {
		if text, ok := s.labelOverview(ctx, name); ok {
			overviews[name] = text
		}
	}
	return overviews
}

func (s *Service) labelOverview(ctx context.Context, name string) (string, bool) {
	info, err := s.store.LabelOverview(name)
	if err == nil && info.CacheValid && info.Overview != "" {
		return info.Overview, true
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("label overview cache read failed",
			zap.String("label", name), zap.Error(err))
	}

	// Concurrent requests for the same label share one upstream call;
	// only the winning call caches the result.
	v, err, _ := s.labelGroup.Do(name, func() (interface{}, error) {
		text, gerr := s.overviews.GenerateLabelOverview(ctx, name)
		if gerr != nil {
			if rerr := s.store.RecordLabelError(name, gerr.Error()); rerr != nil {
				s.logger.Warn("recording label error failed",
					zap.String("label", name), zap.Error(rerr))
			}
			return nil, gerr
		}

		metrics.LabelOverviewsGenerated.Inc()
		if serr := s.store.SaveLabelOverview(name, text, s.overviews.Model()); serr != nil {
			s.logger.Warn("caching label overview failed",
				zap.String("label", name), zap.Error(serr))
		}
		return text, nil
	})
	if err != nil {
		s.logger.Warn("label overview generation failed",
			zap.String("label", name), zap.Error(err))
		return "", false
	}

	return v.(string), true
}

func splitLabels(labelNames string) []string {
	seen := map[string]bool{}
	labels := []string{}
	for _, part := range strings.Split(labelNames, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		labels = append(labels, name)
	}
	return labels
}

// escapeQuery percent-encodes a query value with %20 for spaces.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
