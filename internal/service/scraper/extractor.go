package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/domain"
	"github.com/kapu/herobuilds-api-go/internal/metrics"
	"github.com/kapu/herobuilds-api-go/internal/util"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"go.uber.org/zap"
)

// Extractor renders source pages and parses them into roster or detail payloads.
type Extractor struct {
	renderer Renderer
	parser   *Parser
	breaker  *util.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

var _ domain.PageExtractor = (*Extractor)(nil)

// NewExtractor wires an extractor. breaker and m may be nil.
func NewExtractor(renderer Renderer, breaker *util.CircuitBreaker, m *metrics.Metrics, logger *zap.Logger) *Extractor {
	return &Extractor{
		renderer: renderer,
		parser:   NewParser(logger),
		breaker:  breaker,
		metrics:  m,
		logger:   logger,
	}
}

func (e *Extractor) Fetch(ctx context.Context, target domain.FetchTarget) (*domain.Extraction, error) {
	url, err := target.RenderURL()
	if err != nil {
		return nil, apperrors.NewExtractionError(target.URL, apperrors.CauseNavigation, err)
	}

	if e.breaker != nil && !e.breaker.Allow() {
		return nil, apperrors.NewExtractionError(url, apperrors.CauseCircuitOpen,
			fmt.Errorf("source marked unavailable after repeated failures"))
	}

	started := time.Now()
	extraction, err := e.fetch(ctx, url, target.Kind)
	e.metrics.ObserveExtraction(target.Kind.String(), err, time.Since(started))

	if err != nil {
		// A caller that went away says nothing about the source.
		if ctx.Err() != nil {
			e.releaseBreaker()
		} else {
			e.recordFailure()
		}
		e.logger.Warn("Extraction failed",
			zap.String("url", url),
			zap.String("kind", target.Kind.String()),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return nil, err
	}

	e.recordSuccess()
	e.logger.Info("Extraction completed",
		zap.String("url", url),
		zap.String("kind", target.Kind.String()),
		zap.Bool("empty", extraction.IsEmpty()),
		zap.Duration("elapsed", time.Since(started)))

	return extraction, nil
}

func (e *Extractor) fetch(ctx context.Context, url string, kind domain.FetchKind) (*domain.Extraction, error) {
	html, err := e.renderer.Render(ctx, url)
	if err != nil {
		return nil, apperrors.NewExtractionError(url, classifyRenderError(err), err)
	}

	switch kind {
	case domain.FetchKindRoster:
		roster, err := e.parser.ParseRoster(strings.NewReader(html))
		if err != nil {
			return nil, apperrors.NewExtractionError(url, apperrors.CauseParse, err)
		}
		return &domain.Extraction{Roster: roster}, nil
	case domain.FetchKindDetail:
		detail, err := e.parser.ParseDetail(strings.NewReader(html))
		if err != nil {
			return nil, apperrors.NewExtractionError(url, apperrors.CauseParse, err)
		}
		return &domain.Extraction{Detail: detail}, nil
	default:
		return nil, apperrors.NewExtractionError(url, apperrors.CauseParse,
			fmt.Errorf("unknown fetch kind %q", kind))
	}
}

func (e *Extractor) recordFailure() {
	if e.breaker != nil {
		e.breaker.RecordFailure()
	}
}

func (e *Extractor) releaseBreaker() {
	if e.breaker != nil {
		e.breaker.Release()
	}
}

func (e *Extractor) recordSuccess() {
	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}
}
