package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guideline-agent/backend/internal/audience"
	"github.com/guideline-agent/backend/internal/enrich"
	"github.com/guideline-agent/backend/internal/guidelines"
	"github.com/guideline-agent/backend/internal/llm"
	"github.com/guideline-agent/backend/internal/metrics"
	"github.com/guideline-agent/backend/internal/models"
	"github.com/guideline-agent/backend/internal/prompt"
	"github.com/guideline-agent/backend/pkg/logger"
)

// ErrInvalidRequest rejects a run whose query is empty or whitespace-only.
// Its message is safe to show to the caller.
var ErrInvalidRequest = errors.New("query must not be empty")

type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type LiteratureSource interface {
	Retrieve(ctx context.Context, query string, aud audience.Audience) []models.LiteratureEntry
}

// Pipeline assembles one answer per request: classify the audience, match
// local documents, ask the model for a structured synthesis, enrich it, and
// merge in retrieved literature. A model or parse failure is fatal; a
// literature failure only empties that section.
type Pipeline struct {
	store      *guidelines.Store
	model      ModelClient
	literature LiteratureSource
}

func New(store *guidelines.Store, model ModelClient, literature LiteratureSource) *Pipeline {
	return &Pipeline{
		store:      store,
		model:      model,
		literature: literature,
	}
}

func (p *Pipeline) Run(ctx context.Context, query string, flags models.InclusionFlags) (*models.StructuredAnswer, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		metrics.PipelineTotal.WithLabelValues("invalid_request").Inc()
		return nil, ErrInvalidRequest
	}

	requestID := uuid.New().String()
	aud := audience.Classify(query)

	log := logger.With(
		zap.String("request_id", requestID),
		zap.String("audience", string(aud)),
	)
	log.Info("pipeline started",
		zap.String("query", query),
		zap.Bool("local", flags.Local),
		zap.Bool("national", flags.National),
		zap.Bool("literature", flags.Literature),
	)

	// Literature retrieval shares nothing with the model call until final
	// assembly, so it runs alongside it.
	var literatureCh chan []models.LiteratureEntry
	if flags.Literature {
		literatureCh = make(chan []models.LiteratureEntry, 1)
		go func() {
			literatureCh <- p.literature.Retrieve(ctx, query, aud)
		}()
	}

	var matches guidelines.MatchResult
	if flags.Local {
		matches = p.store.Match(query, aud)
		metrics.LocalMatchCount.Observe(float64(len(matches.All)))
		log.Debug("local guidelines matched",
			zap.Int("all", len(matches.All)),
			zap.Int("primary", len(matches.Primary)),
		)
	}

	var answer models.StructuredAnswer
	if flags.Local || flags.National {
		promptText := prompt.Compose(query, matches.PrimaryTitles(), flags, aud)

		modelStart := time.Now()
		raw, err := p.model.Generate(ctx, promptText)
		metrics.ModelCallDuration.Observe(time.Since(modelStart).Seconds())
		if err != nil {
			metrics.PipelineTotal.WithLabelValues("upstream_error").Inc()
			return nil, fmt.Errorf("failed to generate answer: %w", err)
		}

		parsed, err := llm.Extract(raw)
		if err != nil {
			metrics.PipelineTotal.WithLabelValues("parse_error").Inc()
			return nil, fmt.Errorf("failed to parse model answer: %w", err)
		}

		answer = enrich.Enrich(parsed, matches, prompt.AdjustQuery(query, aud), flags)
	}

	if flags.Literature {
		papers := <-literatureCh
		if papers == nil {
			papers = []models.LiteratureEntry{}
		}
		answer.PublishedLiterature = &models.LiteratureSection{Papers: papers}
	}

	metrics.PipelineTotal.WithLabelValues("success").Inc()
	metrics.PipelineDuration.WithLabelValues(string(aud)).Observe(time.Since(start).Seconds())

	log.Info("pipeline completed", zap.Duration("elapsed", time.Since(start)))

	return &answer, nil
}
