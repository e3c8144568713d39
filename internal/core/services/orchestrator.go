package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driving"
	"github.com/custodia-labs/marketlens/internal/runtime"
)

// Ensure QueryOrchestrator implements QueryService
var _ driving.QueryService = (*QueryOrchestrator)(nil)

// GenerationErrorFormat prefixes the answer when generation fails.
const GenerationErrorFormat = "I encountered an error generating the response: %v"

// queryStage is a step of the answering state machine.
// Every query runs classify, retrieve and compose, then stops at done.
type queryStage int

const (
	stageClassify queryStage = iota
	stageRetrieve
	stageCompose
	stageDone
)

func (s queryStage) String() string {
	switch s {
	case stageClassify:
		return "classify"
	case stageRetrieve:
		return "retrieve"
	case stageCompose:
		return "compose"
	default:
		return "done"
	}
}

// QueryOrchestrator answers questions by classifying intent, retrieving
// macro and micro evidence, and making one generation call.
type QueryOrchestrator struct {
	services *runtime.Services
	macro    driving.MacroService
	market   driving.MarketDataService
	timeout  time.Duration
	topK     int
	newID    func() string
	logger   *slog.Logger
}

// QueryOrchestratorConfig holds configuration for the orchestrator.
type QueryOrchestratorConfig struct {
	Services *runtime.Services // Generator is read per request
	Macro    driving.MacroService
	Market   driving.MarketDataService
	Timeout  time.Duration // Per generation call (default: 10s)
	TopK     int           // Micro records per query (default: 3)
	NewID    func() string // Request ID source (default: uuid)
	Logger   *slog.Logger
}

// NewQueryOrchestrator creates a new orchestrator.
func NewQueryOrchestrator(cfg QueryOrchestratorConfig) *QueryOrchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUpstreamTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Services == nil {
		cfg.Services = runtime.NewServices(nil)
	}
	return &QueryOrchestrator{
		services: cfg.Services,
		macro:    cfg.Macro,
		market:   cfg.Market,
		timeout:  cfg.Timeout,
		topK:     cfg.TopK,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
	}
}

// Query runs the full pipeline. Every collaborator failure is recorded in
// the result's Degradations; a blank query gets a GENERAL result asking for
// a question without calling the generator.
func (o *QueryOrchestrator) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()
	result := &domain.QueryResult{
		RequestID: o.newID(),
		Intent:    domain.IntentGeneral,
	}
	logger := o.logger.With("request_id", result.RequestID)

	if strings.TrimSpace(req.Text) == "" {
		result.Response = EmptyQueryMessage
		o.degrade(result, stageClassify, fmt.Errorf("query text is blank: %w", domain.ErrInvalidInput))
		result.Took = time.Since(start)
		logger.Debug("blank query")
		return result, nil
	}

	for stage := stageClassify; stage != stageDone; stage++ {
		switch stage {
		case stageClassify:
			result.Intent = o.classify(ctx, req.Text, result)
		case stageRetrieve:
			o.retrieve(ctx, req.Text, result)
		case stageCompose:
			result.Response = o.compose(ctx, req, result)
		}
		logger.Debug("query stage complete", "stage", stage.String(), "intent", result.Intent)
	}

	result.Took = time.Since(start)
	logger.Info("query answered",
		"intent", result.Intent,
		"macro_indicators", len(result.DataContext.Macro),
		"micro_records", len(result.DataContext.Micro),
		"degradations", len(result.Degradations),
		"took", result.Took)
	return result, nil
}

func (o *QueryOrchestrator) classify(ctx context.Context, text string, result *domain.QueryResult) domain.Intent {
	prompt, err := renderClassifyPrompt(text)
	if err != nil {
		o.degrade(result, stageClassify, err)
		return domain.IntentGeneral
	}
	answer, err := o.generate(ctx, prompt)
	if err != nil {
		o.degrade(result, stageClassify, err)
		return domain.IntentGeneral
	}
	return domain.ParseIntent(answer)
}

func (o *QueryOrchestrator) retrieve(ctx context.Context, text string, result *domain.QueryResult) {
	if result.Intent.NeedsMacro() {
		if o.macro == nil {
			o.degrade(result, stageRetrieve, fmt.Errorf("macro: %w", domain.ErrServiceUnavailable))
		} else if summary := o.macro.Summary(ctx); len(summary) > 0 {
			result.DataContext.Macro = summary
		} else {
			o.degrade(result, stageRetrieve, fmt.Errorf("macro: no indicators available: %w", domain.ErrUpstreamService))
		}
	}

	if result.Intent.NeedsMicro() {
		if o.market == nil {
			o.degrade(result, stageRetrieve, fmt.Errorf("micro: %w", domain.ErrServiceUnavailable))
			return
		}
		found, err := o.market.Search(ctx, text, o.topK)
		if err != nil {
			o.degrade(result, stageRetrieve, fmt.Errorf("micro: %w", err))
			return
		}
		if found.Mode.Degraded() {
			o.degrade(result, stageRetrieve, fmt.Errorf("micro: %s search used: %w", found.Mode, domain.ErrIndexUnavailable))
		}
		result.DataContext.Micro = found.Results
	}
}

func (o *QueryOrchestrator) compose(ctx context.Context, req domain.QueryRequest, result *domain.QueryResult) string {
	prompt, err := renderComposePrompt(req, result.DataContext)
	if err == nil {
		var answer string
		if answer, err = o.generate(ctx, prompt); err == nil {
			return answer
		}
	}
	o.degrade(result, stageCompose, err)
	return fmt.Sprintf(GenerationErrorFormat, err)
}

// ProactiveInsight returns a one-sentence dashboard insight, or a fixed hint.
func (o *QueryOrchestrator) ProactiveInsight(ctx context.Context, filters map[string]any, dataSummary string) string {
	prompt, err := renderInsightPrompt(filters, dataSummary)
	if err != nil {
		o.logger.Warn("insight prompt failed", "error", err)
		return FallbackInsight
	}
	answer, err := o.generate(ctx, prompt)
	if err != nil {
		o.logger.Warn("insight generation failed", "error", err)
		return FallbackInsight
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return FallbackInsight
	}
	return answer
}

// generate makes one bounded call to the current generator. No retries.
func (o *QueryOrchestrator) generate(ctx context.Context, prompt string) (string, error) {
	gen := o.services.Generator()
	if gen == nil {
		return "", fmt.Errorf("generator not configured: %w", domain.ErrServiceUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	answer, err := gen.Generate(callCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamService, err)
	}
	return answer, nil
}

func (o *QueryOrchestrator) degrade(result *domain.QueryResult, stage queryStage, err error) {
	msg := fmt.Sprintf("%s: %v", stage, err)
	result.Degradations = append(result.Degradations, msg)
	o.logger.Warn("query degraded", "request_id", result.RequestID, "stage", stage.String(), "error", err)
}
