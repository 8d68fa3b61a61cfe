package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/store"
	"github.com/shopglot/shopglot-api/internal/task"
)

// Common errors returned by the Orchestrator constructor
var (
	ErrNilLifecycle        = errors.New("task lifecycle cannot be nil")
	ErrNilContentGateway   = errors.New("content gateway cannot be nil")
	ErrNilProvider         = errors.New("translation provider cannot be nil")
	ErrNilTranslationStore = errors.New("translation store cannot be nil")
)

// maxLocaleConcurrency caps the bounded fan-out across locale steps.
const maxLocaleConcurrency = 5

// BulkTranslationRequest carries the inputs for one orchestrator run.
type BulkTranslationRequest struct {
	Shop          string
	ResourceType  string
	ResourceID    string
	Fields        map[string]string
	SourceLocale  string
	TargetLocales []string
}

// Summary is the structured completion payload recorded on the task.
type Summary struct {
	ProcessedLocales int      `json:"processed_locales"`
	TotalLocales     int      `json:"total_locales"`
	UsedBatch        bool     `json:"used_batch"`
	Locales          []string `json:"locales"`
}

// Orchestrator drives one bulk translation end to end: it partitions
// fields into batched and sequential sets, calls the provider and the
// remote gateway per unit of work, mirrors successful writes locally,
// and records progress and the final partial-success report on a task.
type Orchestrator struct {
	lifecycle      *task.Lifecycle
	gateway        ContentGateway
	provider       Provider
	translations   store.TranslationStore
	logger         *slog.Logger
	maxConcurrency int
}

// NewOrchestrator creates a batch Orchestrator. maxConcurrency bounds
// the parallel fan-out over locale steps; values outside [1, 5] are
// clamped.
func NewOrchestrator(
	lifecycle *task.Lifecycle,
	gateway ContentGateway,
	provider Provider,
	translations store.TranslationStore,
	maxConcurrency int,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if lifecycle == nil {
		return nil, ErrNilLifecycle
	}
	if gateway == nil {
		return nil, ErrNilContentGateway
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if translations == nil {
		return nil, ErrNilTranslationStore
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if maxConcurrency > maxLocaleConcurrency {
		maxConcurrency = maxLocaleConcurrency
	}

	return &Orchestrator{
		lifecycle:      lifecycle,
		gateway:        gateway,
		provider:       provider,
		translations:   translations,
		logger:         logger.With(slog.String("component", "translation_orchestrator")),
		maxConcurrency: maxConcurrency,
	}, nil
}

// RunBulkTranslation creates a task for the request and executes the
// run synchronously. The returned task ID is valid even when the run
// ends in a failed task; callers read the outcome from the task record.
func (o *Orchestrator) RunBulkTranslation(ctx context.Context, req BulkTranslationRequest) (uuid.UUID, error) {
	t, err := o.begin(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	o.execute(ctx, t.ID, req)
	return t.ID, nil
}

// StartBulkTranslation creates a task for the request and executes the
// run in the background, returning the task ID immediately so callers
// can poll for progress. The run is detached from the request context:
// a closed HTTP connection must not cancel remote work in flight.
func (o *Orchestrator) StartBulkTranslation(ctx context.Context, req BulkTranslationRequest) (uuid.UUID, error) {
	t, err := o.begin(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	go o.execute(context.Background(), t.ID, req)
	return t.ID, nil
}

func (o *Orchestrator) begin(ctx context.Context, req BulkTranslationRequest) (*domain.Task, error) {
	resourceType := req.ResourceType
	if resourceType == "" {
		resourceType = "product"
	}

	return o.lifecycle.Create(ctx, task.CreateParams{
		Shop:          req.Shop,
		Type:          domain.TaskTypeBulkTranslation,
		ResourceType:  resourceType,
		ResourceID:    req.ResourceID,
		EstimatedWork: len(req.TargetLocales),
	})
}

// execute runs the locale batch plan for one task. Failures inside a
// single step are logged and recorded, never propagated: only total
// exhaustion (no locale succeeded) fails the task.
func (o *Orchestrator) execute(ctx context.Context, taskID uuid.UUID, req BulkTranslationRequest) {
	log := o.logger.With(
		"task_id", taskID,
		"shop", req.Shop,
		"resource_id", req.ResourceID)

	short, long := PartitionFields(req.Fields)

	totalSteps := 0
	if len(short) > 0 {
		totalSteps++
	}
	if len(long) > 0 {
		totalSteps += len(req.TargetLocales)
	}

	if totalSteps == 0 {
		log.Warn("bulk translation requested with no translatable fields")
		o.lifecycle.Fail(ctx, taskID, ErrNoFieldsToTranslate)
		return
	}

	if err := o.lifecycle.MarkQueued(ctx, taskID, 0); err != nil {
		log.Error("failed to queue task", "error", err)
	}

	digests, err := o.gateway.TranslatableDigests(ctx, req.ResourceID)
	if err != nil {
		log.Error("failed to fetch translation digests", "error", err)
		o.lifecycle.Fail(ctx, taskID, fmt.Errorf("failed to fetch translation digests: %w", err))
		return
	}

	window := o.lifecycle.Window()
	progress := newStepProgress(o.lifecycle, taskID, window, totalSteps, log)
	progress.report(ctx)

	acc := newAccumulator()

	// The batch step always precedes the per-locale steps so callers see
	// the cheap fields land before the expensive ones start.
	if len(short) > 0 {
		o.runBatchStep(ctx, log, req, short, digests, acc)
		progress.stepDone(ctx)
	}

	if len(long) > 0 {
		o.runLocaleSteps(ctx, log, req, long, digests, acc, progress)
	}

	succeeded := acc.succeededLocales()
	if len(succeeded) == 0 {
		log.Error("bulk translation produced no successful locales",
			"total_locales", len(req.TargetLocales))
		o.lifecycle.Fail(ctx, taskID, fmt.Errorf("%w: attempted %d locale(s)",
			ErrNoLocalesSucceeded, len(req.TargetLocales)))
		return
	}

	summary := Summary{
		ProcessedLocales: len(succeeded),
		TotalLocales:     len(req.TargetLocales),
		UsedBatch:        len(short) > 0,
		Locales:          succeeded,
	}

	log.Info("bulk translation completed",
		"processed_locales", summary.ProcessedLocales,
		"total_locales", summary.TotalLocales,
		"used_batch", summary.UsedBatch)

	if err := o.lifecycle.Complete(ctx, taskID, summary); err != nil {
		log.Error("failed to record task completion", "error", err)
	}
}

// runBatchStep issues the single combined call covering all target
// locales for the short fields. It counts as one unit of work no matter
// how many locales it touches.
func (o *Orchestrator) runBatchStep(
	ctx context.Context,
	log *slog.Logger,
	req BulkTranslationRequest,
	fields map[string]string,
	digests map[string]Digest,
	acc *accumulator,
) {
	translated, err := o.provider.TranslateBatch(ctx, fields, req.SourceLocale, req.TargetLocales)
	if err != nil {
		log.Error("batched translation call failed",
			"field_count", len(fields),
			"locale_count", len(req.TargetLocales),
			"quota_exhausted", IsQuotaError(err),
			"error", err)
		return
	}

	for _, locale := range req.TargetLocales {
		localeFields, ok := translated[locale]
		if !ok {
			log.Warn("provider returned no values for locale in batch step",
				"locale", locale)
			continue
		}
		o.writeLocale(ctx, log, req, locale, localeFields, digests, acc)
	}
}

// runLocaleSteps translates the long fields one locale at a time,
// fanning out up to maxConcurrency locales at once. Each completed
// locale advances the task's progress by one step.
func (o *Orchestrator) runLocaleSteps(
	ctx context.Context,
	log *slog.Logger,
	req BulkTranslationRequest,
	fields map[string]string,
	digests map[string]Digest,
	acc *accumulator,
	progress *stepProgress,
) {
	sem := make(chan struct{}, o.maxConcurrency)
	var wg sync.WaitGroup

	for _, locale := range req.TargetLocales {
		wg.Add(1)
		sem <- struct{}{}

		go func(locale string) {
			defer wg.Done()
			defer func() { <-sem }()

			translated, err := o.provider.TranslateLocale(ctx, fields, req.SourceLocale, locale)
			if err != nil {
				log.Error("per-locale translation call failed",
					"locale", locale,
					"field_count", len(fields),
					"quota_exhausted", IsQuotaError(err),
					"error", err)
			} else {
				o.writeLocale(ctx, log, req, locale, translated, digests, acc)
			}

			progress.stepDone(ctx)
		}(locale)
	}

	wg.Wait()
}

// writeLocale registers each translated field value with the remote
// system, guarded by its digest, and mirrors the successful writes
// locally. A field without a digest has no translatable slot on the
// remote resource and is skipped, not failed.
func (o *Orchestrator) writeLocale(
	ctx context.Context,
	log *slog.Logger,
	req BulkTranslationRequest,
	locale string,
	values map[string]string,
	digests map[string]Digest,
	acc *accumulator,
) {
	var mirrors []*domain.Translation

	for field, value := range values {
		digest, ok := digests[field]
		if !ok {
			log.Info("skipping field without translatable slot on remote resource",
				"locale", locale,
				"field", field)
			continue
		}

		if err := o.gateway.RegisterTranslation(ctx, req.ResourceID, locale, field, digest, value); err != nil {
			log.Error("failed to register translation with remote system",
				"locale", locale,
				"field", field,
				"quota_exhausted", IsQuotaError(err),
				"error", err)
			continue
		}

		acc.record(locale, field, value)

		mirror, err := domain.NewTranslation(req.Shop, req.ResourceID, locale, field, value, req.SourceLocale)
		if err != nil {
			log.Error("failed to build translation mirror record",
				"locale", locale,
				"field", field,
				"error", err)
			continue
		}
		mirrors = append(mirrors, mirror)
	}

	if len(mirrors) == 0 {
		return
	}

	// The remote write is the source of truth; a mirror failure is
	// logged but does not undo the locale's success.
	if err := o.translations.UpsertMany(ctx, mirrors); err != nil {
		log.Error("failed to mirror translations locally",
			"locale", locale,
			"count", len(mirrors),
			"error", err)
	}
}

// accumulator is the concurrency-safe aggregate of per-locale results.
type accumulator struct {
	mu      sync.Mutex
	results map[string]map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{results: make(map[string]map[string]string)}
}

func (a *accumulator) record(locale, field, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.results[locale] == nil {
		a.results[locale] = make(map[string]string)
	}
	a.results[locale][field] = value
}

// succeededLocales returns the locales with at least one successfully
// translated field, sorted for stable reporting. A locale counts once
// no matter whether its fields arrived via the batched or the
// sequential path.
func (a *accumulator) succeededLocales() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	locales := make([]string, 0, len(a.results))
	for locale := range a.results {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

// stepProgress tracks completed units of work and pushes the derived
// percentage to the task record after every step.
type stepProgress struct {
	mu        sync.Mutex
	lifecycle *task.Lifecycle
	taskID    uuid.UUID
	window    task.ProgressWindow
	logger    *slog.Logger
	done      int
	total     int
}

func newStepProgress(
	lifecycle *task.Lifecycle,
	taskID uuid.UUID,
	window task.ProgressWindow,
	total int,
	logger *slog.Logger,
) *stepProgress {
	return &stepProgress{
		lifecycle: lifecycle,
		taskID:    taskID,
		window:    window,
		logger:    logger,
		total:     total,
	}
}

func (p *stepProgress) stepDone(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.reportLocked(ctx)
}

func (p *stepProgress) report(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reportLocked(ctx)
}

// reportLocked pushes the derived percentage while holding mu. The
// lifecycle update is a load-then-store, so it must not interleave with
// another goroutine's report or a stale snapshot could win the write.
func (p *stepProgress) reportLocked(ctx context.Context) {
	done, total := p.done, p.total
	percent := p.window.Percent(done, total)
	if err := p.lifecycle.SetProgress(ctx, p.taskID, percent, &done, &total); err != nil {
		p.logger.Error("failed to record task progress",
			"task_id", p.taskID,
			"percent", percent,
			"error", err)
	}
}
