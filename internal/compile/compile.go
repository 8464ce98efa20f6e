// Package compile sequences a full mutation pass over a game's containers:
// clones, field patches, media builds, global index patching, and envelope
// writing. One orchestrator instance owns the loaded container and the
// numeric id allocator for its whole lifetime; a pass is a single blocking
// call with cancellation checked between stages only.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"modforge/internal/catalog"
	"modforge/internal/config"
	"modforge/internal/container"
	"modforge/internal/logging"
	"modforge/internal/patchset"
	"modforge/internal/probe"
	"modforge/internal/services"
)

// indexMutation is one pending global index change, applied as a batch in
// the index stage.
type indexMutation struct {
	path       string
	originType int32
	numericID  int64
}

// Orchestrator drives one compile pass.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *probe.Registry
	set      *patchset.Set
	store    *catalog.Store

	stage    Stage
	session  string
	warnings []string
	counts   Counts

	container *container.Container
	alloc     *container.IDAllocator
	byName    map[string]*container.Record
	touched   map[string]*container.Record
	indexMuts []indexMutation
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithCatalog attaches a scan catalog; nil leaves caching off.
func WithCatalog(store *catalog.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithRegistry overrides the layout registry, for engine builds whose
// layouts were loaded from a descriptor file.
func WithRegistry(reg *probe.Registry) Option {
	return func(o *Orchestrator) { o.registry = reg }
}

// New builds an orchestrator for one pass over the given merged set.
func New(cfg *config.Config, logger *slog.Logger, set *patchset.Set, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "compile"),
		registry: probe.NewRegistry(),
		set:      set,
		stage:    StageIdle,
		session:  uuid.NewString(),
		byName:   make(map[string]*container.Record),
		touched:  make(map[string]*container.Record),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stage returns the stage the orchestrator last entered.
func (o *Orchestrator) Stage() Stage { return o.stage }

// Run executes the pass. The returned result is never nil.
func (o *Orchestrator) Run(ctx context.Context) *Result {
	started := time.Now()
	ctx = services.WithRequestID(ctx, o.session)

	res := &Result{SessionID: o.session}
	defer func() {
		res.Stage = o.stage
		res.Warnings = o.warnings
		res.Counts = o.counts
		res.Duration = time.Since(started)
	}()

	if err := o.cfg.EnsureDirectories(); err != nil {
		return o.fail(res, services.Wrap(services.ErrConfiguration, string(StageIdle), "prepare", "create working directories", err))
	}
	lock := flock.New(filepath.Join(o.cfg.Paths.OutputDir, ".modforge.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return o.fail(res, services.Wrap(services.ErrConfiguration, string(StageIdle), "lock", "acquire output lock", err))
	}
	if !locked {
		return o.fail(res, services.Wrap(services.ErrConfiguration, string(StageIdle), "lock",
			"another compile pass holds the output directory", nil))
	}
	defer func() {
		_ = lock.Unlock()
	}()

	steps := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageLoadContainer, o.loadContainer},
		{StageProcessClones, o.processClones},
		{StageProcessPatches, o.processPatches},
		{StageProcessMedia, o.processMedia},
		{StagePatchGlobalIndex, o.patchGlobalIndex},
		{StageWriteOutput, func(ctx context.Context) error { return o.writeOutput(ctx, res) }},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return o.fail(res, services.Wrap(services.ErrValidation, string(o.stage), "cancel", "pass cancelled", err))
		}
		o.enter(step.stage)
		if err := step.run(services.WithStage(ctx, string(step.stage))); err != nil {
			return o.fail(res, err)
		}
	}

	o.stage = StageDone
	res.Success = true
	if res.OutputPath != "" {
		res.Message = fmt.Sprintf("compiled %d records into %s", len(o.container.Records), res.OutputPath)
	} else {
		res.Message = fmt.Sprintf("compiled %d records; loose asset manifest at %s", len(o.container.Records), res.FallbackManifest)
	}
	o.logger.Info("compile pass finished",
		logging.String(logging.FieldCorrelationID, o.session),
		logging.Int("records", len(o.container.Records)),
		logging.Int("warnings", len(o.warnings)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return res
}

func (o *Orchestrator) enter(stage Stage) {
	o.stage = stage
	o.logger.Debug("stage started",
		logging.String(logging.FieldStage, string(stage)),
		logging.String(logging.FieldCorrelationID, o.session),
	)
}

func (o *Orchestrator) fail(res *Result, err error) *Result {
	o.stage = StageFailed
	res.Success = false
	res.Message = err.Error()
	o.logger.Error("compile pass failed", logging.Error(err),
		logging.String(logging.FieldCorrelationID, o.session))
	return res
}

func (o *Orchestrator) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.warnings = append(o.warnings, msg)
	o.logger.Warn(msg, logging.String(logging.FieldCorrelationID, o.session))
}

func (o *Orchestrator) touch(name string, rec *container.Record) {
	o.byName[name] = rec
	o.touched[name] = rec
}
