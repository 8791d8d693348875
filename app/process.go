package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/sage/adapters/metrics"
	"github.com/artpar/sage/domain/bundle"
	"github.com/artpar/sage/domain/catalog"
	"github.com/artpar/sage/domain/dataset"
	"github.com/artpar/sage/domain/dedup"
	"github.com/artpar/sage/domain/diagnostic"
	"github.com/artpar/sage/domain/expr"
	"github.com/artpar/sage/ports"
)

// Processor drives a package submission end to end:
//
//	load specs -> check format -> dedup gate -> extract -> resolve catalogs ->
//	validate each catalog -> aggregate -> register -> report
//
// Specification failures (ConfigError) and format failures (FormatError)
// abort before any data is read; everything after extraction is non-fail-fast
// and accumulates into the report.
type Processor struct {
	specs       *SpecService
	resolver    *Resolver
	reader      ports.DatasetReader
	store       ports.ProcessedStore
	clock       ports.Clock
	ids         ports.IDGenerator
	packagesDir string
	logger      zerolog.Logger

	notifier ports.Notifier
	metrics  *metrics.Collector
}

// ProcessorConfig carries optional processor collaborators.
type ProcessorConfig struct {
	// PackagesDir holds package specs for inbound artifact routing.
	PackagesDir string
	// Notifier receives every finished report. Nil disables notification.
	Notifier ports.Notifier
	// Metrics receives processing counters. Nil disables metrics.
	Metrics *metrics.Collector
}

// NewProcessor creates a processor.
func NewProcessor(
	specs *SpecService,
	resolver *Resolver,
	reader ports.DatasetReader,
	store ports.ProcessedStore,
	clock ports.Clock,
	ids ports.IDGenerator,
	logger zerolog.Logger,
	cfg ProcessorConfig,
) *Processor {
	return &Processor{
		specs:       specs,
		resolver:    resolver,
		reader:      reader,
		store:       store,
		clock:       clock,
		ids:         ids,
		packagesDir: cfg.PackagesDir,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		logger:      logger.With().Str("component", "processor").Logger(),
	}
}

// ProcessOptions control one processing run.
type ProcessOptions struct {
	// Force bypasses the package-level dedup gate.
	Force bool
	// SenderID tags the run's processed record when known.
	SenderID string
}

// ProcessPackage validates artifact against the package spec at packagePath.
//
// The returned error is a *ConfigError, *FormatError or *DuplicateError when
// no validation ran; otherwise the report carries the complete diagnostic set
// and the verdict.
func (p *Processor) ProcessPackage(ctx context.Context, artifact, packagePath string, opts ProcessOptions) (*diagnostic.Report, error) {
	started := p.clock.Now()

	spec, err := p.specs.LoadPackage(packagePath)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With().Str("package", spec.Name).Logger()

	actual, err := bundle.FormatFromFilename(artifact)
	if err != nil {
		return nil, &FormatError{Expected: spec.Format, Got: filepath.Ext(artifact), Err: err}
	}
	if actual != spec.Format {
		return nil, &FormatError{Expected: spec.Format, Got: string(actual)}
	}

	modifiedAt, err := artifactModTime(artifact)
	if err != nil {
		return nil, &FormatError{Expected: spec.Format, Got: string(actual), Err: err}
	}

	if !opts.Force {
		prev, found, err := p.store.LastByKey(ctx, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("dedup check: %w", err)
		}
		if found && dedup.DuplicateByModTime(prev, modifiedAt) {
			if p.metrics != nil {
				p.metrics.DuplicatesRejected.Inc()
			}
			logger.Info().Time("modified_at", modifiedAt).Msg("submission rejected as duplicate")
			return nil, &DuplicateError{
				Key:    spec.Name,
				Detail: fmt.Sprintf("already processed at %s with modification time %s",
					prev.ProcessedAt.Format(time.RFC3339), prev.ModifiedAt.Format(time.RFC3339)),
			}
		}
	}

	res, err := p.resolver.Resolve(spec, artifact)
	if err != nil {
		return nil, err
	}
	defer res.Cleanup()

	report := &diagnostic.Report{
		Package:   spec.Name,
		Errors:    res.Errors,
		RowCounts: make(map[string]int),
	}

	validator := catalog.Validator{Now: p.clock.Now}
	datasets := make(map[string]*dataset.Dataset, len(res.Matches))
	for _, m := range res.Matches {
		ds, err := p.reader.ReadFile(m.File)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("cannot read %s for catalog %q: %v", filepath.Base(m.File), m.Ref.Name, err))
			continue
		}
		datasets[m.Ref.Name] = ds
		report.RowCounts[m.Ref.Name] = ds.Rows()

		diags := validator.Validate(ds, m.Spec)
		report.Diagnostics = append(report.Diagnostics, diags...)

		logger.Info().
			Str("catalog", m.Spec.Name).
			Int("rows", ds.Rows()).
			Int("findings", len(diags)).
			Msg("catalog validated")
		if p.metrics != nil {
			p.metrics.RowsValidated.Add(float64(ds.Rows()))
		}
	}

	report.Diagnostics = append(report.Diagnostics, p.packageRules(spec, datasets)...)
	report.Finalize()

	p.register(ctx, spec.Name, opts.SenderID, modifiedAt, report, logger)
	p.observe(spec.Name, started, report)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, report); err != nil {
			logger.Warn().Err(err).Msg("notification failed")
		}
	}

	return report, nil
}

// packageRules evaluates package-level rules. Each rule runs as a single
// boolean against the first validated dataset that carries every column the
// rule references.
func (p *Processor) packageRules(spec *bundle.Spec, datasets map[string]*dataset.Dataset) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic

	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, rule := range spec.Rules {
		ex, err := expr.Compile(rule.Rule)
		if err != nil {
			diags = append(diags, packageRuleFailure(spec.Name, rule, fmt.Sprintf("error evaluating rule: %v", err)))
			continue
		}

		ds, ok := datasetFor(ex, names, datasets)
		if !ok {
			diags = append(diags, packageRuleFailure(spec.Name, rule,
				fmt.Sprintf("no validated catalog carries columns %s", strings.Join(ex.Columns(), ", "))))
			continue
		}

		passed, err := expr.Evaluator{Now: p.clock.Now}.EvalScalar(ex, ds)
		if err != nil {
			diags = append(diags, packageRuleFailure(spec.Name, rule, fmt.Sprintf("error evaluating rule: %v", err)))
			continue
		}
		if !passed {
			diags = append(diags, packageRuleFailure(spec.Name, rule,
				fmt.Sprintf("package rule %q failed", rule.Name)))
		}
	}
	return diags
}

func datasetFor(ex *expr.Expr, names []string, datasets map[string]*dataset.Dataset) (*dataset.Dataset, bool) {
	cols := ex.Columns()
	for _, name := range names {
		ds := datasets[name]
		carriesAll := true
		for _, c := range cols {
			if !ds.Has(c) {
				carriesAll = false
				break
			}
		}
		if carriesAll {
			return ds, true
		}
	}
	return nil, false
}

func packageRuleFailure(packageName string, rule bundle.Rule, msg string) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Scope:    diagnostic.ScopePackage,
		Catalog:  packageName,
		Message:  msg,
		Rule:     rule.Rule,
	}
}

// register upserts the processed record. Gate bookkeeping is best effort:
// a failed write is logged, not turned into a validation failure.
func (p *Processor) register(ctx context.Context, key, senderID string, modifiedAt time.Time, report *diagnostic.Report, logger zerolog.Logger) {
	rec := dedup.Record{
		ID:          p.ids.New(),
		Key:         key,
		SenderID:    senderID,
		ModifiedAt:  modifiedAt,
		ProcessedAt: p.clock.Now(),
		Status:      dedup.StatusProcessed,
	}
	if !report.Success {
		rec.Status = dedup.StatusError
		rec.ErrorMessage = report.FirstError()
	}
	if err := p.store.Register(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("failed to register processed record")
	}
}

func (p *Processor) observe(packageName string, started time.Time, report *diagnostic.Report) {
	if p.metrics == nil {
		return
	}
	status := "success"
	if !report.Success {
		status = "failure"
	}
	p.metrics.PackagesProcessed.WithLabelValues(packageName, status).Inc()
	p.metrics.ProcessingDuration.WithLabelValues(packageName).Observe(p.clock.Now().Sub(started).Seconds())
	for sev, n := range report.Summary {
		p.metrics.DiagnosticsTotal.WithLabelValues(string(sev)).Add(float64(n))
	}
}

// ProcessInbound routes an artifact that arrived on the local intake channel
// to the package whose filename pattern (or name) matches it, then processes
// it. Used by the inbox watcher.
func (p *Processor) ProcessInbound(ctx context.Context, artifact string) (*diagnostic.Report, error) {
	if p.packagesDir == "" {
		return nil, fmt.Errorf("no packages directory configured for inbound routing")
	}
	packagePath, err := p.findPackageFor(artifact)
	if err != nil {
		return nil, err
	}
	return p.ProcessPackage(ctx, artifact, packagePath, ProcessOptions{SenderID: "local"})
}

func (p *Processor) findPackageFor(artifact string) (string, error) {
	entries, err := os.ReadDir(p.packagesDir)
	if err != nil {
		return "", fmt.Errorf("read packages dir: %w", err)
	}
	base := filepath.Base(artifact)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(p.packagesDir, entry.Name())
		spec, err := p.specs.LoadPackage(path)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable package spec")
			continue
		}
		if spec.MatchesFilename(base) || spec.Name == stem {
			return path, nil
		}
	}
	return "", fmt.Errorf("no package spec matches artifact %q", base)
}

func artifactModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat artifact: %w", err)
	}
	return info.ModTime(), nil
}
