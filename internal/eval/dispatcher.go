// Package eval runs the eval command pipeline: input resolution, language resolution,
// optional wrapping, remote execution and output rendering.
package eval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dontdude/tiobot/internal/catalog"
	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/render"
	"github.com/dontdude/tiobot/internal/source"
)

// DefaultCatalogWait bounds how long an invocation waits for the first catalog load.
const DefaultCatalogWait = 30 * time.Second

// Dispatcher implements domain.Dispatcher. It holds no per-invocation state, so one value
// serves any number of concurrent invocations.
type Dispatcher struct {
	catalog     *catalog.Store
	resolver    *source.Resolver
	wrapper     *source.Wrapper
	executor    domain.Executor
	formatter   *render.Formatter
	usage       string
	catalogWait time.Duration
}

// Check if Dispatcher implements domain.Dispatcher
var _ domain.Dispatcher = (*Dispatcher)(nil)

// Config wires a Dispatcher.
type Config struct {
	Catalog   *catalog.Store
	Resolver  *source.Resolver
	Wrapper   *source.Wrapper
	Executor  domain.Executor
	Formatter *render.Formatter

	// Usage is the command synopsis shown with argument errors.
	Usage string

	// CatalogWait defaults to DefaultCatalogWait.
	CatalogWait time.Duration
}

func NewDispatcher(cfg Config) *Dispatcher {
	wait := cfg.CatalogWait
	if wait <= 0 {
		wait = DefaultCatalogWait
	}
	usage := cfg.Usage
	if usage == "" {
		usage = render.Usage("!")
	}
	return &Dispatcher{
		catalog:     cfg.Catalog,
		resolver:    cfg.Resolver,
		wrapper:     cfg.Wrapper,
		executor:    cfg.Executor,
		formatter:   cfg.Formatter,
		usage:       usage,
		catalogWait: wait,
	}
}

// Dispatch evaluates one invocation and renders the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, inv domain.Invocation) domain.Response {
	ec := render.ErrorContext{Usage: d.usage, Language: catalog.Normalize(inv.Language), Mention: inv.Mention}

	resp, err := d.dispatch(ctx, inv, &ec)
	if err != nil {
		logFailure(inv, err)
		return render.ErrorResponse(err, ec)
	}

	slog.Info("Result sent", "invocationID", inv.ID, "language", ec.Language)
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, inv domain.Invocation, ec *render.ErrorContext) (domain.Response, error) {
	in, err := d.resolver.Resolve(ctx, inv)
	if err != nil {
		return domain.Response{}, err
	}

	snap, err := d.waitCatalog(ctx)
	if err != nil {
		return domain.Response{}, err
	}
	lang, err := snap.Resolve(inv.Language)
	if err != nil {
		return domain.Response{}, err
	}
	ec.Language = lang

	code := in.Code
	if in.Options.Wrapped {
		if code, err = d.wrapper.Wrap(lang, code); err != nil {
			return domain.Response{}, err
		}
	}

	req := domain.ExecutionRequest{
		Language:      lang,
		Code:          code,
		Stdin:         in.Extras.Stdin,
		CompilerFlags: in.Extras.CompilerFlags,
		CLIOptions:    in.Extras.CLIOptions,
		Args:          in.Extras.Args,
		Wrapped:       in.Options.Wrapped,
		WantStats:     in.Options.Stats,
	}

	slog.Info("Executing code", "invocationID", inv.ID, "language", lang, "origin", in.Origin, "bytes", len(code))
	raw, err := d.executor.Run(ctx, req)
	if err != nil {
		return domain.Response{}, err
	}

	return d.formatter.Format(ctx, raw, req, inv.Mention)
}

func (d *Dispatcher) waitCatalog(ctx context.Context) (*catalog.Snapshot, error) {
	if snap := d.catalog.Load(); snap != nil {
		return snap, nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.catalogWait)
	defer cancel()
	return d.catalog.Wait(ctx)
}

func logFailure(inv domain.Invocation, err error) {
	switch {
	case errors.Is(err, domain.ErrLanguageNotFound), errors.Is(err, domain.ErrUnsupportedLanguage):
		slog.Info("Exiting | language not found", "invocationID", inv.ID, "language", inv.Language)
	case errors.Is(err, domain.ErrMissingCode), errors.Is(err, domain.ErrWrapNotSupported), errors.Is(err, domain.ErrUnauthorizedSource):
		slog.Info("Exiting | invalid invocation", "invocationID", inv.ID, "reason", err)
	default:
		slog.Error("Eval failed", "invocationID", inv.ID, "error", err)
	}
}
