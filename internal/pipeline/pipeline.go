package pipeline

import (
	"context"
	"errors"
	"fmt"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
	"replaces-backend/internal/history"
	"replaces-backend/internal/hooks"
	"replaces-backend/internal/replaces"
	"replaces-backend/internal/scrapers/spbkit"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_cache_upsert = "cache.upsert"
	report_parse        = "parse"
	report_hook         = "hook"
)

var tracer = otel.Tracer("replaces.pipeline")

var (
	meter                 = otel.Meter("replaces.pipeline")
	runCounter, _         = meter.Int64Counter("replaces.runs")
	storedCounter, _      = meter.Int64Counter("replaces.pages_stored")
	degradedCounter, _    = meter.Int64Counter("replaces.degraded_pages")
	hookFailureCounter, _ = meter.Int64Counter("replaces.hook_failures")
)

// Fetcher resolves the replacements endpoint and downloads the page.
type Fetcher interface {
	ResolveEndpointCached(ctx context.Context, cache spbkit.EndpointCache, key db.CacheKey, force bool) (string, error)
	FetchPage(ctx context.Context, endpoint string) ([]byte, error)
}

type Outcome int

const (
	// OutcomeUnchanged means the page was seen before, nothing was parsed or stored.
	OutcomeUnchanged Outcome = iota
	// OutcomeParseFailed means the page could not be parsed and was not stored.
	OutcomeParseFailed
	// OutcomeStored means the page was parsed, hooks ran and the page was appended to history.
	OutcomeStored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeParseFailed:
		return "parse-failed"
	case OutcomeStored:
		return "stored"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Message is the output of a hook that had something to say.
type Message struct {
	Hook string
	Text string
}

type Result struct {
	RunID    string
	Endpoint string
	Hash     string
	Outcome  Outcome
	Degraded bool
	// Document is the parsed page, nil unless the page was parsed.
	Document *replaces.Replaces
	Messages []Message
	// ParseErr is set when Outcome is OutcomeParseFailed.
	ParseErr error
	// HookErr joins the errors of every failed hook, each wraps hooks.ErrHook.
	HookErr error
}

type Options struct {
	// ForceFallback skips endpoint resolution and uses the cached endpoint.
	ForceFallback bool
}

type Driver struct {
	fetcher Fetcher
	store   history.Store
	cache   history.CacheAPI
	parser  replaces.Parser
	dedup   hooks.Deduplicator
	options Options
	tel     telemetry.API
}

func NewDriver(
	fetcher Fetcher,
	store history.Store,
	cache history.CacheAPI,
	options Options,
	tel telemetry.API,
) Driver {
	assert.NotNil(fetcher)
	assert.NotNil(cache)
	assert.NotNil(tel)

	return Driver{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		parser:  replaces.NewParser(tel),
		dedup:   hooks.NewDeduplicator(store, tel),
		options: options,
		tel:     telemetry.NewScopedAPI("pipeline", tel),
	}
}

// GroupHooks returns a group hook for each of `groups`.
func (d Driver) GroupHooks(groups ...int) []hooks.Hook {
	out := make([]hooks.Hook, len(groups))
	for i, g := range groups {
		out[i] = hooks.NewGroupHook(g, d.dedup, d.tel)
	}
	return out
}

// Run fetches the replacements page and, if it was not seen before, parses
// it, runs `runHooks` on it and appends it to history. Only a failure to
// resolve the endpoint, fetch the page or access history is returned as an
// error, the outcome of everything else is described by Result.
func (d Driver) Run(ctx context.Context, runHooks []hooks.Hook) (Result, error) {
	result := Result{RunID: uuid.NewString()}

	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", result.RunID))
	runCounter.Add(ctx, 1)

	runKV := telemetry.KV{Key: "run_id", Value: result.RunID}
	err := d.run(ctx, &result, runHooks, runKV)
	span.SetAttributes(attribute.String("outcome", result.Outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	d.tel.ReportDebug("run finished", runKV, telemetry.KV{Key: "outcome", Value: result.Outcome.String()})
	return result, nil
}

func (d Driver) run(ctx context.Context, result *Result, runHooks []hooks.Hook, runKV telemetry.KV) error {
	endpoint, err := d.fetcher.ResolveEndpointCached(ctx, d.cache, db.CACHE_REPLACES_URL, d.options.ForceFallback)
	if err != nil {
		return err
	}
	result.Endpoint = endpoint

	err = d.cache.Upsert(ctx, db.CACHE_REPLACES_URL, endpoint)
	if err != nil {
		d.tel.ReportWarning(report_cache_upsert, err, runKV)
	}

	page, err := d.fetcher.FetchPage(ctx, endpoint)
	if err != nil {
		return err
	}
	result.Hash = history.Hash(page)

	seen, err := d.store.HasHash(ctx, result.Hash)
	if err != nil {
		return err
	}
	if seen {
		result.Outcome = OutcomeUnchanged
		d.tel.ReportDebug("page unchanged", runKV, telemetry.KV{Key: "hash", Value: result.Hash})
		return nil
	}

	doc, err := d.parser.Parse(page)
	if err != nil {
		result.Outcome = OutcomeParseFailed
		result.ParseErr = err
		d.tel.ReportBroken(report_parse, err, runKV, telemetry.KV{Key: "hash", Value: result.Hash})
		return nil
	}
	result.Document = doc
	result.Degraded = doc.Degraded
	if doc.Degraded {
		degradedCounter.Add(ctx, 1)
	}
	d.tel.ReportDebug("new replacements", runKV, replaces.RenderReplaces(doc))

	result.Messages, result.HookErr = d.runHooks(ctx, runHooks, doc, runKV)

	stored, err := d.store.AppendIfAbsent(ctx, page, result.Hash)
	if err != nil {
		return err
	}
	if stored {
		storedCounter.Add(ctx, 1)
	}
	result.Outcome = OutcomeStored
	return nil
}

func (d Driver) runHooks(ctx context.Context, runHooks []hooks.Hook, doc *replaces.Replaces, runKV telemetry.KV) ([]Message, error) {
	var (
		messages []Message
		errlist  []error
	)
	for _, hook := range runHooks {
		msg, ok, err := callHook(ctx, hook, doc.Clone())
		if err != nil {
			hookFailureCounter.Add(ctx, 1)
			d.tel.ReportWarning(report_hook, err, runKV)
			errlist = append(errlist, err)
			continue
		}
		if ok {
			messages = append(messages, Message{Hook: hook.Name(), Text: msg})
		}
	}
	return messages, errors.Join(errlist...)
}

func callHook(ctx context.Context, hook hooks.Hook, doc *replaces.Replaces) (msg string, ok bool, err error) {
	defer func() {
		r := recover()
		if r != nil {
			msg, ok = "", false
			err = fmt.Errorf("%w: %s: panic: %v", hooks.ErrHook, hook.Name(), r)
		}
	}()

	msg, ok, err = hook.Update(ctx, doc)
	if err != nil && !errors.Is(err, hooks.ErrHook) {
		err = fmt.Errorf("%w: %s: %w", hooks.ErrHook, hook.Name(), err)
	}
	return msg, ok, err
}

// GetReplacementsText refreshes the replacements and returns the message for
// `group`. It returns ok = false when the page is unchanged, could not be
// parsed or the group did not change since the last stored page.
func (d Driver) GetReplacementsText(ctx context.Context, group int) (string, bool, error) {
	result, err := d.Run(ctx, d.GroupHooks(group))
	if err != nil {
		return "", false, err
	}
	if result.HookErr != nil {
		return "", false, result.HookErr
	}
	if len(result.Messages) == 0 {
		return "", false, nil
	}
	return result.Messages[0].Text, true, nil
}

// CurrentText renders `group` from the latest stored page. It returns
// ok = false when nothing was stored yet.
func (d Driver) CurrentText(ctx context.Context, group int) (string, bool, error) {
	doc, _, ok, err := d.Latest(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	return hooks.GroupMessage(group, doc), true, nil
}

// Latest parses the latest stored page.
func (d Driver) Latest(ctx context.Context) (*replaces.Replaces, history.Record, bool, error) {
	record, ok, err := d.store.Latest(ctx)
	if err != nil || !ok {
		return nil, record, false, err
	}
	doc, err := d.parser.Parse(record.Content)
	if err != nil {
		return nil, record, false, err
	}
	return doc, record, true, nil
}
