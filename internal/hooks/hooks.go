package hooks

import (
	"context"
	"errors"
	"fmt"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/history"
	"replaces-backend/internal/replaces"
)

const (
	report_dedup_latest  = "dedup.latest"
	report_dedup_reparse = "dedup.reparse"
)

var ErrHook = errors.New("hook failed")

// Hook is notified about every newly fetched replacements document. It
// returns ok = false when it has nothing to say about the document.
type Hook interface {
	Name() string
	Update(ctx context.Context, doc *replaces.Replaces) (msg string, ok bool, err error)
}

// LatestPage is the part of the history store the deduplicator needs.
type LatestPage interface {
	Latest(ctx context.Context) (history.Record, bool, error)
}

// Deduplicator compares a group of a fresh document against the same group
// of the latest stored page.
type Deduplicator struct {
	store  LatestPage
	parser replaces.Parser
	tel    telemetry.API
}

func NewDeduplicator(store LatestPage, tel telemetry.API) Deduplicator {
	assert.NotNil(store)
	assert.NotNil(tel)
	return Deduplicator{
		store:  store,
		parser: replaces.NewParser(telemetry.NewScopedAPI("previous", tel)),
		tel:    telemetry.NewScopedAPI("hooks", tel),
	}
}

// IsDuplicate returns true if the latest stored page has the same header as
// `doc` and renders `group` the same way. Any failure to load or parse the
// stored page counts as "not a duplicate".
func (d Deduplicator) IsDuplicate(ctx context.Context, group int, doc *replaces.Replaces) bool {
	record, ok, err := d.store.Latest(ctx)
	if err != nil {
		d.tel.ReportWarning(report_dedup_latest, err)
		return false
	}
	if !ok {
		return false
	}

	previous, err := d.parser.Parse(record.Content)
	if err != nil {
		d.tel.ReportWarning(report_dedup_reparse, err, telemetry.KV{Key: "hash", Value: record.Hash})
		return false
	}

	if previous.Header != doc.Header {
		return false
	}
	prevGroup, _ := previous.Group(group)
	newGroup, _ := doc.Group(group)
	if replaces.RenderGroup(prevGroup) != replaces.RenderGroup(newGroup) {
		return false
	}

	d.tel.ReportDebug("duplicate replacements for group", group)
	return true
}

// GroupHook produces the message for a single group.
type GroupHook struct {
	group int
	dedup Deduplicator
	tel   telemetry.API
}

func NewGroupHook(group int, dedup Deduplicator, tel telemetry.API) GroupHook {
	assert.NotNil(tel)
	return GroupHook{
		group: group,
		dedup: dedup,
		tel:   telemetry.NewScopedAPI("hooks", tel),
	}
}

func (h GroupHook) Name() string {
	return fmt.Sprintf("group(%d)", h.group)
}

func (h GroupHook) Update(ctx context.Context, doc *replaces.Replaces) (string, bool, error) {
	if doc == nil {
		return "", false, fmt.Errorf("%w: %s: nil document", ErrHook, h.Name())
	}
	if h.dedup.IsDuplicate(ctx, h.group, doc) {
		return "", false, nil
	}
	return GroupMessage(h.group, doc), true, nil
}

// GroupMessage is the header of `doc` followed by the rendering of `group`,
// or a notice that the group has no replacements.
func GroupMessage(group int, doc *replaces.Replaces) string {
	g, ok := doc.Group(group)
	if !ok {
		return fmt.Sprintf("%s\n%d Замен нет", doc.Header, group)
	}
	return doc.Header + "\n" + replaces.RenderGroup(g)
}
