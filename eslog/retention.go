package eslog

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/coffersTech/esrestlog/internal/transport"
)

// Indices lists the day indices of this logger's stream, oldest first.
// Names under the stream's pattern that do not parse as day indices are
// left out.
func (l *Logger) Indices(ctx context.Context) ([]Target, []string, error) {
	pattern := l.opts.Prefix + "-" + l.opts.StreamType + "-*"
	res, err := l.tr.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "/_cat/indices/" + pattern,
		Query:  url.Values{"format": {"json"}},
	})
	if err == nil && !res.OK() {
		err = statusError(res)
	}
	var rows []struct {
		Index string `json:"index"`
	}
	if err == nil {
		err = res.Decode(&rows)
	}
	if err != nil {
		return nil, nil, errors.Mark(errors.Wrapf(err, "list indices %s", pattern), ErrRead)
	}

	type entry struct {
		t    Target
		name string
	}
	var entries []entry
	for _, row := range rows {
		t, ok := ParseTarget(row.Index, l.opts.Location)
		if !ok || t.Prefix != l.opts.Prefix || t.StreamType != l.opts.StreamType {
			continue
		}
		entries = append(entries, entry{t, row.Index})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].t.Day.Before(entries[j].t.Day)
	})

	targets := make([]Target, len(entries))
	names := make([]string, len(entries))
	for i, e := range entries {
		targets[i], names[i] = e.t, e.name
	}
	return targets, names, nil
}

// Prune deletes the day indices of this stream whose whole day lies before
// now minus retention, and returns their names. Today's index is never
// deleted. Deletion stops at the first failure; the names deleted so far
// are returned with the error.
func (l *Logger) Prune(ctx context.Context, retention time.Duration) ([]string, error) {
	if retention <= 0 {
		return nil, errors.Newf("retention must be positive, got %s", retention)
	}
	targets, names, err := l.Indices(ctx)
	if err != nil {
		return nil, err
	}

	y, m, d := l.now().Add(-retention).Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, l.opts.Location)

	var deleted []string
	for i, t := range targets {
		if !t.Day.Before(cutoff) {
			break
		}
		if _, err := l.prov.DeleteIndex(ctx, names[i]); err != nil {
			return deleted, err
		}
		l.cache.forget(indexKey(names[i]))
		l.log.InfoContext(ctx, "pruned index", "index", names[i])
		deleted = append(deleted, names[i])
	}
	return deleted, nil
}
