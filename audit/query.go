package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Aggregates summarize the filtered, unpaginated set.
type Aggregates struct {
	Total        int `json:"total"`
	HighSeverity int `json:"highSeverity"`
	Failures     int `json:"failures"`
	Suspicious   int `json:"suspicious"`
}

// Page is one page of query results.
type Page struct {
	Items      []Entry    `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	Total      int        `json:"total"`
	Aggregates Aggregates `json:"aggregates"`
}

// QueryEngine filters, sorts, aggregates and pages entries from a [Store].
type QueryEngine struct {
	store Store
}

// NewQueryEngine returns a QueryEngine reading from store.
func NewQueryEngine(store Store) *QueryEngine {
	return &QueryEngine{store: store}
}

// Query validates params, applies page defaults, and returns the requested page.
// Total and Aggregates cover the whole filtered set.
func (q *QueryEngine) Query(ctx context.Context, params QueryParams) (*Page, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params = params.Normalized()

	items, agg, err := q.filter(ctx, params)
	if err != nil {
		return nil, err
	}

	start := len(items)
	if pages := (len(items) + params.PageSize - 1) / params.PageSize; params.Page-1 < pages {
		start = (params.Page - 1) * params.PageSize
	}
	end := start + params.PageSize
	if end > len(items) {
		end = len(items)
	}

	return &Page{
		Items:      items[start:end],
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      len(items),
		Aggregates: agg,
	}, nil
}

// Collect returns up to limit matching entries in the requested order, ignoring
// pagination, along with the size of the full filtered set.
func (q *QueryEngine) Collect(ctx context.Context, params QueryParams, limit int) ([]Entry, int, error) {
	if err := params.Validate(); err != nil {
		return nil, 0, err
	}
	params = params.Normalized()

	items, _, err := q.filter(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total := len(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, total, nil
}

func (q *QueryEngine) filter(ctx context.Context, params QueryParams) ([]Entry, Aggregates, error) {
	candidates, err := q.store.Candidates(ctx, params.Prefilter())
	if err != nil {
		if !errors.Is(err, ErrStorage) {
			err = fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return nil, Aggregates{}, err
	}

	m := newMatcher(params)
	items := make([]Entry, 0, len(candidates))
	var agg Aggregates
	for _, e := range candidates {
		if !m.match(e) {
			continue
		}
		items = append(items, e)

		agg.Total++
		if e.Severity == SeverityHigh || e.Severity == SeverityCritical {
			agg.HighSeverity++
		}
		if e.Result == ResultFail || e.Result == ResultDenied {
			agg.Failures++
		}
		if IsSuspicious(e) {
			agg.Suspicious++
		}
	}

	desc := params.Sort != SortAsc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})

	return items, agg, nil
}

// matcher applies every predicate of a QueryParams, including the ones the store
// already pushed down.
type matcher struct {
	pf           Prefilter
	redacted     bool
	ip           string
	actionPrefix string
	q            string
}

func newMatcher(p QueryParams) matcher {
	ip := p.IP
	if p.Redacted {
		ip = ""
	}
	return matcher{
		pf:           p.Prefilter(),
		redacted:     p.Redacted,
		ip:           ip,
		actionPrefix: p.ActionPrefix,
		q:            strings.ToLower(strings.TrimSpace(p.Q)),
	}
}

func (m matcher) match(e Entry) bool {
	if !m.pf.Match(e) {
		return false
	}
	if m.ip != "" && !strings.Contains(e.IP, m.ip) {
		return false
	}
	if m.actionPrefix != "" && !strings.HasPrefix(e.Action, m.actionPrefix) {
		return false
	}
	if m.q != "" && !m.matchText(e) {
		return false
	}
	return true
}

func (m matcher) matchText(e Entry) bool {
	fields := []string{e.Action, e.ActorID, e.EntityType, e.EntityID}
	if m.redacted {
		e = Redact(e)
	} else {
		fields = append(fields, e.IP)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), m.q) {
			return true
		}
	}
	if e.Metadata.IsZero() {
		return false
	}
	data, err := json.Marshal(e.Metadata)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), m.q)
}
