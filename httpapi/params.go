package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/panelcore"
	"github.com/MrEthical07/panelcore/audit"
)

// parseQueryParams reads audit filters from the query string. Malformed values
// are collected into one ValidationError. unitId is accepted but the Engine
// overrides it for scoped callers.
func parseQueryParams(q url.Values) (audit.QueryParams, error) {
	var (
		p          audit.QueryParams
		violations []panelcore.Violation
	)

	parseTime := func(key string) *time.Time {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			violations = append(violations, panelcore.Violation{Field: key, Rule: "datetime", Message: "must be an RFC 3339 timestamp"})
			return nil
		}
		return &t
	}
	parseInt := func(key string) int {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			violations = append(violations, panelcore.Violation{Field: key, Rule: "number", Message: "must be an integer"})
			return 0
		}
		return n
	}

	p.UnitID = q.Get("unitId")
	p.From = parseTime("fromDate")
	p.To = parseTime("toDate")
	p.Result = audit.Result(strings.ToUpper(q.Get("result")))
	p.Severity = audit.Severity(strings.ToUpper(q.Get("severity")))
	p.EntityType = q.Get("entityType")
	p.EntityID = q.Get("entityId")
	p.IP = q.Get("ip")
	p.CorrelationID = q.Get("correlationId")
	p.ActionPrefix = q.Get("actionPrefix")
	p.Q = q.Get("q")
	p.Sort = audit.SortDirection(strings.ToLower(q.Get("sort")))
	p.Page = parseInt("page")
	p.PageSize = parseInt("pageSize")

	if v := q.Get("myActionsOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			violations = append(violations, panelcore.Violation{Field: "myActionsOnly", Rule: "boolean", Message: "must be true or false"})
		}
		p.MyActionsOnly = b
	}

	if len(violations) > 0 {
		return p, &panelcore.ValidationError{Violations: violations}
	}
	return p, nil
}
