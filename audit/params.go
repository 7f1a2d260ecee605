package audit

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrValidation classifies malformed query input.
var ErrValidation = errors.New("validation failed")

// SortDirection orders results by createdAt.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Page size bounds for interactive queries.
const (
	MinPageSize     = 5
	MaxPageSize     = 100
	DefaultPageSize = 20
	// MaxPage bounds the page number so offsets stay far from int overflow.
	MaxPage = 1_000_000
)

// QueryParams is the filter, sort and pagination input of a query. UnitID and
// ActorID are visibility constraints: callers must set them from the caller's
// identity, never from client input alone. Redacted marks a caller who only
// sees redacted entries: the IP filter is ignored and Q never matches masked
// fields.
type QueryParams struct {
	UnitID        string        `json:"unitId,omitempty" validate:"omitempty,max=64"`
	From          *time.Time    `json:"fromDate,omitempty"`
	To            *time.Time    `json:"toDate,omitempty"`
	Result        Result        `json:"result,omitempty" validate:"omitempty,oneof=SUCCESS FAIL DENIED"`
	Severity      Severity      `json:"severity,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	EntityType    string        `json:"entityType,omitempty" validate:"omitempty,max=64"`
	EntityID      string        `json:"entityId,omitempty" validate:"omitempty,max=128"`
	IP            string        `json:"ip,omitempty" validate:"omitempty,max=64"`
	CorrelationID string        `json:"correlationId,omitempty" validate:"omitempty,max=128"`
	ActionPrefix  string        `json:"actionPrefix,omitempty" validate:"omitempty,max=128"`
	MyActionsOnly bool          `json:"myActionsOnly,omitempty"`
	ActorID       string        `json:"-"`
	Redacted      bool          `json:"-"`
	Q             string        `json:"q,omitempty" validate:"max=200"`
	Sort          SortDirection `json:"sort,omitempty" validate:"omitempty,oneof=asc desc"`
	Page          int           `json:"page,omitempty" validate:"min=0,max=1000000"`
	PageSize      int           `json:"pageSize,omitempty" validate:"min=0"`
}

// Violation is one failed constraint.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every violated constraint. It matches [ErrValidation].
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a single-violation error.
func NewValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Rule: rule, Message: message}}}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			p := sl.Current().Interface().(QueryParams)
			if p.From != nil && p.To != nil && p.From.After(*p.To) {
				sl.ReportError(p.To, "toDate", "To", "gtefield", "fromDate")
			}
		}, QueryParams{})
	})
	return validate
}

// Validate checks p and returns a *ValidationError listing every violation.
func (p QueryParams) Validate() error {
	err := paramsValidator().Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("", "invalid", err.Error())
	}

	out := &ValidationError{Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, Violation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: violationMessage(fe),
		})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gtefield":
		return "must not be before " + fe.Param()
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

// Normalized returns p with page defaults applied and the page size clamped into
// [MinPageSize, MaxPageSize].
func (p QueryParams) Normalized() QueryParams {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize == 0:
		p.PageSize = DefaultPageSize
	case p.PageSize < MinPageSize:
		p.PageSize = MinPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	if p.Sort == "" {
		p.Sort = SortDesc
	}
	return p
}

// Prefilter extracts the predicates a backend can evaluate cheaply.
func (p QueryParams) Prefilter() Prefilter {
	pf := Prefilter{
		UnitID:        p.UnitID,
		ActorID:       p.ActorID,
		Result:        p.Result,
		Severity:      p.Severity,
		EntityType:    p.EntityType,
		EntityID:      p.EntityID,
		CorrelationID: p.CorrelationID,
	}
	if p.From != nil {
		pf.From = *p.From
	}
	if p.To != nil {
		pf.To = *p.To
	}
	return pf
}

// Filters summarizes the non-empty filters for export metadata.
func (p QueryParams) Filters() map[string]any {
	out := make(map[string]any)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("unitId", p.UnitID)
	set("result", string(p.Result))
	set("severity", string(p.Severity))
	set("entityType", p.EntityType)
	set("entityId", p.EntityID)
	set("ip", p.IP)
	set("correlationId", p.CorrelationID)
	set("actionPrefix", p.ActionPrefix)
	set("q", p.Q)
	if p.From != nil {
		out["fromDate"] = p.From.UTC().Format(time.RFC3339)
	}
	if p.To != nil {
		out["toDate"] = p.To.UTC().Format(time.RFC3339)
	}
	if p.MyActionsOnly {
		out["myActionsOnly"] = true
	}
	return out
}
