// Package listing translates caller-supplied filters and sort orders into
// storage queries.
//
// Filters are written as "field:op:value" and sorts as "field:asc|desc".
// Only fields declared in a Schema can be referenced, so user input never
// reaches the SQL text; values are always bound as parameters.
package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalid is returned for unknown fields, unsupported operators and
// values that do not parse for the field type.
var ErrInvalid = errors.New("invalid listing query")

type Kind int

const (
	KindText Kind = iota
	KindInt
	KindTime
)

// Column maps an API field onto a storage column.
type Column struct {
	Name string
	Kind Kind
}

// Schema lists the filterable and sortable fields of one entity.
type Schema map[string]Column

type Operator string

const (
	OpEq         Operator = "eq"
	OpNeq        Operator = "neq"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpIn         Operator = "in"
	OpNin        Operator = "nin"
	OpIsNull     Operator = "isNull"
	OpNotNull    Operator = "notNull"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Filter struct {
	Field string
	Op    Operator
	Value string
}

type Sort struct {
	Field     string
	Direction Direction
}

// Query is a complete listing request. Zero Limit means unlimited.
type Query struct {
	Filters []Filter
	Sorts   []Sort
	Limit   int
	Offset  int
}

var comparisons = map[Operator]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// ParseFilter parses "field:op:value". The value may itself contain colons.
// Null checks take no value: "field:isNull".
func ParseFilter(raw string) (Filter, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Filter{}, fmt.Errorf("%w: filter %q must look like field:op:value", ErrInvalid, raw)
	}

	f := Filter{Field: parts[0], Op: Operator(parts[1])}
	if len(parts) == 3 {
		f.Value = parts[2]
	}
	if len(parts) == 2 && f.Op != OpIsNull && f.Op != OpNotNull {
		return Filter{}, fmt.Errorf("%w: filter %q is missing a value", ErrInvalid, raw)
	}
	return f, nil
}

// ParseSort parses "field" or "field:asc|desc".
func ParseSort(raw string) (Sort, error) {
	field, dir, found := strings.Cut(raw, ":")
	if field == "" {
		return Sort{}, fmt.Errorf("%w: empty sort field", ErrInvalid)
	}
	s := Sort{Field: field, Direction: Asc}
	if found {
		switch Direction(strings.ToLower(dir)) {
		case Asc:
		case Desc:
			s.Direction = Desc
		default:
			return Sort{}, fmt.Errorf("%w: sort direction %q must be asc or desc", ErrInvalid, dir)
		}
	}
	return s, nil
}

// ParseValues reads filter, sort, limit and offset query parameters.
// filter and sort may repeat; sort also accepts a comma-separated list.
func ParseValues(values url.Values) (Query, error) {
	var q Query

	for _, raw := range values["filter"] {
		f, err := ParseFilter(raw)
		if err != nil {
			return Query{}, err
		}
		q.Filters = append(q.Filters, f)
	}

	for _, raw := range values["sort"] {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item == "" {
				continue
			}
			s, err := ParseSort(item)
			if err != nil {
				return Query{}, err
			}
			q.Sorts = append(q.Sorts, s)
		}
	}

	var err error
	if q.Limit, err = nonNegative(values.Get("limit"), "limit"); err != nil {
		return Query{}, err
	}
	if q.Offset, err = nonNegative(values.Get("offset"), "offset"); err != nil {
		return Query{}, err
	}
	return q, nil
}

func nonNegative(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalid, name)
	}
	return n, nil
}

// ExactMatch returns a WHERE clause comparing column with one bound value
// byte for byte. MySQL's default collations ignore case and trailing
// spaces, so the value is compared as BINARY there.
func ExactMatch(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "mysql" {
		return column + " = BINARY ?"
	}
	return column + " = ?"
}

// Apply adds filters, ordering and paging to db.
func (s Schema) Apply(db *gorm.DB, q Query) (*gorm.DB, error) {
	db, err := s.Filter(db, q.Filters)
	if err != nil {
		return nil, err
	}
	db, err = s.Order(db, q.Sorts)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	return db, nil
}

// Filter adds one WHERE condition per filter, all joined with AND.
func (s Schema) Filter(db *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		col, ok := s[f.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter field %q", ErrInvalid, f.Field)
		}

		var err error
		db, err = s.condition(db, col, f)
		if err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (s Schema) condition(db *gorm.DB, col Column, f Filter) (*gorm.DB, error) {
	name := col.Name

	if op, ok := comparisons[f.Op]; ok {
		v, err := col.parse(f.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalid, f.Field, err)
		}
		return db.Where(fmt.Sprintf("%s %s ?", name, op), v), nil
	}

	switch f.Op {
	case OpContains, OpStartsWith, OpEndsWith:
		if col.Kind != KindText {
			return nil, fmt.Errorf("%w: operator %s needs a text field, %q is not", ErrInvalid, f.Op, f.Field)
		}
		pattern := likeEscaper.Replace(strings.ToLower(f.Value))
		switch f.Op {
		case OpContains:
			pattern = "%" + pattern + "%"
		case OpStartsWith:
			pattern = pattern + "%"
		default:
			pattern = "%" + pattern
		}
		return db.Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", name), pattern), nil

	case OpIn, OpNin:
		items := strings.Split(f.Value, ",")
		values := make([]any, 0, len(items))
		for _, item := range items {
			v, err := col.parse(strings.TrimSpace(item))
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrInvalid, f.Field, err)
			}
			values = append(values, v)
		}
		if f.Op == OpIn {
			return db.Where(fmt.Sprintf("%s IN ?", name), values), nil
		}
		return db.Where(fmt.Sprintf("%s NOT IN ?", name), values), nil

	case OpIsNull:
		return db.Where(fmt.Sprintf("%s IS NULL", name)), nil
	case OpNotNull:
		return db.Where(fmt.Sprintf("%s IS NOT NULL", name)), nil
	}

	return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalid, f.Op)
}

// Order applies sorts in sequence. Results are always finally ordered by id
// so that paging is stable; with no sorts the order is id ascending.
func (s Schema) Order(db *gorm.DB, sorts []Sort) (*gorm.DB, error) {
	byID := false
	for _, srt := range sorts {
		col, ok := s[srt.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalid, srt.Field)
		}
		if col.Name == "id" {
			byID = true
		}
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: col.Name},
			Desc:   srt.Direction == Desc,
		})
	}
	if !byID {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return db, nil
}

// '!' is the LIKE escape character, so it has to be escaped first.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (c Column) parse(raw string) (any, error) {
	switch c.Kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return n, nil
	case KindTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("%q is not a date (use YYYY-MM-DD or RFC3339)", raw)
	default:
		return raw, nil
	}
}
