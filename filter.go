package acsqe

import (
	"regexp"
	"strconv"
	"strings"
)

// FilterOp is the fixed PostgREST operator alphabet this engine understands.
// Operators outside this set are unsupported and skipped during parsing
// rather than rejected, for forward compatibility with clients that send
// newer PostgREST operators this engine doesn't implement yet.
type FilterOp string

const (
	OpEq    FilterOp = "eq"
	OpNe    FilterOp = "ne"
	OpGt    FilterOp = "gt"
	OpGte   FilterOp = "gte"
	OpLt    FilterOp = "lt"
	OpLte   FilterOp = "lte"
	OpLike  FilterOp = "like"
	OpIlike FilterOp = "ilike"
	OpIn    FilterOp = "in"
	OpIs    FilterOp = "is"
)

var supportedOps = map[string]FilterOp{
	"eq": OpEq, "ne": OpNe, "gt": OpGt, "gte": OpGte,
	"lt": OpLt, "lte": OpLte, "like": OpLike, "ilike": OpIlike,
	"in": OpIn, "is": OpIs,
}

// Filter is one parsed predicate against a single column.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

// SortDirection is ASC or DESC; PostgREST null-ordering modifiers are
// accepted syntactically during parsing but carry no semantic effect here.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Sort is one ORDER BY term.
type Sort struct {
	Column    string
	Direction SortDirection
}

// Paging is the requested page window. Zero values mean "not specified";
// the query builder applies its own defaults.
type Paging struct {
	Limit  int
	Offset int
}

// ParsedQuery is the typed result of parsing a PostgREST-style query string,
// represented as a map[string][]string (matching net/url.Values' shape).
type ParsedQuery struct {
	Filters []Filter
	Sort    []Sort
	Select  []string
	Paging  Paging
}

var reservedQueryKeys = map[string]struct{}{
	"select": {}, "order": {}, "limit": {}, "offset": {}, "or": {}, "and": {},
}

func isReservedKey(key string) bool {
	if _, ok := reservedQueryKeys[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "or(") || strings.HasPrefix(key, "and(") || strings.HasPrefix(key, "not.")
}

var filterValueRe = regexp.MustCompile(`^([a-zA-Z]+)\.(.*)$`)
var selectAliasRe = regexp.MustCompile(`^([^:]+):([^:].*)$`)

// ParseQuery parses a URL query string (already decoded into key -> values)
// into a ParsedQuery. It never fails: unknown operators, unparseable paging
// values, and malformed filter expressions are dropped silently, matching
// the PostgREST-compatible forward-compatibility contract in the filter
// grammar.
func ParseQuery(params map[string][]string) ParsedQuery {
	var q ParsedQuery

	for key, values := range params {
		switch key {
		case "select":
			for _, v := range values {
				q.Select = append(q.Select, parseSelect(v)...)
			}
			continue
		case "order":
			for _, v := range values {
				q.Sort = append(q.Sort, parseOrder(v)...)
			}
			continue
		case "limit":
			if len(values) > 0 {
				if n, ok := parsePositiveInt(values[0]); ok {
					q.Paging.Limit = n
				}
			}
			continue
		case "offset":
			if len(values) > 0 {
				if n, ok := parseNonNegativeInt(values[0]); ok {
					q.Paging.Offset = n
				}
			}
			continue
		}
		if isReservedKey(key) {
			continue
		}
		for _, v := range values {
			if f, ok := parseFilterValue(key, v); ok {
				q.Filters = append(q.Filters, f)
			}
		}
	}

	return q
}

func parsePositiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseNonNegativeInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseFilterValue(column, raw string) (Filter, bool) {
	m := filterValueRe.FindStringSubmatch(raw)
	if m == nil {
		return Filter{}, false
	}
	op, ok := supportedOps[strings.ToLower(m[1])]
	if !ok {
		return Filter{}, false
	}
	rest := m[2]

	switch op {
	case OpIn:
		values, ok := parseInList(rest)
		if !ok || len(values) == 0 {
			return Filter{}, false
		}
		return Filter{Column: column, Op: op, Value: values}, true
	case OpIs:
		v, ok := parseIsValue(rest)
		if !ok {
			return Filter{}, false
		}
		return Filter{Column: column, Op: op, Value: v}, true
	case OpLike, OpIlike:
		return Filter{Column: column, Op: op, Value: strings.ReplaceAll(rest, "*", "%")}, true
	default:
		return Filter{Column: column, Op: op, Value: inferScalar(rest)}, true
	}
}

// parseInList splits "(v1,v2,...)" respecting double-quoted segments with \"
// escapes.
func parseInList(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, false
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return []string{}, true
	}

	var elems []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body) && body[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			elems = append(elems, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	elems = append(elems, cur.String())
	return elems, true
}

func parseIsValue(s string) (any, bool) {
	switch s {
	case "null":
		return nil, true
	case "true":
		return true, true
	case "false":
		return false, true
	case "unknown":
		return nil, true
	default:
		return nil, false
	}
}

// inferScalar applies the fixed inference order: integer, float,
// true/false, null, string.
func inferScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return s
}

func parseSelect(s string) []string {
	var cols []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "::") || strings.Contains(item, "->") {
			cols = append(cols, item)
			continue
		}
		if m := selectAliasRe.FindStringSubmatch(item); m != nil {
			cols = append(cols, m[2])
			continue
		}
		cols = append(cols, item)
	}
	return cols
}

func parseOrder(s string) []Sort {
	var sorts []Sort
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ".")
		sort := Sort{Column: parts[0], Direction: SortAsc}
		for _, mod := range parts[1:] {
			switch strings.ToLower(mod) {
			case "asc":
				sort.Direction = SortAsc
			case "desc":
				sort.Direction = SortDesc
			case "nullsfirst", "nullslast":
				// Accepted syntactically, ignored semantically.
			}
		}
		sorts = append(sorts, sort)
	}
	return sorts
}
