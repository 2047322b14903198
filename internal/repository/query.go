package repository

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cmsadmin/internal/models"
)

// Filter operators.
const (
	OpEq   = "eq"
	OpNe   = "ne"
	OpGte  = "gte"
	OpLte  = "lte"
	OpLike = "like"
)

// DefaultPageLimit is the page size used when _page is given without _limit.
const DefaultPageLimit = 10

// Filter is one field predicate. Multiple values are alternatives.
type Filter struct {
	Path   string
	Op     string
	Values []string

	patterns []*regexp.Regexp
}

// SortKey orders by one field.
type SortKey struct {
	Path string
	Desc bool
}

// Query is the list query language of the CRUD API, compatible with json-server.
type Query struct {
	Filters []Filter
	Search  string
	Sort    []SortKey

	Page  int
	Limit int
	Start int
	End   int

	hasPage, hasLimit, hasStart, hasEnd bool
}

// Result is a filtered, sorted and optionally sliced listing.
type Result struct {
	Items []models.Record
	// Total is the number of matches before slicing.
	Total int
	// Sliced reports whether pagination was applied.
	Sliced bool
}

// ParseQuery builds a Query from raw query parameters.
func ParseQuery(params map[string][]string) (Query, error) {
	var q Query

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sortFields, orders []string
	for _, key := range keys {
		values := params[key]
		if len(values) == 0 {
			continue
		}
		last := values[len(values)-1]

		switch key {
		case "_sort":
			sortFields = splitList(last)
			continue
		case "_order":
			orders = splitList(last)
			continue
		case "q":
			q.Search = strings.ToLower(last)
			continue
		case "_page", "_limit", "_start", "_end":
			n, err := strconv.Atoi(last)
			if err != nil || n < 0 {
				return Query{}, models.NewValidationError(fmt.Sprintf("%s must be a non-negative integer", key))
			}
			switch key {
			case "_page":
				q.Page, q.hasPage = n, true
			case "_limit":
				q.Limit, q.hasLimit = n, true
			case "_start":
				q.Start, q.hasStart = n, true
			case "_end":
				q.End, q.hasEnd = n, true
			}
			continue
		}

		if strings.HasPrefix(key, "_") {
			// Unsupported json-server operators (_embed, _expand) are ignored.
			continue
		}

		f := Filter{Path: key, Op: OpEq, Values: values}
		for _, op := range []string{OpGte, OpLte, OpNe, OpLike} {
			if strings.HasSuffix(key, "_"+op) {
				f.Path = strings.TrimSuffix(key, "_"+op)
				f.Op = op
				break
			}
		}
		if f.Op == OpLike {
			for _, v := range values {
				re, err := regexp.Compile("(?i)" + v)
				if err != nil {
					return Query{}, models.NewValidationError(fmt.Sprintf("invalid pattern for %s", key))
				}
				f.patterns = append(f.patterns, re)
			}
		}
		q.Filters = append(q.Filters, f)
	}

	for i, field := range sortFields {
		key := SortKey{Path: field}
		if i < len(orders) && strings.EqualFold(orders[i], "desc") {
			key.Desc = true
		}
		q.Sort = append(q.Sort, key)
	}

	return q, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Apply filters, sorts and slices records. The input slice is not modified.
func (q Query) Apply(records []models.Record) Result {
	matched := make([]models.Record, 0, len(records))
	for _, r := range records {
		if q.matches(r) {
			matched = append(matched, r)
		}
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range q.Sort {
				c := compareValues(lookup(matched[i], key.Path), lookup(matched[j], key.Path))
				if c == 0 {
					continue
				}
				if key.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	res := Result{Items: matched, Total: len(matched)}

	switch {
	case q.hasPage:
		limit := DefaultPageLimit
		if q.hasLimit && q.Limit > 0 {
			limit = q.Limit
		}
		page := q.Page
		if page < 1 {
			page = 1
		}
		res.Items = window(matched, (page-1)*limit, page*limit)
		res.Sliced = true
	case q.hasStart || q.hasEnd || q.hasLimit:
		start := q.Start
		end := len(matched)
		switch {
		case q.hasEnd:
			end = q.End
		case q.hasLimit:
			end = start + q.Limit
		}
		res.Items = window(matched, start, end)
		res.Sliced = true
	}

	return res
}

func window(items []models.Record, start, end int) []models.Record {
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	if end < start {
		end = start
	}
	return items[start:end]
}

func (q Query) matches(r models.Record) bool {
	for _, f := range q.Filters {
		if !f.matches(lookup(r, f.Path)) {
			return false
		}
	}
	if q.Search != "" && !containsText(map[string]any(r), q.Search) {
		return false
	}
	return true
}

func (f Filter) matches(value any) bool {
	for i, want := range f.Values {
		if f.matchOne(value, want, i) {
			return true
		}
	}
	return false
}

func (f Filter) matchOne(value any, want string, idx int) bool {
	switch f.Op {
	case OpEq:
		if value == nil {
			return false
		}
		// A list field matches when any element equals the wanted value.
		if list, ok := value.([]any); ok {
			for _, el := range list {
				if models.Stringify(el) == want {
					return true
				}
			}
		}
		return stringifyValue(value) == want
	case OpNe:
		return stringifyValue(value) != want
	case OpGte, OpLte:
		if value == nil {
			return false
		}
		c := compareWithQuery(value, want)
		if f.Op == OpGte {
			return c >= 0
		}
		return c <= 0
	case OpLike:
		if value == nil || idx >= len(f.patterns) {
			return false
		}
		return f.patterns[idx].MatchString(stringifyValue(value))
	}
	return false
}

// stringifyValue renders a value the way JavaScript's toString would.
func stringifyValue(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, el := range list {
			parts[i] = models.Stringify(el)
		}
		return strings.Join(parts, ",")
	}
	return models.Stringify(v)
}

// lookup resolves a dotted path inside nested objects.
func lookup(r models.Record, path string) any {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if rec, isRec := cur.(models.Record); isRec {
				m = rec
			} else {
				return nil
			}
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func containsText(v any, needle string) bool {
	switch t := v.(type) {
	case string:
		return strings.Contains(strings.ToLower(t), needle)
	case map[string]any:
		for _, el := range t {
			if containsText(el, needle) {
				return true
			}
		}
	case models.Record:
		return containsText(map[string]any(t), needle)
	case []any:
		for _, el := range t {
			if containsText(el, needle) {
				return true
			}
		}
	}
	return false
}

func compareWithQuery(value any, want string) int {
	if a, ok := models.ToFloat64(value); ok {
		if b, err := strconv.ParseFloat(want, 64); err == nil {
			return compareFloat(a, b)
		}
	}
	return strings.Compare(stringifyValue(value), want)
}

// compareValues orders nil first, then numbers numerically, strings
// lexically, and anything else by its string form.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if fa, ok := models.ToFloat64(a); ok {
		if fb, ok := models.ToFloat64(b); ok {
			return compareFloat(fa, fb)
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(stringifyValue(a), stringifyValue(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
