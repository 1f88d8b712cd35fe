package repository

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

// The item filter engine translates raw query parameters into a composed
// predicate.  Every recognized parameter belongs to exactly one class:
//
//	direct   – the column must equal the value exactly
//	contains – comma-delimited list; every listed value must be an exact
//	           member of the item's decoded tag set
//	range    – __gte/__gt lower bound and __lte/__lt upper bound suffixes;
//	           __gte wins over __gt and __lte wins over __lt when both are
//	           present; a missing bound leaves that side open
//
// Unrecognized parameters are ignored.  Direct and range predicates are
// compiled to SQL; contains predicates are applied in Go against the
// decoded sets, so tag names that are substrings of each other can never
// false-positive.

// itemDirectFields maps direct query parameters onto their columns.
var itemDirectFields = map[string]string{
	"category":     "category_id",
	"subcategory":  "sub_category_id",
	"stock_status": "stock_status",
}

// itemContainsFields names the set-valued parameters.
var itemContainsFields = map[string]bool{
	"tags":       true,
	"usage_tags": true,
}

// itemRangeFields maps range query parameters onto their columns.  cost is
// exposed as a decimal but stored in cents, hence the column rename.
var itemRangeFields = map[string]string{
	"allocated_to_sales":  "allocated_to_sales",
	"allocated_to_builds": "allocated_to_builds",
	"available_stock":     "available_stock",
	"incoming_stock":      "incoming_stock",
	"minimum_stock":       "minimum_stock",
	"desired_stock":       "desired_stock",
	"on_build_order":      "on_build_order",
	"can_build":           "can_build",
	"cost":                "cost_cents",
}

type rangeBound struct {
	column string
	op     string // one of >=, >, <=, <
	value  int64
}

// ItemQuery is a compiled filter over the item collection.  It is always
// applied on top of the mandatory organization scope; the engine itself
// never sees unscoped data.
type ItemQuery struct {
	direct    []rangeBound // equality predicates, reusing the bound shape with op "="
	status    string       // stock_status equality, kept separate as it is a string column
	hasStatus bool
	contains  map[string][]string // field -> required members
	ranges    []rangeBound
}

// ParseItemQuery classifies the request's query parameters.  Values that
// cannot be parsed for their class produce a ValidationError naming the
// parameter; parameters outside the classification are skipped.
func ParseItemQuery(params url.Values) (*ItemQuery, error) {
	q := &ItemQuery{contains: map[string][]string{}}

	for _, p := range sortedKeys(itemDirectFields) {
		if !params.Has(p) {
			continue
		}
		raw := params.Get(p)
		if p == "stock_status" {
			q.status = raw
			q.hasStatus = true
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, NewValidationError(p, "must be an id")
		}
		q.direct = append(q.direct, rangeBound{column: itemDirectFields[p], op: "=", value: int64(id)})
	}

	for _, p := range []string{"tags", "usage_tags"} {
		if !params.Has(p) {
			continue
		}
		for _, v := range strings.Split(params.Get(p), ",") {
			if v = strings.TrimSpace(v); v != "" {
				q.contains[p] = append(q.contains[p], v)
			}
		}
	}

	for _, p := range sortedKeys(itemRangeFields) {
		col := itemRangeFields[p]
		lower, hasLower, err := pickBound(params, p, "__gte", "__gt")
		if err != nil {
			return nil, err
		}
		if hasLower.present {
			op := ">="
			if !hasLower.inclusive {
				op = ">"
			}
			q.ranges = append(q.ranges, rangeBound{column: col, op: op, value: lower})
		}
		upper, hasUpper, err := pickBound(params, p, "__lte", "__lt")
		if err != nil {
			return nil, err
		}
		if hasUpper.present {
			op := "<="
			if !hasUpper.inclusive {
				op = "<"
			}
			q.ranges = append(q.ranges, rangeBound{column: col, op: op, value: upper})
		}
	}
	return q, nil
}

type boundInfo struct {
	present   bool
	inclusive bool
}

// pickBound resolves one side of a range.  The inclusive suffix takes
// precedence: when both f__gte and f__gt are given, f__gt is ignored.
func pickBound(params url.Values, field, inclSuffix, exclSuffix string) (int64, boundInfo, error) {
	if params.Has(field + inclSuffix) {
		v, err := parseRangeValue(field, params.Get(field+inclSuffix))
		return v, boundInfo{present: true, inclusive: true}, err
	}
	if params.Has(field + exclSuffix) {
		v, err := parseRangeValue(field, params.Get(field+exclSuffix))
		return v, boundInfo{present: true, inclusive: false}, err
	}
	return 0, boundInfo{}, nil
}

// parseRangeValue converts a bound to the column's storage representation:
// cost bounds are decimals converted to cents, stock bounds are integers.
func parseRangeValue(field, raw string) (int64, error) {
	if field == "cost" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, NewValidationError(field, "must be a number")
		}
		return int64(math.Round(f * 100)), nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// whereSQL renders the SQL-compilable part of the filter as AND fragments.
// The organization scope is the caller's responsibility and always comes
// first.
func (q *ItemQuery) whereSQL() (string, []any) {
	var (
		frags []string
		args  []any
	)
	for _, d := range q.direct {
		frags = append(frags, fmt.Sprintf("%s = ?", d.column))
		args = append(args, d.value)
	}
	if q.hasStatus {
		frags = append(frags, "stock_status = ?")
		args = append(args, q.status)
	}
	for _, rb := range q.ranges {
		frags = append(frags, fmt.Sprintf("%s %s ?", rb.column, rb.op))
		args = append(args, rb.value)
	}
	if len(frags) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(frags, " AND "), args
}

// matches applies the contains predicates: every requested tag must be an
// exact member of the corresponding decoded set.
func (q *ItemQuery) matches(it *model.Item) bool {
	for field, required := range q.contains {
		set := it.Tags
		if field == "usage_tags" {
			set = it.UsageTags
		}
		members := make(map[string]bool, len(set))
		for _, m := range set {
			members[m] = true
		}
		for _, want := range required {
			if !members[want] {
				return false
			}
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
