package wmi

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CreateQuery returns a WQL query string that queries all columns of @src.
//
// @src could be T, *T, []T, or *[]T;
//
// @where is an optional string that is appended to the query, to be used with
// WHERE clauses. In such a case, the "WHERE" string should appear at
// the beginning.
//
//	type Win32_Product struct {
//		Name            string
//		InstallLocation string
//	}
//	var dst []Win32_Product
//	query := wmi.CreateQuery(&dst, "WHERE InstallLocation != null")
func CreateQuery(src interface{}, where string) string {
	s := reflect.Indirect(reflect.ValueOf(src))
	t := s.Type()
	if s.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return CreateQueryFrom(src, t.Name(), where)
}

// CreateQueryFrom returns a WQL query string that queries all columns of @src
// from class @from with condition @where (optional).
//
// N.B. The call is the same as `CreateQuery` but uses @from instead of
// structure name as a class name.
func CreateQueryFrom(src interface{}, from, where string) string {
	s := reflect.Indirect(reflect.ValueOf(src))
	t := s.Type()
	if s.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ""
	}

	var b bytes.Buffer
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(structFieldNames(t), ", "))
	b.WriteString(" FROM ")
	b.WriteString(from)
	b.WriteString(" " + where)
	return b.String()
}

func structFieldNames(t reflect.Type) []string {
	var fields []string
	for i := 0; i < t.NumField(); i++ {
		name, _ := getFieldName(t.Field(i))
		if name == "-" {
			continue
		}
		fields = append(fields, name)
	}
	return fields
}

// getFieldName resolves the WMI property name of a struct field: the `wmi`
// tag value when set, the field name otherwise. The part after a comma in the
// tag is returned as options ("ref").
func getFieldName(fType reflect.StructField) (name, options string) {
	tag := fType.Tag.Get("wmi")
	if idx := strings.Index(tag, ","); idx != -1 {
		name = tag[:idx]
		options = tag[idx+1:]
	} else {
		name = tag
	}
	if name == "" {
		name = fType.Name
	}
	return
}

// A FilterValue is a typed value for a WHERE condition built by BuildQuery.
// Use the Filter* constructors; they handle quoting and escaping.
type FilterValue interface {
	// wql renders the right-hand side of the condition and the operator
	// joining it to the property name.
	wql() (op, value string)
}

type boolFilter bool
type numberFilter int64
type floatFilter float64
type stringFilter string
type isAFilter string

func (f boolFilter) wql() (string, string) {
	if f {
		return "=", "true"
	}
	return "=", "false"
}
func (f numberFilter) wql() (string, string) { return "=", strconv.FormatInt(int64(f), 10) }
func (f floatFilter) wql() (string, string) {
	return "=", strconv.FormatFloat(float64(f), 'g', -1, 64)
}
func (f stringFilter) wql() (string, string) { return "=", QuoteWQL(string(f)) }
func (f isAFilter) wql() (string, string)    { return "ISA", "'" + string(f) + "'" }

// FilterBool matches a boolean property.
func FilterBool(v bool) FilterValue { return boolFilter(v) }

// FilterNumber matches an integer property.
func FilterNumber(v int64) FilterValue { return numberFilter(v) }

// FilterFloat matches a floating point property.
func FilterFloat(v float64) FilterValue { return floatFilter(v) }

// FilterString matches a string property. The value is quoted and escaped.
func FilterString(v string) FilterValue { return stringFilter(v) }

// FilterIsA matches event properties by class, e.g.
// `TargetInstance ISA 'Win32_Process'`. Mostly useful with notification
// queries over the __Instance*Event classes.
func FilterIsA(class string) FilterValue { return isAFilter(class) }

// BuildQuery builds a SELECT query over @class. @fields may be empty, in
// which case all columns are selected. Conditions are sorted by property
// name so the output is deterministic.
func BuildQuery(class string, fields []string, filters map[string]FilterValue) string {
	cols := "*"
	if len(fields) > 0 {
		cols = strings.Join(fields, ", ")
	}

	q := "SELECT " + cols + " FROM " + class
	if where := whereClause(filters); where != "" {
		q += " " + where
	}
	return q
}

// BuildQueryFor builds a SELECT query from a struct type the same way
// CreateQuery does, but with typed filters. @src can be T, *T, []T or *[]T.
func BuildQueryFor(src interface{}, filters map[string]FilterValue) (string, error) {
	t := reflect.Indirect(reflect.ValueOf(src)).Type()
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", errors.Errorf("wmi: BuildQueryFor needs a struct type, got %s", t.Kind())
	}
	return BuildQuery(t.Name(), structFieldNames(t), filters), nil
}

// BuildNotificationQuery builds an event query over @class, polling with the
// given WITHIN interval when @within is positive. Sub-second intervals are
// rounded up to one second, the smallest WITHIN WMI accepts.
func BuildNotificationQuery(class string, filters map[string]FilterValue, within time.Duration) string {
	q := "SELECT * FROM " + class
	if within > 0 {
		secs := int64(within / time.Second)
		if secs < 1 {
			secs = 1
		}
		q += " WITHIN " + strconv.FormatInt(secs, 10)
	}
	if where := whereClause(filters); where != "" {
		q += " " + where
	}
	return q
}

func whereClause(filters map[string]FilterValue) string {
	if len(filters) == 0 {
		return ""
	}

	conditions := make([]string, 0, len(filters))
	for field, filter := range filters {
		op, value := filter.wql()
		conditions = append(conditions, fmt.Sprintf("%s %s %s", field, op, value))
	}
	sort.Strings(conditions)

	return "WHERE " + strings.Join(conditions, " AND ")
}

// QuoteWQL quotes and escapes a string constant for use in a WQL query.
// DMTF-DSP0004 4.11.1 only requires `\` and `"` to be escaped.
func QuoteWQL(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, ch := range s {
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
