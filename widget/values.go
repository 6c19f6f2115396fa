package widget

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/shopspring/decimal"
)

// ValuesEqual compares two JSON-shaped values. Numbers are compared by value,
// independent of the Go type the decoder produced them with.
func ValuesEqual(a, b interface{}) bool {
	if da, ok := toDecimal(a); ok {
		db, ok := toDecimal(b)
		return ok && da.Equal(db)
	}
	if _, ok := toDecimal(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimalFromString(strconv.FormatUint(uint64(n), 10))
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimalFromString(strconv.FormatUint(n, 10))
	case float32:
		return decimalFromFloat(float64(n))
	case float64:
		return decimalFromFloat(n)
	case json.Number:
		return decimalFromString(n.String())
	case decimal.Decimal:
		return n, true
	default:
		return decimal.Decimal{}, false
	}
}

func decimalFromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

func decimalFromString(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// asList returns the elements of a list-shaped value.
func asList(v interface{}) ([]interface{}, bool) {
	switch list := v.(type) {
	case []interface{}:
		return list, true
	case []string:
		out := make([]interface{}, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asMap returns the entries of a map-shaped value with string keys.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Options:
		return map[string]interface{}(m), true
	case DashboardVariables:
		return map[string]interface{}(m), true
	}
	return nil, false
}

// isEmptyValue reports whether a variable value counts as absent.
func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if list, ok := asList(v); ok {
		return len(list) == 0
	}
	return false
}

// cloneValue deep copies JSON-shaped values. Filter maps are copied as typed
// FiltersMap values; unknown types are returned as is.
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Options:
		return val.Clone()
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case FiltersMap:
		return val.Clone()
	case []Filter:
		return cloneFilters(val)
	default:
		return v
	}
}

// Clone returns a deep copy of the options.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a deep copy of the inherit options.
func (io InheritOptions) Clone() InheritOptions {
	if io == nil {
		return nil
	}
	out := make(InheritOptions, len(io))
	for k, v := range io {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the variables.
func (dv DashboardVariables) Clone() DashboardVariables {
	if dv == nil {
		return nil
	}
	out := make(DashboardVariables, len(dv))
	for k, v := range dv {
		out[k] = cloneValue(v)
	}
	return out
}
