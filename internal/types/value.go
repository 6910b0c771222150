// internal/types/value.go
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/*
 * Closed value variant for condition comparisons.
 *
 * Condition values are a fixed sum over {string, number, boolean, date,
 * array-of-these} mirroring DataType. Constructors are the only way to
 * produce a Value, so an impossible shape cannot enter a tree; shape
 * checks later (validator, compiler) are about operator fit, not type
 * confusion.
 *
 * Coercion: Coerce converts a value to the shape a DataType expects,
 * following strict/lenient modes:
 *   - number: strict - numeric strings parse, booleans rejected
 *   - string: lenient - everything formats to text
 *   - boolean: strict - boolean only (avoids "true" vs 1 ambiguity)
 *   - date: strict - RFC 3339 or date-only strings parse, numbers rejected
 *   - array: element-wise coercion is the caller's concern
 *
 * JSON: values marshal to their natural JSON form (dates as RFC 3339
 * strings). Unmarshaling cannot see the condition's DataType, so string
 * values stay strings until Coerce runs at condition construction.
 */

// ValueKind discriminates the Value variant.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindArray
)

// String returns the kind name for diagnostics.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a closed variant over the shapes a condition may compare against.
// The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	t    time.Time
	arr  []Value
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// DateValue wraps a timestamp, normalized to UTC.
func DateValue(t time.Time) Value { return Value{kind: KindDate, t: t.UTC()} }

// ArrayValue wraps a sequence of values.
func ArrayValue(vs ...Value) Value {
	arr := make([]Value, len(vs))
	copy(arr, vs)
	return Value{kind: KindArray, arr: arr}
}

// Kind returns the variant discriminator.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload (valid only for KindString).
func (v Value) Str() string { return v.str }

// Num returns the numeric payload (valid only for KindNumber).
func (v Value) Num() float64 { return v.num }

// Bool returns the boolean payload (valid only for KindBool).
func (v Value) Bool() bool { return v.b }

// Date returns the timestamp payload (valid only for KindDate).
func (v Value) Date() time.Time { return v.t }

// Array returns a copy of the array payload (valid only for KindArray).
func (v Value) Array() []Value {
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	return out
}

// Len returns the array length, or 0 for non-arrays.
func (v Value) Len() int { return len(v.arr) }

// Native converts the value to the plain Go shape drivers expect:
// string, float64, bool, time.Time, []any, or nil.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindDate:
		return v.t
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.t.Equal(o.t)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// MatchesType reports whether the value shape fits the declared data type.
// Null never matches; operators that ignore values are checked before this.
func (v Value) MatchesType(dt DataType) bool {
	switch dt {
	case TypeString:
		return v.kind == KindString
	case TypeNumber:
		return v.kind == KindNumber
	case TypeBoolean:
		return v.kind == KindBool
	case TypeDate:
		return v.kind == KindDate
	case TypeArray:
		return v.kind == KindArray
	}
	return false
}

// Date layouts accepted by Coerce, most specific first.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// Coerce converts the value to the shape dt expects.
// Returns ErrMalformedValue for impossible coercions. Null passes through
// unchanged: null handling is the operator's concern (is_null/is_not_null).
func (v Value) Coerce(dt DataType) (Value, error) {
	if v.kind == KindNull {
		return v, nil
	}

	switch dt {
	case TypeNumber:
		return v.coerceNumber()
	case TypeString:
		return v.coerceString()
	case TypeBoolean:
		if v.kind == KindBool {
			return v, nil
		}
		return Value{}, ErrMalformedValue
	case TypeDate:
		return v.coerceDate()
	case TypeArray:
		if v.kind == KindArray {
			return v, nil
		}
		return Value{}, ErrMalformedValue
	default:
		return Value{}, ErrMalformedValue
	}
}

// coerceNumber parses numeric strings; rejects booleans per strict mode.
func (v Value) coerceNumber() (Value, error) {
	switch v.kind {
	case KindNumber:
		return v, nil
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return Value{}, ErrMalformedValue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, ErrMalformedValue
		}
		return NumberValue(f), nil
	default:
		return Value{}, ErrMalformedValue
	}
}

// coerceString formats any scalar to text (lenient mode).
func (v Value) coerceString() (Value, error) {
	switch v.kind {
	case KindString:
		return v, nil
	case KindNumber:
		return StringValue(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindBool:
		if v.b {
			return StringValue("true"), nil
		}
		return StringValue("false"), nil
	case KindDate:
		return StringValue(v.t.Format(time.RFC3339)), nil
	default:
		return Value{}, ErrMalformedValue
	}
}

// coerceDate parses RFC 3339 and date-only strings; rejects numbers to
// avoid epoch-seconds vs epoch-millis ambiguity.
func (v Value) coerceDate() (Value, error) {
	switch v.kind {
	case KindDate:
		return v, nil
	case KindString:
		s := strings.TrimSpace(v.str)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return DateValue(t), nil
			}
		}
		return Value{}, ErrMalformedValue
	default:
		return Value{}, ErrMalformedValue
	}
}

// MarshalJSON implements json.Marshaler using the natural JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON implements json.Unmarshaler. Strings stay strings even if
// they look like dates; Coerce resolves the shape once the DataType is known.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromNative(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromNative converts a decoded JSON value (string, float64, bool, nil,
// []any) or a time.Time into a Value.
func FromNative(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(x), nil
	case float64:
		return NumberValue(x), nil
	case int:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case bool:
		return BoolValue(x), nil
	case time.Time:
		return DateValue(x), nil
	case []any:
		arr := make([]Value, 0, len(x))
		for _, e := range x {
			ev, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, ev)
		}
		return Value{kind: KindArray, arr: arr}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T: %w", raw, ErrMalformedValue)
	}
}
