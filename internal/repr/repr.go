// Package repr renders arbitrary call arguments into the stable text recorded
// as parameter values and step titles.
package repr

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewUUID returns a fresh random identifier. Identifiers are never reused.
func NewUUID() string {
	return uuid.New().String()
}

// Formatter turns an argument into its recorded text. Implementations must be
// total: any value, including nil and opaque handles, yields a string.
type Formatter interface {
	Format(v any) string
}

type FormatterFunc func(v any) string

func (f FormatterFunc) Format(v any) string {
	return f(v)
}

// Default is the formatter used when none is configured.
var Default Formatter = FormatterFunc(Represent)

// Represent renders primitives canonically (strings quoted, booleans as
// True/False, nil as None) and falls back to a type name plus identity for
// values it can not describe.
func Represent(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("<%T>", v)
		}
	}()

	return represent(reflect.ValueOf(v), 0)
}

const maxDepth = 8

func represent(v reflect.Value, depth int) string {
	if !v.IsValid() {
		return "None"
	}

	if depth > maxDepth {
		return "..."
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case []byte:
			return "<bytes>"
		case error:
			if isNilPointer(v) {
				return "None"
			}
			return x.Error()
		case fmt.Stringer:
			if isNilPointer(v) {
				return "None"
			}
			return x.String()
		}
	}

	switch v.Kind() {
	case reflect.String:
		return "'" + v.String() + "'"
	case reflect.Bool:
		if v.Bool() {
			return "True"
		}
		return "False"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Complex())
	case reflect.Interface:
		if v.IsNil() {
			return "None"
		}
		return represent(v.Elem(), depth)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return "[]"
		}
		items := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			items = append(items, represent(v.Index(i), depth+1))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case reflect.Map:
		items := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			items = append(items, represent(iter.Key(), depth+1)+": "+represent(iter.Value(), depth+1))
		}
		sort.Strings(items)
		return "{" + strings.Join(items, ", ") + "}"
	case reflect.Pointer:
		if v.IsNil() {
			return "None"
		}
		return fmt.Sprintf("<%s at %#x>", v.Type(), v.Pointer())
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return "None"
		}
		return fmt.Sprintf("<%s at %#x>", v.Type(), v.Pointer())
	case reflect.Struct:
		return fmt.Sprintf("<%s>", v.Type())
	default:
		return fmt.Sprintf("<%s>", v.Type())
	}
}

func isNilPointer(v reflect.Value) bool {
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ID renders an argument the way parametrized test ids show it: like Represent
// but without quotes around strings.
func ID(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return Represent(v)
}
