package repr

import (
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/robotomize/go-allure/internal/allure"
)

// Params is an ordered name -> value capture of call arguments.
type Params struct {
	values *orderedmap.OrderedMap[string, string]
}

// Capture represents each named argument exactly once, in declaration order.
// Arguments beyond len(names) are named by their position; missing arguments
// are skipped.
func Capture(f Formatter, names []string, args []any) Params {
	if f == nil {
		f = Default
	}

	p := Params{values: orderedmap.New[string, string]()}
	for i, arg := range args {
		name := strconv.Itoa(i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		p.values.Set(name, f.Format(arg))
	}

	return p
}

func (p Params) Get(name string) (string, bool) {
	if p.values == nil {
		return "", false
	}

	return p.values.Get(name)
}

func (p Params) Len() int {
	if p.values == nil {
		return 0
	}

	return p.values.Len()
}

// Parameters lists the captured values as report parameters.
func (p Params) Parameters() []allure.Parameter {
	out := make([]allure.Parameter, 0, p.Len())
	if p.values == nil {
		return out
	}

	for pair := p.values.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, allure.Parameter{Name: pair.Key, Value: pair.Value})
	}

	return out
}

// FormatTitle substitutes {0}, {1}, ... with positional args and {name} with
// captured parameters. {{ and }} stand for literal braces. Placeholders it can
// not resolve are kept verbatim.
func FormatTitle(format string, args []string, params Params) string {
	if !strings.ContainsAny(format, "{}") {
		return format
	}

	var b strings.Builder
	for i := 0; i < len(format); {
		next := strings.IndexAny(format[i:], "{}")
		if next < 0 {
			b.WriteString(format[i:])
			break
		}
		b.WriteString(format[i : i+next])
		i += next

		// Doubled braces collapse to one.
		if i+1 < len(format) && format[i+1] == format[i] {
			b.WriteByte(format[i])
			i += 2
			continue
		}

		if format[i] == '}' {
			b.WriteByte('}')
			i++
			continue
		}

		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			b.WriteString(format[i:])
			break
		}

		key := format[i+1 : i+end]
		b.WriteString(resolve(key, args, params, format[i:i+end+1]))
		i += end + 1
	}

	return b.String()
}

func resolve(key string, args []string, params Params, verbatim string) string {
	if idx, err := strconv.Atoi(key); err == nil {
		if idx >= 0 && idx < len(args) {
			return args[idx]
		}

		return verbatim
	}

	if v, ok := params.Get(key); ok {
		return v
	}

	return verbatim
}

// Args represents positional arguments for title formatting.
func Args(f Formatter, args []any) []string {
	if f == nil {
		f = Default
	}

	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, f.Format(a))
	}

	return out
}

// CaseID joins argument ids with "-" the way parametrized tests are named.
func CaseID(args []any) string {
	ids := make([]string, 0, len(args))
	for _, a := range args {
		ids = append(ids, ID(a))
	}

	return strings.Join(ids, "-")
}

// DisplayName appends the case id to a test name: name[id].
func DisplayName(name, id string) string {
	if id == "" {
		return name
	}

	return fmt.Sprintf("%s[%s]", name, id)
}
