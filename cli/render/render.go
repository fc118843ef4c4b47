// Package render writes command results for the lapse CLI.
//
// Every format reads the same json field names, so a key seen in
// `--format json` is the key in yaml, msgpack and table output too.
// When --format is unset, stdout being a terminal selects table and
// anything else selects json. msgpack is only used when asked for.
//
// --no-color only touches table output; TUI views style themselves.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/lapse/cli/tui"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatTable   Format = "table"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

var formats = map[string]Format{
	"json":    FormatJSON,
	"table":   FormatTable,
	"yaml":    FormatYAML,
	"msgpack": FormatMsgpack,
}

// ParseFormat maps a --format value to a Format. The empty string is
// accepted and returned as-is so the caller can pick a default.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return "", nil
	}
	if f, ok := formats[strings.ToLower(s)]; ok {
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q (must be json, table, yaml, or msgpack)", s)
}

// Renderer writes values to out in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer builds a stdout renderer from the --format and --no-color
// flags.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if IsTerminal(os.Stdout) {
			format = FormatTable
		}
	}
	return NewRendererWithWriter(format, c.Bool("no-color"), os.Stdout), nil
}

// NewRendererWithWriter builds a renderer around an arbitrary writer.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Render writes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		return r.renderYAML(data)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(r.out)
		enc.SetCustomStructTag("json")
		enc.UseCompactInts(true)
		return enc.Encode(data)
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI hands data to the interactive view registered for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

// renderYAML routes data through its JSON encoding so yaml keys follow
// the json tags and field order.
func (r *Renderer) renderYAML(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(r.out)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(&doc)
}

// blockStyle drops the flow and quoting styles left by the JSON parse.
// The encoder still quotes scalars that would otherwise change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}

// column is one exported field as it appears in json output.
type column struct {
	name  string
	value reflect.Value
}

// columns lists v's fields under their json names, skipping "-" fields.
// Empty omitempty fields are kept so rows in a slice line up.
func columns(v reflect.Value) []column {
	t := v.Type()
	cols := make([]column, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		cols = append(cols, column{name: name, value: v.Field(i)})
	}
	return cols
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := indirect(reflect.ValueOf(data))
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return writeRows(w, v)
	case reflect.Struct:
		for _, col := range columns(v) {
			fmt.Fprintf(w, "%s:\t%s\n", col.name, cell(col.value))
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			fmt.Fprintf(w, "%v:\t%s\n", iter.Key().Interface(), cell(iter.Value()))
		}
	default:
		fmt.Fprintln(w, cell(v))
	}
	return nil
}

// writeRows prints a header row taken from the first element, then one
// row per element. Non-struct elements print one value per line.
func writeRows(w io.Writer, v reflect.Value) error {
	if v.Len() == 0 {
		fmt.Fprintln(w, "(no results)")
		return nil
	}
	if indirect(v.Index(0)).Kind() != reflect.Struct {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, cell(v.Index(i)))
		}
		return nil
	}

	headers := columns(indirect(v.Index(0)))
	names := make([]string, len(headers))
	for i, col := range headers {
		names[i] = col.name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))

	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		if !elem.IsValid() {
			fmt.Fprintln(w)
			continue
		}
		cols := columns(elem)
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = cell(col.value)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// cell formats one value for a table column.
func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if v.Type() == timeType {
			t := v.Interface().(time.Time)
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		}
		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return "{...}"
		}
		return string(raw)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// indirect follows pointers and interfaces. A nil yields the zero Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
