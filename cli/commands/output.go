package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/runtime/client"
	"gopkg.in/yaml.v3"
)

// renderer writes results in the selected output format.
type renderer struct {
	w      io.Writer
	format string
}

func (o *globalOptions) renderer(w io.Writer) renderer {
	return renderer{w: w, format: o.output}
}

// display formats a value for table output.
func display(v any) string {
	if v == nil {
		return ui.Null()
	}
	return client.FormatValue(v)
}

// plain converts driver values into values both encoders handle.
func plain(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func (r renderer) value(v any) error {
	switch r.format {
	case OutputTable:
		_, err := fmt.Fprintln(r.w, display(v))
		return err
	default:
		return r.encode(plain(v))
	}
}

func (r renderer) row(row *client.Row) error {
	if r.format == OutputTable {
		lines := make([][]string, row.Len())
		for i, c := range row.Columns {
			lines[i] = []string{c, display(row.Values[i])}
		}
		return ui.RenderTable(r.w, []string{"column", "value"}, lines)
	}
	return r.encodeOrdered([]orderedRecord{{keys: row.Columns, values: row.Values}}, false)
}

func (r renderer) table(t *client.Table) error {
	if r.format == OutputTable {
		formatted := t.Format()
		for i, row := range t.Rows {
			for j, v := range row {
				if v == nil {
					formatted[i+1][j] = ui.Null()
				}
			}
		}
		return ui.RenderTable(r.w, formatted[0], formatted[1:])
	}
	records := make([]orderedRecord, t.Len())
	names := t.ColumnNames()
	for i, row := range t.Rows {
		records[i] = orderedRecord{keys: names, values: row}
	}
	return r.encodeOrdered(records, true)
}

func (r renderer) column(column map[int]any) error {
	keys := make([]int, 0, len(column))
	for k := range column {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	if r.format == OutputTable {
		lines := make([][]string, len(keys))
		for i, k := range keys {
			lines[i] = []string{strconv.Itoa(k), display(column[k])}
		}
		return ui.RenderTable(r.w, []string{"index", "value"}, lines)
	}
	out := make(map[int]any, len(column))
	for k, v := range column {
		out[k] = plain(v)
	}
	return r.encode(out)
}

// object writes v with the structured encoders, or text in table mode.
func (r renderer) object(v any, text string) error {
	if r.format == OutputTable {
		_, err := fmt.Fprintln(r.w, text)
		return err
	}
	return r.encode(v)
}

func (r renderer) encode(v any) error {
	if r.format == OutputJSON {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// orderedRecord is a row whose keys keep select order when encoded.
type orderedRecord struct {
	keys   []string
	values []any
}

// encodeOrdered writes records keeping column order. A single record is
// written as an object unless list is set.
func (r renderer) encodeOrdered(records []orderedRecord, list bool) error {
	if r.format == OutputJSON {
		var buf bytes.Buffer
		if list {
			buf.WriteByte('[')
		}
		for i, rec := range records {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := rec.writeJSON(&buf); err != nil {
				return err
			}
		}
		if list {
			buf.WriteByte(']')
		}
		var out bytes.Buffer
		if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
			return err
		}
		out.WriteByte('\n')
		_, err := r.w.Write(out.Bytes())
		return err
	}

	var doc *yaml.Node
	if list || len(records) != 1 {
		doc = &yaml.Node{Kind: yaml.SequenceNode}
		for _, rec := range records {
			node, err := rec.yamlNode()
			if err != nil {
				return err
			}
			doc.Content = append(doc.Content, node)
		}
	} else {
		node, err := records[0].yamlNode()
		if err != nil {
			return err
		}
		doc = node
	}
	return r.encode(doc)
}

func (rec orderedRecord) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range rec.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		val, err := json.Marshal(plain(rec.values[i]))
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

func (rec orderedRecord) yamlNode() (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, k := range rec.keys {
		var val yaml.Node
		if err := val.Encode(plain(rec.values[i])); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}
