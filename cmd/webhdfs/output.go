package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/webhdfs/webhdfs_sdk_go/pkg/webhdfs"
)

// render writes v in the selected output format; text is used for the
// default human format.
func (a *app) render(v any, text func(w io.Writer) error) error {
	switch a.output() {
	case outputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(plain(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(a.out)
	}
}

// plain replaces json.Number leaves so YAML prints numbers unquoted.
func plain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func writeStatuses(w io.Writer, dir string, entries []webhdfs.FileStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, st := range entries {
		name := st.PathSuffix
		if name == "" {
			name = path.Base(dir)
		}
		kind := "-"
		if st.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(tw, "%s%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
			kind, st.Permission, st.Replication, st.Owner, st.Group, st.Length,
			st.ModTime().UTC().Format("2006-01-02 15:04"), name)
	}
	return tw.Flush()
}
