package devseed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeSeed(t, "seed.json", `[
		{"path": "/user/hdfs", "dir": true, "owner": "hdfs"},
		{"path": "/user/hdfs/a.bin", "base64": "aGVsbG8=", "permission": "600"}
	]`)
	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Dir || entries[0].Owner != "hdfs" {
		t.Fatalf("unexpected dir entry: %#v", entries[0])
	}
	data, err := entries[1].Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected payload %q", data)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeSeed(t, "seed.yml", `
- path: /tmp/notes.txt
  content: |
    first line
  replication: 3
  modificationTime: 1320173277227
`)
	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Replication != 3 || e.ModificationTime != 1320173277227 {
		t.Fatalf("unexpected entry: %#v", e)
	}
	data, _ := e.Data()
	if string(data) != "first line\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"missing.json": `[{"content": "x"}]`,
		"dirdata.json": `[{"path": "/d", "dir": true, "content": "x"}]`,
		"broken.json":  `[{`,
		"broken.yaml":  "- path: [",
	}
	for name, content := range cases {
		if _, err := Load(writeSeed(t, name, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEntryDataBadBase64(t *testing.T) {
	if _, err := (Entry{Path: "/x", Base64: "!!"}).Data(); err == nil {
		t.Fatalf("expected base64 error")
	}
}
