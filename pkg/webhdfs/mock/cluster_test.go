package mock_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/webhdfs/webhdfs_sdk_go/internal/devseed"
	"github.com/webhdfs/webhdfs_sdk_go/pkg/webhdfs/mock"
)

var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func do(t *testing.T, client *http.Client, method, rawURL string, body []byte) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, rawURL, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, rawURL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return obj
}

func TestCreateHandshake(t *testing.T) {
	cluster := mock.New()
	srv := httptest.NewServer(cluster)
	defer srv.Close()

	resp, _ := do(t, noRedirect, http.MethodPut, srv.URL+"/webhdfs/v1/tmp/a.txt?op=CREATE&user.name=alice", nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("phase 1: expected 307, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	u, err := url.Parse(loc)
	if err != nil {
		t.Fatalf("parse location %q: %v", loc, err)
	}
	if u.Query().Get("ticket") == "" || u.Query().Get("datanode") != "true" {
		t.Fatalf("location lacks data-node markers: %s", loc)
	}
	if cluster.PendingWrites() != 1 {
		t.Fatalf("expected one pending write")
	}
	if cluster.Exists("/tmp/a.txt") {
		t.Fatalf("file must not exist before phase 2")
	}

	resp, _ = do(t, noRedirect, http.MethodPut, loc, []byte("hello"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("phase 2: expected 201, got %d", resp.StatusCode)
	}
	data, ok := cluster.ReadFile("/tmp/a.txt")
	if !ok || string(data) != "hello" {
		t.Fatalf("unexpected file contents %q (exists=%v)", data, ok)
	}

	resp, body := do(t, noRedirect, http.MethodPut, loc, []byte("again"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reused ticket: expected 400, got %d (%s)", resp.StatusCode, body)
	}

	resp, body = do(t, http.DefaultClient, http.MethodGet, srv.URL+"/webhdfs/v1/tmp/a.txt?op=GETFILESTATUS", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GETFILESTATUS: %d", resp.StatusCode)
	}
	st := decode(t, body)["FileStatus"].(map[string]any)
	if st["owner"] != "alice" || st["type"] != "FILE" || st["length"].(float64) != 5 {
		t.Fatalf("unexpected status: %#v", st)
	}
}

func TestCreateWithoutOverwriteConflicts(t *testing.T) {
	cluster := mock.New()
	if err := cluster.Seed([]devseed.Entry{{Path: "/data/x", Content: "v1"}}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv := httptest.NewServer(cluster)
	defer srv.Close()

	resp, body := do(t, noRedirect, http.MethodPut, srv.URL+"/webhdfs/v1/data/x?op=CREATE", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	remote := decode(t, body)["RemoteException"].(map[string]any)
	if remote["exception"] != "FileAlreadyExistsException" {
		t.Fatalf("unexpected exception: %#v", remote)
	}

	resp, _ = do(t, noRedirect, http.MethodPut, srv.URL+"/webhdfs/v1/data/x?op=CREATE&overwrite=true", nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("overwrite: expected 307, got %d", resp.StatusCode)
	}
	resp, _ = do(t, noRedirect, http.MethodPut, resp.Header.Get("Location"), []byte("v2"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("overwrite phase 2: %d", resp.StatusCode)
	}
	if data, _ := cluster.ReadFile("/data/x"); string(data) != "v2" {
		t.Fatalf("expected overwritten contents, got %q", data)
	}
}

func TestAppendAndOpen(t *testing.T) {
	cluster := mock.New(mock.WithDataNodeAddress("datanode.invalid:9864"))
	if err := cluster.Seed([]devseed.Entry{{Path: "/logs/app.log", Content: "one\n"}}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	client := &http.Client{Transport: cluster.Transport()}
	direct := &http.Client{Transport: cluster.Transport(), CheckRedirect: noRedirect.CheckRedirect}

	resp, _ := do(t, direct, http.MethodPost, "http://namenode.invalid:9870/webhdfs/v1/logs/app.log?op=APPEND&buffersize=4", nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("append phase 1: %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "http://datanode.invalid:9864/webhdfs/v1/logs/app.log?") {
		t.Fatalf("unexpected location %q", loc)
	}
	resp, _ = do(t, client, http.MethodPost, loc, []byte("two\n"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append phase 2: %d", resp.StatusCode)
	}

	resp, body := do(t, client, http.MethodGet, "http://namenode.invalid:9870/webhdfs/v1/logs/app.log?op=OPEN", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "one\ntwo\n" {
		t.Fatalf("open: %d %q", resp.StatusCode, body)
	}
	resp, body = do(t, client, http.MethodGet, "http://namenode.invalid:9870/webhdfs/v1/logs/app.log?op=OPEN&offset=4&length=2", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "tw" {
		t.Fatalf("ranged open: %d %q", resp.StatusCode, body)
	}

	resp, _ = do(t, client, http.MethodPost, "http://namenode.invalid:9870/webhdfs/v1/logs/missing.log?op=APPEND", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("append to missing file: expected 404, got %d", resp.StatusCode)
	}
}

func TestNamespaceOperations(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cluster := mock.New(mock.WithClock(func() time.Time { return fixed }))
	if err := cluster.Seed([]devseed.Entry{
		{Path: "/data/a.txt", Content: "aaaa", Replication: 3},
		{Path: "/data/sub/b.txt", Content: "bb"},
		{Path: "/empty", Dir: true},
	}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	client := &http.Client{Transport: cluster.Transport()}
	base := "http://nn.invalid:9870/webhdfs/v1"

	_, body := do(t, client, http.MethodGet, base+"/data?op=LISTSTATUS", nil)
	list := decode(t, body)["FileStatuses"].(map[string]any)["FileStatus"].([]any)
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].(map[string]any)["pathSuffix"] != "a.txt" || list[1].(map[string]any)["type"] != "DIRECTORY" {
		t.Fatalf("unexpected listing: %#v", list)
	}

	_, body = do(t, client, http.MethodGet, base+"/data?op=GETCONTENTSUMMARY", nil)
	summary := decode(t, body)["ContentSummary"].(map[string]any)
	if summary["fileCount"].(float64) != 2 || summary["directoryCount"].(float64) != 2 || summary["length"].(float64) != 6 || summary["spaceConsumed"].(float64) != 14 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	_, body = do(t, client, http.MethodPut, base+"/new/deep?op=MKDIRS&permission=700", nil)
	if decode(t, body)["boolean"] != true || !cluster.Exists("/new/deep") {
		t.Fatalf("mkdirs failed: %s", body)
	}

	_, body = do(t, client, http.MethodPut, base+"/data/a.txt?op=RENAME&destination=/empty", nil)
	if decode(t, body)["boolean"] != true || !cluster.Exists("/empty/a.txt") {
		t.Fatalf("rename into directory failed: %s", body)
	}
	_, body = do(t, client, http.MethodPut, base+"/nope?op=RENAME&destination=/x", nil)
	if decode(t, body)["boolean"] != false {
		t.Fatalf("rename of missing source must be false: %s", body)
	}

	resp, _ := do(t, client, http.MethodDelete, base+"/data?op=DELETE&recursive=false", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-recursive delete of non-empty dir: expected 403, got %d", resp.StatusCode)
	}
	_, body = do(t, client, http.MethodDelete, base+"/data?op=DELETE&recursive=true", nil)
	if decode(t, body)["boolean"] != true || cluster.Exists("/data/sub/b.txt") {
		t.Fatalf("recursive delete failed: %s", body)
	}
	_, body = do(t, client, http.MethodDelete, base+"/data?op=DELETE", nil)
	if decode(t, body)["boolean"] != false {
		t.Fatalf("delete of missing path must be false: %s", body)
	}

	resp, _ = do(t, client, http.MethodPut, base+"/empty/a.txt?op=SETOWNER&owner=bob&group=staff", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SETOWNER: %d", resp.StatusCode)
	}
	resp, _ = do(t, client, http.MethodPut, base+"/empty/a.txt?op=SETPERMISSION&permission=0640", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SETPERMISSION: %d", resp.StatusCode)
	}
	_, body = do(t, client, http.MethodGet, base+"/empty/a.txt?op=GETFILESTATUS", nil)
	st := decode(t, body)["FileStatus"].(map[string]any)
	if st["owner"] != "bob" || st["group"] != "staff" || st["permission"] != "640" {
		t.Fatalf("unexpected status after chown/chmod: %#v", st)
	}
	if st["modificationTime"].(float64) != float64(fixed.UnixMilli()) {
		t.Fatalf("unexpected modification time: %v", st["modificationTime"])
	}

	resp, _ = do(t, client, http.MethodPut, base+"/empty/a.txt?op=SETPERMISSION&permission=999", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad permission: expected 400, got %d", resp.StatusCode)
	}
	resp, _ = do(t, client, http.MethodPut, base+"/empty/a.txt?op=SETOWNER", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty owner and group: expected 400, got %d", resp.StatusCode)
	}
}

func TestHomeDirectoryAndErrors(t *testing.T) {
	cluster := mock.New()
	client := &http.Client{Transport: cluster.Transport()}
	base := "http://nn.invalid:9870/webhdfs/v1"

	_, body := do(t, client, http.MethodGet, base+"/?op=GETHOMEDIRECTORY&user.name=carol", nil)
	if decode(t, body)["Path"] != "/user/carol" {
		t.Fatalf("unexpected home: %s", body)
	}
	_, body = do(t, client, http.MethodGet, base+"/?op=GETHOMEDIRECTORY", nil)
	if decode(t, body)["Path"] != "/user/"+mock.DefaultUser {
		t.Fatalf("unexpected default home: %s", body)
	}

	resp, body := do(t, client, http.MethodGet, base+"/missing?op=GETFILESTATUS", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	remote := decode(t, body)["RemoteException"].(map[string]any)
	if remote["javaClassName"] != "java.io.FileNotFoundException" {
		t.Fatalf("unexpected remote exception: %#v", remote)
	}

	resp, _ = do(t, client, http.MethodGet, base+"/x?op=BOGUS", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown op: expected 400, got %d", resp.StatusCode)
	}
	resp, _ = do(t, client, http.MethodGet, base+"/x?op=MKDIRS", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong verb: expected 400, got %d", resp.StatusCode)
	}
}

func TestSeedRejectsFileAsParent(t *testing.T) {
	cluster := mock.New()
	err := cluster.Seed([]devseed.Entry{
		{Path: "/a", Content: "file"},
		{Path: "/a/b", Content: "child"},
	})
	if err == nil {
		t.Fatalf("expected error seeding under a file")
	}
}

func TestOpenRangeNearInt64Limit(t *testing.T) {
	cluster := mock.New()
	if err := cluster.Seed([]devseed.Entry{{Path: "/f", Content: "hello"}}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	client := &http.Client{Transport: cluster.Transport()}
	base := "http://namenode.invalid:9870/webhdfs/v1/f?op=OPEN"

	cases := []struct {
		query string
		want  string
	}{
		{query: "&offset=1&length=" + strconv.FormatInt(math.MaxInt64, 10), want: "ello"},
		{query: "&offset=5&length=" + strconv.FormatInt(math.MaxInt64, 10), want: ""},
		{query: "&length=" + strconv.FormatInt(math.MaxInt64-2, 10), want: "hello"},
		{query: "&offset=2&length=3", want: "llo"},
	}
	for _, tc := range cases {
		resp, body := do(t, client, http.MethodGet, base+tc.query, nil)
		if resp.StatusCode != http.StatusOK || string(body) != tc.want {
			t.Fatalf("open%s: %d %q, want %q", tc.query, resp.StatusCode, body, tc.want)
		}
	}
}
