package webhdfs

import (
	"net/http"
	"strconv"

	"github.com/webhdfs/webhdfs_sdk_go/internal/httpx"
	api "github.com/webhdfs/webhdfs_sdk_go/internal/webhdfsapi"
)

// operation is one filesystem call before addressing: verb, op code and
// parameters, and the response mode the dispatcher must use.
type operation struct {
	method string
	path   string
	params Params
	mode   httpx.Mode
}

func newOperation(method, op, path string, mode httpx.Mode) *operation {
	o := &operation{method: method, path: path, mode: mode}
	o.params.Add(api.ParamOp, op)
	return o
}

func (o *operation) op() string {
	v, _ := o.params.Get(api.ParamOp)
	return v
}

func createOp(path string, data []byte, opts *CreateOptions) *operation {
	o := newOperation(http.MethodPut, api.OpCreate, path, httpx.RedirectedWrite{Payload: data})
	if opts == nil {
		return o
	}
	if opts.Overwrite {
		o.params.Add(api.ParamOverwrite, "true")
	}
	if opts.BlockSize > 0 {
		o.params.Add(api.ParamBlockSize, strconv.FormatInt(opts.BlockSize, 10))
	}
	if opts.Replication > 0 {
		o.params.Add(api.ParamReplication, strconv.Itoa(opts.Replication))
	}
	if opts.Permission != "" {
		o.params.Add(api.ParamPermission, opts.Permission)
	}
	if opts.BufferSize > 0 {
		o.params.Add(api.ParamBufferSize, strconv.Itoa(opts.BufferSize))
	}
	return o
}

// appendOp sends bufferSize, or len(data) when bufferSize is not positive.
func appendOp(path string, data []byte, bufferSize int) *operation {
	if bufferSize <= 0 {
		bufferSize = len(data)
	}
	o := newOperation(http.MethodPost, api.OpAppend, path, httpx.RedirectedWrite{Payload: data})
	o.params.Add(api.ParamBufferSize, strconv.Itoa(bufferSize))
	return o
}

func openOp(path string, opts *OpenOptions) *operation {
	o := newOperation(http.MethodGet, api.OpOpen, path, httpx.Raw{})
	if opts == nil {
		return o
	}
	if opts.Offset > 0 {
		o.params.Add(api.ParamOffset, strconv.FormatInt(opts.Offset, 10))
	}
	if opts.Length > 0 {
		o.params.Add(api.ParamLength, strconv.FormatInt(opts.Length, 10))
	}
	if opts.BufferSize > 0 {
		o.params.Add(api.ParamBufferSize, strconv.Itoa(opts.BufferSize))
	}
	return o
}

func mkdirsOp(path, permission string) *operation {
	if permission == "" {
		permission = DefaultPermission
	}
	o := newOperation(http.MethodPut, api.OpMkdirs, path, httpx.JSON{})
	o.params.Add(api.ParamPermission, permission)
	return o
}

func renameOp(path, destination string) *operation {
	o := newOperation(http.MethodPut, api.OpRename, path, httpx.JSON{})
	o.params.Add(api.ParamDestination, destination)
	return o
}

func deleteOp(path string, recursive bool) *operation {
	o := newOperation(http.MethodDelete, api.OpDelete, path, httpx.JSON{})
	o.params.Add(api.ParamRecursive, strconv.FormatBool(recursive))
	return o
}

func getFileStatusOp(path string) *operation {
	return newOperation(http.MethodGet, api.OpGetFileStatus, path, httpx.JSON{})
}

func listStatusOp(path string) *operation {
	return newOperation(http.MethodGet, api.OpListStatus, path, httpx.JSON{})
}

func getContentSummaryOp(path string) *operation {
	return newOperation(http.MethodGet, api.OpGetContentSummary, path, httpx.JSON{})
}

func getHomeDirectoryOp() *operation {
	return newOperation(http.MethodGet, api.OpGetHomeDirectory, "/", httpx.JSON{})
}

// setOwnerOp omits group when it is empty.
func setOwnerOp(path, owner, group string) *operation {
	o := newOperation(http.MethodPut, api.OpSetOwner, path, httpx.StatusOnly{})
	o.params.Add(api.ParamOwner, owner)
	if group != "" {
		o.params.Add(api.ParamGroup, group)
	}
	return o
}

func setPermissionOp(path, permission string) *operation {
	o := newOperation(http.MethodPut, api.OpSetPermission, path, httpx.StatusOnly{})
	o.params.Add(api.ParamPermission, permission)
	return o
}
