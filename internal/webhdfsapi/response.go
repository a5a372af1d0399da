package webhdfsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Operation codes carried in the "op" query parameter.
const (
	OpCreate            = "CREATE"
	OpAppend            = "APPEND"
	OpOpen              = "OPEN"
	OpMkdirs            = "MKDIRS"
	OpRename            = "RENAME"
	OpDelete            = "DELETE"
	OpGetFileStatus     = "GETFILESTATUS"
	OpListStatus        = "LISTSTATUS"
	OpGetHomeDirectory  = "GETHOMEDIRECTORY"
	OpGetContentSummary = "GETCONTENTSUMMARY"
	OpSetOwner          = "SETOWNER"
	OpSetPermission     = "SETPERMISSION"
)

// Query parameter keys.
const (
	ParamOp          = "op"
	ParamUser        = "user.name"
	ParamOverwrite   = "overwrite"
	ParamBlockSize   = "blocksize"
	ParamReplication = "replication"
	ParamPermission  = "permission"
	ParamBufferSize  = "buffersize"
	ParamOffset      = "offset"
	ParamLength      = "length"
	ParamDestination = "destination"
	ParamRecursive   = "recursive"
	ParamOwner       = "owner"
	ParamGroup       = "group"
)

// PathPrefix is prepended to every filesystem path on the wire.
const PathPrefix = "/webhdfs/v1"

// Response envelope keys.
const (
	KeyBoolean        = "boolean"
	KeyPath           = "Path"
	KeyFileStatus     = "FileStatus"
	KeyFileStatuses   = "FileStatuses"
	KeyContentSummary = "ContentSummary"
	KeyRemoteError    = "RemoteException"
)

// RemoteException is the error envelope returned by the name service:
//
//	{"RemoteException":{"exception":"FileNotFoundException",
//	  "javaClassName":"java.io.FileNotFoundException","message":"..."}}
type RemoteException struct {
	Exception     string `json:"exception"`
	JavaClassName string `json:"javaClassName"`
	Message       string `json:"message"`
}

func (e *RemoteException) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return e.Exception
	}
	return fmt.Sprintf("%s: %s", e.Exception, e.Message)
}

// DecodeRemoteException extracts a RemoteException from an error body. It
// returns nil when the body is not a WebHDFS error envelope.
func DecodeRemoteException(body []byte) *RemoteException {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var envelope struct {
		Remote *RemoteException `json:"RemoteException"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || envelope.Remote == nil {
		return nil
	}
	if strings.TrimSpace(envelope.Remote.Exception) == "" && strings.TrimSpace(envelope.Remote.Message) == "" {
		return nil
	}
	return envelope.Remote
}

// Boolean reports whether obj holds the key "boolean" with the JSON value
// true. A missing key, false or any non-boolean value yields false.
func Boolean(obj map[string]any) bool {
	v, ok := obj[KeyBoolean].(bool)
	return ok && v
}

// Path returns the "Path" string of a GETHOMEDIRECTORY response, or "" when
// the key is absent or not a string.
func Path(obj map[string]any) string {
	v, _ := obj[KeyPath].(string)
	return v
}

// Unwrap returns the nested object stored under key.
func Unwrap(obj map[string]any, key string) (map[string]any, bool) {
	inner, ok := obj[key].(map[string]any)
	return inner, ok
}

// DecodeInto re-encodes the value stored under key and decodes it into out.
// It lets callers turn an as-is response mapping into typed structures.
func DecodeInto(obj map[string]any, key string, out any) error {
	v, ok := obj[key]
	if !ok {
		return fmt.Errorf("webhdfsapi: response has no %q field", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("webhdfsapi: encode %q: %w", key, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("webhdfsapi: decode %q: %w", key, err)
	}
	return nil
}
