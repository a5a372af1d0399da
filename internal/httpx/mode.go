package httpx

// Mode selects how Dispatch handles the response. The set of modes is closed:
// only the types in this package implement it, and only RedirectedWrite can
// carry a request body.
type Mode interface {
	String() string
	isMode()
}

// Raw returns the response body verbatim on 200, following redirects.
type Raw struct{}

// JSON decodes a 200 response body into a JSON object, following redirects.
type JSON struct{}

// StatusOnly returns the final status code and discards the body.
type StatusOnly struct{}

// RedirectedWrite performs the two-phase 307 handshake and sends Payload to
// the data node named by the name service.
type RedirectedWrite struct {
	Payload []byte
}

func (Raw) String() string             { return "raw" }
func (JSON) String() string            { return "json" }
func (StatusOnly) String() string      { return "status" }
func (RedirectedWrite) String() string { return "redirected_write" }

func (Raw) isMode()             {}
func (JSON) isMode()            {}
func (StatusOnly) isMode()      {}
func (RedirectedWrite) isMode() {}

// Result is the outcome of a dispatch. Only the fields relevant to Mode are
// populated: Body for Raw, Object for JSON, Location for RedirectedWrite.
type Result struct {
	Mode       Mode
	StatusCode int
	Body       []byte
	Object     map[string]any
	Location   string
}
