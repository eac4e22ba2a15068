package domain

import (
	"time"
)

// Turn is one conversation exchange half stored in session history.
type Turn struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// RoutingDecision records which router classified the input and the route
// label it chose. Written once, by IntentRouter.
type RoutingDecision struct {
	Router string `json:"router,omitempty"`
	Route  string `json:"route,omitempty"`
}

// PlanStep is one entry of the ordered task decomposition.
type PlanStep struct {
	Seq         int    `json:"seq"`
	Description string `json:"description"`
}

// ToolRequest is a tool-call directive proposed by a reasoning backend.
type ToolRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the structured outcome of one tool call. Failed calls are
// recorded here instead of aborting the request.
type ToolResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   string        `json:"status"` // "ok" or "error"
	Code     Code          `json:"code,omitempty"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Citation points at a retrieved fact supporting the answer.
type Citation struct {
	Source  string  `json:"source"`
	Ref     string  `json:"ref,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// TokenUsage accumulates backend token statistics for audit metadata.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Add accumulates usage from one backend call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Prompt += other.Prompt
	u.Completion += other.Completion
	u.Total += other.Total
}

// Failure captures the first unrecoverable node fault of a request.
type Failure struct {
	Node    string `json:"node"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// AuditEntry is one immutable record of a node transition. The engine
// appends one per step; the Audit node persists the accumulated trail.
type AuditEntry struct {
	Node     string        `json:"node"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status"` // "ok", "failed", "timeout", "redirect"
	Detail   string        `json:"detail,omitempty"`
}

// Response is the final envelope returned to the engine caller.
type Response struct {
	Answer      string     `json:"answer"`
	Sources     []Citation `json:"sources"`
	TraceID     string     `json:"trace_id"`
	TimingMS    int64      `json:"timing_ms"`
	Annotations []string   `json:"annotations,omitempty"`
	Error       *Error     `json:"error,omitempty"`
}

// SessionContext identifies the conversation a request belongs to.
type SessionContext struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// Well-known annotations attached by nodes as they degrade or short-circuit.
const (
	AnnotationCacheHit   = "cache_hit"
	AnnotationIncomplete = "incomplete"
	AnnotationUngrounded = "ungrounded"
	AnnotationUnplanned  = "unplanned"
	AnnotationUnrouted   = "unrouted"
	AnnotationError      = "error"
)

// ExecutionState is the per-request record threaded through all nodes.
// It is owned by exactly one in-flight request: the engine hands it to one
// node at a time and no node retains a reference after returning.
// Append-only lists (ToolResults, Citations, Annotations, Audit) never
// shrink; scalar decision fields are each written by at most one node.
type ExecutionState struct {
	RequestID string
	AgentID   string
	SessionID string
	UserID    string

	// RawInput is the text as received; Input is the validated, trimmed
	// form nodes operate on. Fingerprint keys the response cache.
	RawInput    string
	Input       string
	Fingerprint string

	History []Turn
	Routing RoutingDecision
	Plan    []PlanStep

	Draft        string
	ToolRequests []ToolRequest
	ToolResults  []ToolResult
	Citations    []Citation
	Annotations  []string
	Usage        TokenUsage

	// CacheHit is set by IntentRouter when the draft was served from the
	// response cache; MemoryStore then skips the redundant cache write.
	CacheHit bool

	Failure *Failure
	// SafeMessage is the user-facing text ErrorHandler derived from Failure.
	SafeMessage string

	Audit   []AuditEntry
	Started time.Time
	Final   *Response
}

// NewExecutionState seeds a state for one request.
func NewExecutionState(agentID, input string, sess SessionContext) *ExecutionState {
	return &ExecutionState{
		AgentID:   agentID,
		SessionID: sess.SessionID,
		UserID:    sess.UserID,
		RawInput:  input,
		Started:   time.Now(),
	}
}

// Annotate appends a tag unless already present.
func (s *ExecutionState) Annotate(tag string) {
	for _, a := range s.Annotations {
		if a == tag {
			return
		}
	}
	s.Annotations = append(s.Annotations, tag)
}

// Annotated reports whether the tag has been recorded.
func (s *ExecutionState) Annotated(tag string) bool {
	for _, a := range s.Annotations {
		if a == tag {
			return true
		}
	}
	return false
}

// AppendAudit records one transition. Entries are never removed.
func (s *ExecutionState) AppendAudit(e AuditEntry) {
	s.Audit = append(s.Audit, e)
}

// Elapsed returns the wall time since the request started.
func (s *ExecutionState) Elapsed() time.Duration {
	return time.Since(s.Started)
}
