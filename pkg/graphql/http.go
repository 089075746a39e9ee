package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
)

// DefaultMaxDepth bounds query nesting. The schema is three levels deep.
const DefaultMaxDepth = 4

// Request represents a GraphQL HTTP request
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response represents a GraphQL HTTP response
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error represents a GraphQL error
type Error struct {
	Message string `json:"message"`
}

// Handler serves POST /graphql.
type Handler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) HandlerOption {
	return func(h *Handler) { h.maxDepth = depth }
}

func WithLogger(l logging.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logging.OrNop(l) }
}

// NewHandler creates a GraphQL HTTP handler for schema.
func NewHandler(schema graphql.Schema, opts ...HandlerOption) *Handler {
	h := &Handler{schema: schema, maxDepth: DefaultMaxDepth, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP executes one query. Query errors are reported in the body with
// status 200, as GraphQL clients expect.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var resp Response
	if err := ValidateQueryDepth(req.Query, h.maxDepth); err != nil {
		resp.Errors = []Error{{Message: err.Error()}}
	} else {
		result := graphql.Do(graphql.Params{
			Schema:         h.schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		resp.Data = result.Data
		for _, e := range result.Errors {
			resp.Errors = append(resp.Errors, Error{Message: e.Message})
		}
	}

	if len(resp.Errors) > 0 {
		h.logger.Warn("graphql query failed",
			logging.String("error", resp.Errors[0].Message),
			logging.Int("errors", len(resp.Errors)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode graphql response", logging.Error(err))
	}
}
