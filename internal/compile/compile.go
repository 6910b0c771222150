// internal/compile/compile.go
package compile

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/solatis/queryforge/internal/rules"
	"github.com/solatis/queryforge/internal/types"
)

/*
 * Multi-target filter compilation.
 *
 * Compiles a filter tree into one of three query representations:
 *
 *   - sql:           WHERE-clause text with numbered bound parameters
 *   - elasticsearch: nested bool query object
 *   - mongodb:       bson filter document
 *
 * Validation is the caller's responsibility; the compiler does not
 * re-validate. It does bound its own recursion so a tree that skipped
 * validation fails cleanly instead of exhausting the stack.
 *
 * Injection defense (relational target only): every table name and every
 * field name, after remapping, is checked against a fixed allow-list
 * before it is embedded in generated text. Values never reach the text at
 * all; they travel as bound parameters.
 *
 * All three targets share one complexity scorer and one index-hint
 * generator (internal/rules); exactly one target field of the envelope is
 * populated per call.
 */

// Target selects the output representation.
type Target string

const (
	TargetSQL           Target = "sql"
	TargetElasticsearch Target = "elasticsearch"
	TargetMongoDB       Target = "mongodb"
)

// IsValid reports whether the target is one of the supported set.
func (t Target) IsValid() bool {
	switch t {
	case TargetSQL, TargetElasticsearch, TargetMongoDB:
		return true
	}
	return false
}

// maxCompileDepth bounds recursive descent on unvalidated input.
const maxCompileDepth = types.MaxDecodeDepth

// ExecutionContext carries the per-call compilation inputs.
type ExecutionContext struct {
	// Collection is the target table (sql) or collection/index name.
	Collection string
	// FieldMap remaps tree field names to storage column names before the
	// allow-list check.
	FieldMap map[string]string
	// Parameters holds free-form target options (e.g. "size", "from" for
	// the document-search target).
	Parameters map[string]any
}

// mapField applies the field remapping, passing unmapped names through.
func (ec ExecutionContext) mapField(field string) string {
	if mapped, ok := ec.FieldMap[field]; ok {
		return mapped
	}
	return field
}

// SQLQuery is the relational compilation result.
type SQLQuery struct {
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters"`
}

// ElasticQuery is the document-search compilation result.
type ElasticQuery struct {
	Query map[string]any `json:"query"`
	Size  int            `json:"size"`
	From  int            `json:"from"`
}

// Metadata accompanies every compiled query.
type Metadata struct {
	Complexity        int      `json:"complexity"`
	IndexHints        []string `json:"indexHints"`
	OptimizationNotes []string `json:"optimizationNotes"`
}

// SearchQuery is the compilation envelope. Exactly one of SQL,
// Elasticsearch, and MongoDB is populated, selected by target.
type SearchQuery struct {
	SQL           *SQLQuery     `json:"sql,omitempty"`
	Elasticsearch *ElasticQuery `json:"elasticsearch,omitempty"`
	MongoDB       bson.M        `json:"mongodb,omitempty"`
	Metadata      Metadata      `json:"metadata"`
}

// Compiler holds the static identifier allow-lists.
type Compiler struct {
	allowFields map[string]bool
	allowTables map[string]bool
}

// New creates a compiler gated on the given field and table allow-lists.
func New(fields, tables []string) *Compiler {
	c := &Compiler{
		allowFields: make(map[string]bool, len(fields)),
		allowTables: make(map[string]bool, len(tables)),
	}
	for _, f := range fields {
		c.allowFields[f] = true
	}
	for _, t := range tables {
		c.allowTables[t] = true
	}
	return c
}

// Build compiles the tree for the selected target and fills the shared
// metadata. OptimizationNotes is left for the orchestrator, which knows
// whether and how the tree was rewritten.
func (c *Compiler) Build(root types.Node, target Target, ectx ExecutionContext) (*SearchQuery, error) {
	out := &SearchQuery{
		Metadata: Metadata{
			Complexity:        rules.Score(root, rules.DefaultWeights()),
			IndexHints:        rules.IndexHints(root),
			OptimizationNotes: []string{},
		},
	}

	switch target {
	case TargetSQL:
		q, err := c.buildSQL(root, ectx)
		if err != nil {
			return nil, err
		}
		out.SQL = q
	case TargetElasticsearch:
		q, err := buildElastic(root, ectx)
		if err != nil {
			return nil, err
		}
		out.Elasticsearch = q
	case TargetMongoDB:
		q, err := buildMongo(root, ectx)
		if err != nil {
			return nil, err
		}
		out.MongoDB = q
	default:
		return nil, types.ErrUnknownTarget
	}

	return out, nil
}

// checkField gates a (remapped) field name on the allow-list.
func (c *Compiler) checkField(name string) error {
	if !c.allowFields[name] {
		return &types.IdentifierError{Identifier: name, Err: types.ErrInvalidIdentifier}
	}
	return nil
}

// checkTable gates a table name on the allow-list.
func (c *Compiler) checkTable(name string) error {
	if !c.allowTables[name] {
		return &types.IdentifierError{Identifier: name, Err: types.ErrInvalidIdentifier}
	}
	return nil
}
