package gateway

import (
	"context"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// Query selects the documents of a collection.
//
// Where is an optional JSONPath filter applied to each document, as if the
// document was the only element of an array. For instance
//
//	$[?(@.type == "expense")]
//
// selects expense transactions. An empty Where selects every document.
type Query struct {
	Collection string
	Where      string
}

// matcher compiles the query filter.
func (q Query) matcher() (func(Document) bool, error) {
	if q.Where == "" {
		return func(Document) bool { return true }, nil
	}
	eval, err := jsonpath.New(q.Where)
	if err != nil {
		return nil, fmt.Errorf("invalid query filter %q: %w", q.Where, err)
	}
	return func(doc Document) bool {
		v, err := eval(context.Background(), []any{map[string]any(doc.clone())})
		if err != nil {
			// jsonpath fails on missing keys, which is a non match.
			return false
		}
		// because jsonpath is never clear about wheter it returns a list of answers, or a single answer:
		switch v := v.(type) {
		case []any:
			return len(v) > 0
		case map[string]any:
			return len(v) > 0
		case bool:
			return v
		case nil:
			return false
		default:
			return true
		}
	}, nil
}
