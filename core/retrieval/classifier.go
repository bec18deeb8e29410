package retrieval

import (
	"strings"

	"github.com/siherrmann/graphrag/model"
)

// relationalTriggers mark a query as asking about connections between
// entities rather than free-text content.
var relationalTriggers = []string{
	"who",
	"relationship",
	"connect",
	"between",
	"how is",
	"related",
	"what is the link",
}

// ClassifyQuery labels a query as relational or semantic. The label is
// advisory; both search paths always run.
func ClassifyQuery(query string) model.QueryType {
	lowered := strings.ToLower(query)
	for _, trigger := range relationalTriggers {
		if strings.Contains(lowered, trigger) {
			return model.QueryTypeRelational
		}
	}
	return model.QueryTypeSemantic
}
