package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/graphrag/model"
)

// DegradedAnswer is returned when the language model is unreachable, so
// callers still get the retrieved context.
const DegradedAnswer = "The language model is unavailable. The retrieved context is attached to this answer."

// Generator turns a query and its retrieved context into an answer.
type Generator interface {
	Generate(ctx context.Context, query string, contextText string) (string, error)
}

// FormatContext renders a retrieval result as the prompt context: the ranked
// chunks first, then the graph as subject-[TYPE]-object lines.
func FormatContext(result *model.RetrievalResult) string {
	var builder strings.Builder

	if len(result.Chunks) > 0 {
		builder.WriteString("Context passages:\n")
		for i, chunk := range result.Chunks {
			fmt.Fprintf(&builder, "[%d] %s\n", i+1, chunk.Text)
		}
	}

	if len(result.Graph.Relationships) > 0 {
		names := make(map[string]string, len(result.Graph.Entities))
		for _, entity := range result.Graph.Entities {
			names[entity.ID.String()] = entity.Name
		}

		builder.WriteString("\nKnown relationships:\n")
		for _, edge := range result.Graph.Relationships {
			source := names[edge.SourceID.String()]
			target := names[edge.TargetID.String()]
			if source == "" || target == "" {
				continue
			}
			fmt.Fprintf(&builder, "- %s -[%s]-> %s\n", source, edge.Type, target)
		}
	}

	return builder.String()
}
