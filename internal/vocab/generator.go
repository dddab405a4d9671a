package vocab

import (
	"context"

	"vocab-go/internal/model"
)

// GenerateRequest describes the vocabulary a Generator should produce.
type GenerateRequest struct {
	Topic    string
	Language string
	Count    int
}

// Generator produces candidate vocabulary items, typically by asking an
// external content service. Its output is untrusted and goes through
// CourseService.ImportItems like any other input.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]model.VocabItem, error)
}
