// Package llm provides chat-completion clients used for keyword
// extraction and generation-prompt building.
package llm

import "context"

// Chat is the minimal completion surface the pipeline needs. Complete
// returns free text; CompleteJSON asks the backend for a JSON object
// response.
type Chat interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
	CompleteJSON(ctx context.Context, model, system, user string) (string, error)
}
