// Package fake scripts reasoner replies for tests and offline runs.
package fake

import (
	"context"

	"github.com/caselens/caselens/internal/integrations/reasoner"
)

// FakeClient replays a fixed sequence of replies. Once the script runs out
// it keeps returning the final reply, so loops always terminate.
type FakeClient struct {
	Replies []reasoner.Reply
	Errs    []error

	Calls     int
	SeenTurns [][]reasoner.Turn
	SeenTools [][]reasoner.ToolDecl
}

func New(replies ...reasoner.Reply) *FakeClient {
	return &FakeClient{Replies: replies}
}

func (f *FakeClient) Generate(ctx context.Context, turns []reasoner.Turn, tools []reasoner.ToolDecl) (reasoner.Reply, error) {
	i := f.Calls
	f.Calls++
	f.SeenTurns = append(f.SeenTurns, turns)
	f.SeenTools = append(f.SeenTools, tools)

	if i < len(f.Errs) && f.Errs[i] != nil {
		return reasoner.Reply{}, f.Errs[i]
	}
	if len(f.Replies) == 0 {
		return reasoner.Reply{Text: "no findings"}, nil
	}
	if i >= len(f.Replies) {
		i = len(f.Replies) - 1
	}
	return f.Replies[i], nil
}
