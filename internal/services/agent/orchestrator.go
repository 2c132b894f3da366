// Package agent runs the bounded investigation loop: the reasoning service
// proposes tool calls, the orchestrator executes them against the registry
// and feeds results back until the service produces a final report.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/caselens/caselens/internal/integrations/reasoner"
	"github.com/caselens/caselens/internal/tools"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrIterationLimit marks an investigation that hit the iteration cap
// before the reasoning service produced a final report.
var ErrIterationLimit = errors.New("iteration limit reached without a final report")

// Loop states, logged on every transition.
type State string

const (
	StateAwaitingModel  State = "awaiting_model"
	StateExecutingTools State = "executing_tools"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

const (
	DefaultMaxIterations    = 20
	DefaultResultCharBudget = 30000

	truncationMarker = "\n... [truncated]"
)

// ToolExecutor is the slice of the registry the loop needs.
type ToolExecutor interface {
	Tools() []*tools.Tool
	Dispatch(ctx context.Context, name string, args map[string]any) (string, error)
}

// RateLimiter throttles reasoner calls. Allow reports whether one more call
// fits in the window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Config struct {
	MaxIterations     int
	ResultCharBudget  int
	Limiter           RateLimiter // optional
	RequestsPerMinute int
	Logger            *slog.Logger
}

type Orchestrator struct {
	reasoner reasoner.Client
	executor ToolExecutor
	cfg      Config
	log      *slog.Logger
}

func New(rc reasoner.Client, executor ToolExecutor, cfg Config) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ResultCharBudget <= 0 {
		cfg.ResultCharBudget = DefaultResultCharBudget
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{reasoner: rc, executor: executor, cfg: cfg, log: cfg.Logger}
}

// Investigate runs the loop for one complaint and returns the final report
// text. Tool failures are contained as error payloads the reasoning service
// can read; reasoner failures and context cancellation abort the
// investigation.
func (o *Orchestrator) Investigate(ctx context.Context, complaint string) (string, error) {
	id := uuid.NewString()
	log := o.log.With("investigation", id)

	decls := o.toolDecls()
	turns := []reasoner.Turn{
		{Role: reasoner.RoleSystem, Text: systemPrompt},
		{Role: reasoner.RoleUser, Text: seedMessage(complaint)},
	}

	log.Info("investigation started", "tools", len(decls), "max_iterations", o.cfg.MaxIterations)

	for iteration := 1; iteration <= o.cfg.MaxIterations; iteration++ {
		o.transition(log, iteration, StateAwaitingModel)

		if err := o.waitForSlot(ctx, log); err != nil {
			o.transition(log, iteration, StateFailed)
			return "", err
		}

		reply, err := o.reasoner.Generate(ctx, turns, decls)
		if err != nil {
			o.transition(log, iteration, StateFailed)
			return "", errors.Wrap(err, "reasoner")
		}

		turns = append(turns, reasoner.Turn{
			Role:      reasoner.RoleModel,
			Text:      reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		if len(reply.ToolCalls) == 0 {
			o.transition(log, iteration, StateDone)
			return reply.Text, nil
		}

		o.transition(log, iteration, StateExecutingTools)
		results, err := o.executeBatch(ctx, log, reply.ToolCalls)
		if err != nil {
			o.transition(log, iteration, StateFailed)
			return "", err
		}
		turns = append(turns, reasoner.Turn{
			Role:        reasoner.RoleTool,
			ToolResults: results,
		})
	}

	o.transition(log, o.cfg.MaxIterations, StateFailed)
	return "", ErrIterationLimit
}

// executeBatch runs one iteration's tool calls concurrently and returns the
// results in request order. A failing tool becomes an error payload, never
// an aborted batch; only context cancellation stops it.
func (o *Orchestrator) executeBatch(ctx context.Context, log *slog.Logger, calls []reasoner.ToolCall) ([]reasoner.ToolResult, error) {
	results := make([]reasoner.ToolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			payload, err := o.executor.Dispatch(gctx, call.Name, call.Args)
			if err != nil {
				// Cancellation aborts the batch; tool failures are contained.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("tool call failed", "tool", call.Name, "err", err)
				payload = errorPayload(err)
			} else {
				log.Info("tool call ok", "tool", call.Name, "chars", len(payload))
			}
			results[i] = reasoner.ToolResult{
				Name:    call.Name,
				Payload: o.truncate(payload),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) transition(log *slog.Logger, iteration int, s State) {
	log.Info("state", "iteration", iteration, "state", string(s))
}

func (o *Orchestrator) waitForSlot(ctx context.Context, log *slog.Logger) error {
	if o.cfg.Limiter == nil || o.cfg.RequestsPerMinute <= 0 {
		return nil
	}
	for {
		ok, n, err := o.cfg.Limiter.Allow(ctx, "rl:reasoner", int64(o.cfg.RequestsPerMinute), time.Minute)
		if err != nil {
			// Degrade to unthrottled rather than blocking the investigation.
			log.Warn("rate limiter unavailable", "err", err)
			return nil
		}
		if ok {
			return nil
		}
		log.Info("reasoner rate limited, waiting", "count", n)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// truncate caps a tool payload at the configured budget, appending a marker
// so the reasoning service knows data was cut.
func (o *Orchestrator) truncate(payload string) string {
	if len(payload) <= o.cfg.ResultCharBudget {
		return payload
	}
	return payload[:o.cfg.ResultCharBudget] + truncationMarker
}

func errorPayload(err error) string {
	b, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return `{"error":"tool execution failed"}`
	}
	return string(b)
}

func (o *Orchestrator) toolDecls() []reasoner.ToolDecl {
	catalog := o.executor.Tools()
	decls := make([]reasoner.ToolDecl, 0, len(catalog))
	for _, t := range catalog {
		decls = append(decls, reasoner.ToolDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return decls
}

func seedMessage(complaint string) string {
	return "A customer has filed the following complaint. Investigate it thoroughly " +
		"using the available tools and produce a comprehensive correlation report.\n\n" +
		"**Customer Complaint:**\n" + complaint
}
