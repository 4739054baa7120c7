// Package oracle provides the completion oracle used by variable extraction,
// template classification, and question generation. The oracle is a
// constructor-injected capability: callers hold a [Completer] and never a
// provider SDK client directly, so tests substitute fakes and no process-wide
// singleton exists.
//
// The default implementation wraps a cloudwego/eino chat model, sends a
// system + user message pair, and coerces the model's text output into a
// JSON object via the jsonx recovery ladder.
package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/veritaslegal/lexdraft-go/internal/jsonx"
	"github.com/veritaslegal/lexdraft-go/internal/retry"
)

// Completer is the completion oracle contract. CompleteJSON sends a system
// and user prompt to the model and returns the parsed JSON object from its
// response. Implementations must be safe to call from multiple goroutines.
type Completer interface {
	// CompleteJSON returns the JSON object recovered from the model response.
	// Fails with a wrapped [jsonx.ErrUnparsable] when no JSON can be located,
	// or a [*ProviderError] when the provider call itself fails.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error)
}

// ChatOracle implements Completer on top of an eino chat model with a retry
// policy applied around every generate call.
type ChatOracle struct {
	// model is the underlying chat model.
	model model.ToolCallingChatModel

	// policy is the retry policy for transient provider failures.
	policy retry.Policy
}

// NewChatOracle constructs a ChatOracle. If the policy has no retryable
// predicate, [IsTransient] is used so rate-limit/quota/timeout failures are
// retried and everything else fails fast.
func NewChatOracle(m model.ToolCallingChatModel, policy retry.Policy) (*ChatOracle, error) {
	if m == nil {
		return nil, fmt.Errorf("oracle: chat model must not be nil")
	}
	if policy.Retryable == nil {
		policy.Retryable = IsTransient
	}
	return &ChatOracle{model: m, policy: policy}, nil
}

// CompleteJSON sends the prompt pair to the chat model and recovers a JSON
// object from its response. Provider failures are classified and retried per
// the policy; parse failures are not retried — by the time the response is
// unparsable the provider has already answered, and a different answer is
// not owed to us.
func (o *ChatOracle) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	var content string
	err := o.policy.Do(ctx, func() error {
		resp, genErr := o.model.Generate(ctx, messages)
		if genErr != nil {
			return Classify("complete", genErr)
		}
		content = resp.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: completion failed: %w", err)
	}

	obj, err := jsonx.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	return obj, nil
}
