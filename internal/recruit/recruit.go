// Package recruit holds the domain processors for the recruiting queues:
// CV analysis, interview question generation, interview analysis and
// job-requirements generation. Each processor decodes its payload, drives
// one AI call through the retry executor and encodes its typed result.
package recruit

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/seen-ai/talentq"
	"github.com/seen-ai/talentq/internal/ai"
)

// Queue names served by this package.
const (
	QueueCVAnalysis         = "cv-analysis"
	QueueQuestionGeneration = "question-generation"
	QueueInterviewAnalysis  = "interview-analysis"
	QueueJobRequirements    = "job-requirements"
)

// Deps bundles the outbound dependencies shared by every processor.
// Processors are constructed with their dependencies wired ahead of time;
// nothing is resolved lazily at process time.
type Deps struct {
	AI    *ai.Client
	Retry *talentq.RetryExecutor
	Log   talentq.Logger
}

// completeJSON runs one chat completion under the retry policy and decodes
// the model's JSON answer into out.
func (d *Deps) completeJSON(ctx context.Context, operation, system, user string, out any) error {
	var content string
	err := d.Retry.Do(ctx, operation, func(ctx context.Context) error {
		var cerr error
		content, cerr = d.AI.Complete(ctx, []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		}, true)
		return cerr
	})
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal([]byte(content), out); err != nil {
		return talentq.Permanent(fmt.Errorf("%s: malformed model response: %w", operation, err))
	}
	return nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func decodePayload(data []byte, v any) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return talentq.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	return nil
}
