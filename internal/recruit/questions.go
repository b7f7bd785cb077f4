package recruit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seen-ai/talentq"
)

// QuestionRequest is the payload of a question-generation job.
type QuestionRequest struct {
	JobDescription string `json:"jobDescription"`
	Count          int    `json:"count"`
	Seniority      string `json:"seniority,omitempty"`
	UserID         string `json:"userId"`
}

// Question is one generated interview question.
type Question struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	// Difficulty is 1 (screening) to 5 (deep expertise).
	Difficulty int `json:"difficulty"`
}

// QuestionResult is the terminal result of a question-generation job.
type QuestionResult struct {
	Questions []Question `json:"questions"`
}

// QuestionGenerator produces interview questions for a job description.
type QuestionGenerator struct {
	deps *Deps
}

// NewQuestionGenerator creates the question-generation processor.
func NewQuestionGenerator(deps *Deps) *QuestionGenerator {
	return &QuestionGenerator{deps: deps}
}

const questionSystemPrompt = `You are an interviewer designing questions for a role. Respond with a
JSON object: {"questions": [{"text": "...", "category": "...", "difficulty": 1-5}]}`

// Process generates the requested number of questions.
func (g *QuestionGenerator) Process(ctx context.Context, job *talentq.Job) ([]byte, error) {
	var req QuestionRequest
	if err := decodePayload(job.Data, &req); err != nil {
		return nil, err
	}
	if req.JobDescription == "" {
		return nil, talentq.Permanent(fmt.Errorf("question-generation: jobDescription is required"))
	}
	if req.Count <= 0 {
		req.Count = 10
	}
	talentq.SetProgress(ctx, 10)

	user := fmt.Sprintf("Generate %d questions (seniority: %s) for:\n%s",
		req.Count, orDefault(req.Seniority, "mid"), req.JobDescription)
	var res QuestionResult
	if err := g.deps.completeJSON(ctx, "question-generation", questionSystemPrompt, user, &res); err != nil {
		return nil, err
	}
	talentq.SetProgress(ctx, 90)
	return json.Marshal(&res)
}

// EstimateProcessingTime scales with the question count, clamped to [2s, 30s].
func (g *QuestionGenerator) EstimateProcessingTime(data []byte) time.Duration {
	var req QuestionRequest
	_ = json.Unmarshal(data, &req)
	n := req.Count
	if n <= 0 {
		n = 10
	}
	est := time.Duration(2+n) * time.Second
	return talentq.ClampEstimate(est, 2*time.Second, 30*time.Second)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
