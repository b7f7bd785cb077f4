package recruit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seen-ai/talentq"
)

// InterviewAnalysisRequest is the payload of an interview-analysis job.
type InterviewAnalysisRequest struct {
	Transcript string   `json:"transcript"`
	Questions  []string `json:"questions,omitempty"`
	UserID     string   `json:"userId"`
}

// AnswerScore is the evaluation of one answered question.
type AnswerScore struct {
	Question string `json:"question"`
	Score    int    `json:"score"`
	Notes    string `json:"notes,omitempty"`
}

// InterviewAnalysisResult is the terminal result of an interview-analysis job.
type InterviewAnalysisResult struct {
	OverallScore   int           `json:"overallScore"`
	Answers        []AnswerScore `json:"answers"`
	Recommendation string        `json:"recommendation"`
}

// InterviewAnalyzer scores a recorded interview transcript.
type InterviewAnalyzer struct {
	deps *Deps
}

// NewInterviewAnalyzer creates the interview-analysis processor.
func NewInterviewAnalyzer(deps *Deps) *InterviewAnalyzer {
	return &InterviewAnalyzer{deps: deps}
}

const interviewSystemPrompt = `You are evaluating an interview transcript. Score each answered
question 0-100 and give a hire/no-hire recommendation. Respond with a JSON object:
{"overallScore": 0-100, "answers": [{"question": "...", "score": 0-100, "notes": "..."}], "recommendation": "..."}`

// Process analyzes the transcript and returns the encoded result.
func (a *InterviewAnalyzer) Process(ctx context.Context, job *talentq.Job) ([]byte, error) {
	var req InterviewAnalysisRequest
	if err := decodePayload(job.Data, &req); err != nil {
		return nil, err
	}
	if req.Transcript == "" {
		return nil, talentq.Permanent(fmt.Errorf("interview-analysis: transcript is required"))
	}
	talentq.SetProgress(ctx, 10)

	user := fmt.Sprintf("Questions asked: %v\n\nTranscript:\n%s", req.Questions, req.Transcript)
	var res InterviewAnalysisResult
	if err := a.deps.completeJSON(ctx, "interview-analysis", interviewSystemPrompt, user, &res); err != nil {
		return nil, err
	}
	talentq.SetProgress(ctx, 90)

	res.OverallScore = clampScore(res.OverallScore)
	for i := range res.Answers {
		res.Answers[i].Score = clampScore(res.Answers[i].Score)
	}
	return json.Marshal(&res)
}

// EstimateProcessingTime buckets by transcript length: ~1s per 2KB,
// clamped to [5s, 90s]. Transcripts run long.
func (a *InterviewAnalyzer) EstimateProcessingTime(data []byte) time.Duration {
	var req InterviewAnalysisRequest
	_ = json.Unmarshal(data, &req)
	est := time.Duration(len(req.Transcript)/2048+5) * time.Second
	return talentq.ClampEstimate(est, 5*time.Second, 90*time.Second)
}
