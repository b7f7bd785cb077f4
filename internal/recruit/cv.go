package recruit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seen-ai/talentq"
)

// CVAnalysisRequest is the payload of a cv-analysis job.
type CVAnalysisRequest struct {
	CVText          string `json:"cvText"`
	JobRequirements string `json:"jobRequirements"`
	UserID          string `json:"userId"`
}

// CVAnalysisResult is the terminal result of a cv-analysis job.
type CVAnalysisResult struct {
	Score           int      `json:"score"`
	MatchPercentage int      `json:"matchPercentage"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Summary         string   `json:"summary"`
}

// CVAnalyzer scores a CV against job requirements.
type CVAnalyzer struct {
	deps *Deps
}

// NewCVAnalyzer creates the cv-analysis processor.
func NewCVAnalyzer(deps *Deps) *CVAnalyzer {
	return &CVAnalyzer{deps: deps}
}

const cvSystemPrompt = `You are a technical recruiter. Score the candidate CV against the
job requirements. Respond with a JSON object:
{"score": 0-100, "matchPercentage": 0-100, "strengths": [...], "gaps": [...], "summary": "..."}`

// Process analyzes the CV and returns the encoded CVAnalysisResult.
func (a *CVAnalyzer) Process(ctx context.Context, job *talentq.Job) ([]byte, error) {
	var req CVAnalysisRequest
	if err := decodePayload(job.Data, &req); err != nil {
		return nil, err
	}
	if req.CVText == "" || req.JobRequirements == "" {
		return nil, talentq.Permanent(fmt.Errorf("cv-analysis: cvText and jobRequirements are required"))
	}
	talentq.SetProgress(ctx, 10)

	user := fmt.Sprintf("Job requirements:\n%s\n\nCV:\n%s", req.JobRequirements, req.CVText)
	var res CVAnalysisResult
	if err := a.deps.completeJSON(ctx, "cv-analysis", cvSystemPrompt, user, &res); err != nil {
		return nil, err
	}
	talentq.SetProgress(ctx, 90)

	res.Score = clampScore(res.Score)
	res.MatchPercentage = clampScore(res.MatchPercentage)
	return json.Marshal(&res)
}

// EstimateProcessingTime buckets by CV length: ~1s per KB of text,
// clamped to [3s, 45s].
func (a *CVAnalyzer) EstimateProcessingTime(data []byte) time.Duration {
	var req CVAnalysisRequest
	_ = json.Unmarshal(data, &req)
	est := time.Duration(len(req.CVText)/1024+3) * time.Second
	return talentq.ClampEstimate(est, 3*time.Second, 45*time.Second)
}
