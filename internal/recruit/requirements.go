package recruit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seen-ai/talentq"
)

// RequirementsRequest is the payload of a job-requirements job.
type RequirementsRequest struct {
	RoleBrief string `json:"roleBrief"`
	Industry  string `json:"industry,omitempty"`
	UserID    string `json:"userId"`
}

// RequirementsResult is the terminal result of a job-requirements job.
type RequirementsResult struct {
	Title          string   `json:"title"`
	MustHave       []string `json:"mustHave"`
	NiceToHave     []string `json:"niceToHave"`
	YearsOfExp     int      `json:"yearsOfExp"`
	Responsibility []string `json:"responsibilities"`
}

// RequirementsGenerator expands a short role brief into structured
// job requirements.
type RequirementsGenerator struct {
	deps *Deps
}

// NewRequirementsGenerator creates the job-requirements processor.
func NewRequirementsGenerator(deps *Deps) *RequirementsGenerator {
	return &RequirementsGenerator{deps: deps}
}

const requirementsSystemPrompt = `You turn a short role brief into structured job requirements.
Respond with a JSON object:
{"title": "...", "mustHave": [...], "niceToHave": [...], "yearsOfExp": n, "responsibilities": [...]}`

// Process expands the brief and returns the encoded result.
func (g *RequirementsGenerator) Process(ctx context.Context, job *talentq.Job) ([]byte, error) {
	var req RequirementsRequest
	if err := decodePayload(job.Data, &req); err != nil {
		return nil, err
	}
	if req.RoleBrief == "" {
		return nil, talentq.Permanent(fmt.Errorf("job-requirements: roleBrief is required"))
	}
	talentq.SetProgress(ctx, 10)

	user := fmt.Sprintf("Industry: %s\nRole brief:\n%s", orDefault(req.Industry, "general"), req.RoleBrief)
	var res RequirementsResult
	if err := g.deps.completeJSON(ctx, "job-requirements", requirementsSystemPrompt, user, &res); err != nil {
		return nil, err
	}
	talentq.SetProgress(ctx, 90)
	return json.Marshal(&res)
}

// EstimateProcessingTime is near-constant for briefs, clamped to [2s, 20s].
func (g *RequirementsGenerator) EstimateProcessingTime(data []byte) time.Duration {
	var req RequirementsRequest
	_ = json.Unmarshal(data, &req)
	est := time.Duration(len(req.RoleBrief)/512+2) * time.Second
	return talentq.ClampEstimate(est, 2*time.Second, 20*time.Second)
}
