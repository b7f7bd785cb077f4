package recruit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seen-ai/talentq"
	"github.com/seen-ai/talentq/internal/ai"
)

// fakeModel serves canned chat completions, optionally failing the first n
// requests with the given status.
type fakeModel struct {
	content   string
	failFirst int32
	failCode  int
	hits      atomic.Int32
}

func (f *fakeModel) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := f.hits.Add(1)
		if n <= atomic.LoadInt32(&f.failFirst) {
			http.Error(w, "synthetic failure", f.failCode)
			return
		}
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": f.content}},
			},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

func newDeps(t *testing.T, model *fakeModel) *Deps {
	t.Helper()
	srv := httptest.NewServer(model.handler())
	t.Cleanup(srv.Close)
	return &Deps{
		AI: ai.NewClient(srv.URL, "test-key", "test-model", time.Second),
		Retry: talentq.NewRetryExecutor(talentq.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Multiplier:  2,
		}, talentq.NopLogger{}),
		Log: talentq.NopLogger{},
	}
}

func jobWith(t *testing.T, v any) *talentq.Job {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return &talentq.Job{ID: "j1", Data: data}
}

func TestCVAnalyzer_Process(t *testing.T) {
	model := &fakeModel{content: `{"score":120,"matchPercentage":-5,"strengths":["go"],"gaps":["k8s"],"summary":"solid"}`}
	a := NewCVAnalyzer(newDeps(t, model))

	out, err := a.Process(context.Background(), jobWith(t, CVAnalysisRequest{
		CVText:          "Ten years building distributed systems in Go and operating Postgres",
		JobRequirements: "Senior backend engineer",
		UserID:          "u1",
	}))
	require.NoError(t, err)

	var res CVAnalysisResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, 100, res.Score, "scores outside 0-100 are clamped")
	require.Equal(t, 0, res.MatchPercentage)
	require.Equal(t, []string{"go"}, res.Strengths)
	require.Equal(t, "solid", res.Summary)
}

func TestCVAnalyzer_MissingFieldsPermanent(t *testing.T) {
	model := &fakeModel{content: `{}`}
	a := NewCVAnalyzer(newDeps(t, model))

	_, err := a.Process(context.Background(), jobWith(t, CVAnalysisRequest{UserID: "u1"}))
	require.Error(t, err)
	require.False(t, talentq.Retryable(err))
	require.Zero(t, model.hits.Load(), "validation failures never reach the model")
}

func TestCVAnalyzer_RetriesTransient(t *testing.T) {
	model := &fakeModel{
		content:   `{"score":70,"matchPercentage":55,"strengths":[],"gaps":[],"summary":"ok"}`,
		failFirst: 2,
		failCode:  http.StatusServiceUnavailable,
	}
	a := NewCVAnalyzer(newDeps(t, model))

	out, err := a.Process(context.Background(), jobWith(t, CVAnalysisRequest{
		CVText:          "short cv",
		JobRequirements: "reqs",
		UserID:          "u1",
	}))
	require.NoError(t, err)
	require.Equal(t, int32(3), model.hits.Load())

	var res CVAnalysisResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, 70, res.Score)
}

func TestCVAnalyzer_ClientErrorFailsFast(t *testing.T) {
	model := &fakeModel{failFirst: 100, failCode: http.StatusBadRequest}
	a := NewCVAnalyzer(newDeps(t, model))

	_, err := a.Process(context.Background(), jobWith(t, CVAnalysisRequest{
		CVText:          "cv",
		JobRequirements: "reqs",
	}))
	require.Error(t, err)
	require.Equal(t, int32(1), model.hits.Load(), "4xx must not consume retries")
}

func TestCVAnalyzer_MalformedModelResponsePermanent(t *testing.T) {
	model := &fakeModel{content: `this is not json`}
	a := NewCVAnalyzer(newDeps(t, model))

	_, err := a.Process(context.Background(), jobWith(t, CVAnalysisRequest{
		CVText:          "cv",
		JobRequirements: "reqs",
	}))
	require.Error(t, err)
	require.False(t, talentq.Retryable(err))
}

func TestCVAnalyzer_Estimate(t *testing.T) {
	a := NewCVAnalyzer(nil)

	small, _ := json.Marshal(CVAnalysisRequest{CVText: "tiny"})
	require.Equal(t, 3*time.Second, a.EstimateProcessingTime(small))

	big, _ := json.Marshal(CVAnalysisRequest{CVText: strings.Repeat("x", 1024*1024)})
	require.Equal(t, 45*time.Second, a.EstimateProcessingTime(big))

	// garbage input never panics and stays in range
	require.Equal(t, 3*time.Second, a.EstimateProcessingTime([]byte("not json")))
}

func TestQuestionGenerator_Process(t *testing.T) {
	model := &fakeModel{content: `{"questions":[{"text":"Explain goroutines","category":"concurrency","difficulty":3}]}`}
	g := NewQuestionGenerator(newDeps(t, model))

	out, err := g.Process(context.Background(), jobWith(t, QuestionRequest{
		JobDescription: "Senior Go engineer",
		Count:          5,
		UserID:         "u1",
	}))
	require.NoError(t, err)

	var res QuestionResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Len(t, res.Questions, 1)
	require.Equal(t, "concurrency", res.Questions[0].Category)
}

func TestQuestionGenerator_Estimate(t *testing.T) {
	g := NewQuestionGenerator(nil)

	few, _ := json.Marshal(QuestionRequest{Count: 3})
	require.Equal(t, 5*time.Second, g.EstimateProcessingTime(few))

	many, _ := json.Marshal(QuestionRequest{Count: 500})
	require.Equal(t, 30*time.Second, g.EstimateProcessingTime(many))

	// zero count falls back to the default of 10
	none, _ := json.Marshal(QuestionRequest{})
	require.Equal(t, 12*time.Second, g.EstimateProcessingTime(none))
}

func TestInterviewAnalyzer_Process(t *testing.T) {
	model := &fakeModel{content: `{"overallScore":82,"answers":[{"question":"q1","score":300}],"recommendation":"hire"}`}
	a := NewInterviewAnalyzer(newDeps(t, model))

	out, err := a.Process(context.Background(), jobWith(t, InterviewAnalysisRequest{
		Transcript: "Interviewer: ... Candidate: ...",
		Questions:  []string{"q1"},
		UserID:     "u1",
	}))
	require.NoError(t, err)

	var res InterviewAnalysisResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, 82, res.OverallScore)
	require.Equal(t, 100, res.Answers[0].Score)
	require.Equal(t, "hire", res.Recommendation)
}

func TestInterviewAnalyzer_EmptyTranscript(t *testing.T) {
	a := NewInterviewAnalyzer(newDeps(t, &fakeModel{content: `{}`}))
	_, err := a.Process(context.Background(), jobWith(t, InterviewAnalysisRequest{UserID: "u1"}))
	require.Error(t, err)
	require.False(t, talentq.Retryable(err))
}

func TestRequirementsGenerator_Process(t *testing.T) {
	model := &fakeModel{content: `{"title":"Backend Engineer","mustHave":["Go"],"niceToHave":["Rust"],"yearsOfExp":5,"responsibilities":["build services"]}`}
	g := NewRequirementsGenerator(newDeps(t, model))

	out, err := g.Process(context.Background(), jobWith(t, RequirementsRequest{
		RoleBrief: "We need someone to own our payments backend",
		Industry:  "fintech",
		UserID:    "u1",
	}))
	require.NoError(t, err)

	var res RequirementsResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, "Backend Engineer", res.Title)
	require.Equal(t, 5, res.YearsOfExp)
}

func TestEstimators_NeverOutOfRange(t *testing.T) {
	inputs := [][]byte{nil, []byte("{}"), []byte("garbage"), []byte(`{"cvText":""}`)}
	procs := []talentq.Processor{
		NewCVAnalyzer(nil),
		NewQuestionGenerator(nil),
		NewInterviewAnalyzer(nil),
		NewRequirementsGenerator(nil),
	}
	for _, p := range procs {
		for _, in := range inputs {
			d := p.EstimateProcessingTime(in)
			require.Greater(t, d, time.Duration(0))
			require.LessOrEqual(t, d, 90*time.Second)
		}
	}
}
