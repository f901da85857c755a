package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"reposummarizer/internal/contextbuild"
	"reposummarizer/internal/llm"
	llmclient "reposummarizer/internal/llmClient"
	"reposummarizer/internal/types"
	"reposummarizer/internal/util/jsonutil"
)

// MapReduce analyses each chunk independently with the Map model, then
// folds the partial analyses into one summary with the Reduce model.
type MapReduce struct {
	Map    llmclient.LLMClient
	Reduce llmclient.LLMClient
	// MapConcurrency <= 0 issues every map call at once.
	MapConcurrency int
	Logger         *log.Logger
}

func (m *MapReduce) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run tolerates individual map failures: a failed chunk is logged and left
// out of the reduce input. Only when every chunk fails is the run aborted,
// and then no reduce call is made.
func (m *MapReduce) Run(ctx context.Context, chunks []contextbuild.Chunk, treeAndReadme string) (types.SummaryResult, error) {
	n := len(chunks)
	observe(ctx, Event{Stage: StageIdle, Total: n})
	if n == 0 {
		observe(ctx, Event{Stage: StageFailed, Message: "no chunks"})
		return types.SummaryResult{}, newError(KindAllChunksFailed, "No chunks to analyse", nil)
	}

	m.logf("map step: %d chunks with %s", n, m.Map.Name())
	observe(ctx, Event{Stage: StageMapping, Total: n})
	var done atomic.Int32
	partials := runAll(ctx, n, m.MapConcurrency, func(ctx context.Context, i int) (types.PartialAnalysis, error) {
		p, err := m.mapChunk(ctx, i, chunks[i])
		observe(ctx, Event{Stage: StageMapping, Completed: int(done.Add(1)), Total: n})
		return p, err
	})

	ok := 0
	for i, r := range partials {
		if r.Err != nil {
			m.logf("map chunk %d/%d failed: %v", i+1, n, r.Err)
			continue
		}
		ok++
	}
	m.logf("map step complete: %d/%d chunks succeeded", ok, n)
	if ok == 0 {
		observe(ctx, Event{Stage: StageFailed, Message: "all map steps failed"})
		return types.SummaryResult{}, newError(KindAllChunksFailed,
			"LLM response error: all map steps failed, no partial analyses to reduce", partials[0].Err)
	}

	observe(ctx, Event{Stage: StageReducing, Completed: ok, Total: n})
	m.logf("reduce step with %s", m.Reduce.Name())
	raw, err := m.Reduce.GenerateJSON(llm.WithWorker(ctx, "reduce"), reduceSystemPrompt, reduceInput(treeAndReadme, partials))
	if err != nil {
		observe(ctx, Event{Stage: StageFailed, Message: err.Error()})
		return types.SummaryResult{}, llmError(err)
	}
	res, err := decodeSummary(raw)
	if err != nil {
		observe(ctx, Event{Stage: StageFailed, Message: err.Error()})
		return types.SummaryResult{}, err
	}
	observe(ctx, Event{Stage: StageDone, Completed: ok, Total: n})
	return res, nil
}

func (m *MapReduce) mapChunk(ctx context.Context, i int, c contextbuild.Chunk) (types.PartialAnalysis, error) {
	raw, err := m.Map.GenerateJSON(llm.WithWorker(ctx, fmt.Sprintf("map-%d", i+1)), mapSystemPrompt, c.Text)
	if err != nil {
		return types.PartialAnalysis{}, err
	}
	var p types.PartialAnalysis
	if err := jsonutil.UnmarshalRaw(raw, &p); err != nil {
		return types.PartialAnalysis{}, fmt.Errorf("decode partial analysis: %w", err)
	}
	return p, nil
}

// reduceInput is the tree listing and README followed by one section per
// successful chunk. Sections keep their chunk number, so gaps show where a
// chunk failed.
func reduceInput(treeAndReadme string, partials []taskResult[types.PartialAnalysis]) string {
	var sections []string
	for i, r := range partials {
		if r.Err != nil {
			continue
		}
		sections = append(sections, formatPartial(i+1, r.Value))
	}
	return treeAndReadme + "\n\n## Partial Analyses\n\n" + strings.Join(sections, "\n")
}

func formatPartial(n int, p types.PartialAnalysis) string {
	purpose := strings.TrimSpace(p.Purpose)
	if purpose == "" {
		purpose = "N/A"
	}
	notes := strings.TrimSpace(p.StructureNotes)
	if notes == "" {
		notes = "N/A"
	}
	return fmt.Sprintf("### Partial Analysis %d\nPurpose: %s\nTechnologies: %s\nStructure notes: %s\n",
		n, purpose, strings.Join(normalizeTechnologies(p.Technologies), ", "), notes)
}
