package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleanly/glean/internal/adapters/driven/storage/memory"
	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/index"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService. Each distinct
// text gets its own orthogonal unit vector, so only identical texts
// (or texts pre-seeded with the same vector) score as similar.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	next    int
	calls   int
	err     error
}

const mockDims = 32

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	vec := make([]float32, mockDims)
	vec[m.next%mockDims] = 1
	m.next++
	m.vectors[text] = vec
	return vec, nil
}

func (m *mockEmbedder) Dimensions() int            { return mockDims }
func (m *mockEmbedder) ModelName() string          { return "mock-embedder" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// seedSameVector makes two texts embed identically, simulating the
// same material re-photographed.
func (m *mockEmbedder) seedSameVector(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec := make([]float32, mockDims)
	vec[m.next%mockDims] = 1
	m.next++
	for _, text := range texts {
		m.vectors[text] = vec
	}
}

// seedNearVectors makes two texts embed with the given cosine
// similarity, for pairs that should relate without being duplicates.
func (m *mockEmbedder) seedNearVectors(a, b string, cosine float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, j := m.next%mockDims, (m.next+1)%mockDims
	m.next += 2

	va := make([]float32, mockDims)
	va[i] = 1
	vb := make([]float32, mockDims)
	vb[i] = float32(cosine)
	vb[j] = float32(math.Sqrt(1 - cosine*cosine))

	m.vectors[a] = va
	m.vectors[b] = vb
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// pipelineFixture wires an orchestrator over in-memory collaborators.
type pipelineFixture struct {
	orch       *Orchestrator
	classifier *mockClassifier
	embedder   *mockEmbedder
	fragments  *memory.FragmentStore
	processed  *memory.ProcessedStore
	writer     *memory.DocumentWriter
}

func newPipelineFixture(classifier *mockClassifier) *pipelineFixture {
	embedder := newMockEmbedder()
	fragments := memory.NewFragmentStore()
	processed := memory.NewProcessedStore()
	writer := memory.NewDocumentWriter()
	settings := domain.DefaultPipelineSettings()
	settings.Workers = 2
	settings.RetryBackoff = time.Millisecond

	orch := NewOrchestrator(
		NewClassifyService(classifier, 0),
		index.NewMemory(embedder, nil),
		fragments,
		processed,
		writer,
		settings,
	)
	return &pipelineFixture{
		orch:       orch,
		classifier: classifier,
		embedder:   embedder,
		fragments:  fragments,
		processed:  processed,
		writer:     writer,
	}
}

func questionResponse(subject string) driven.RawClassification {
	return driven.RawClassification{
		driven.RawFieldKind:               "wrong_question",
		driven.RawFieldConfidence:         0.8,
		driven.RawFieldSubject:            subject,
		driven.RawFieldContentType:        "Practice Problem",
		driven.RawFieldKeyConcepts:        []any{"denominator"},
		driven.RawFieldMistakeExplanation: "Added denominators directly",
		driven.RawFieldCorrectApproach:    "Find a common denominator first",
	}
}

// --- Tests ---

func TestProcessBatch_SavesAndSynthesizes(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})

	report, err := fix.orch.ProcessBatch(context.Background(), []domain.Fragment{
		testFragment("img-1", "Photosynthesis converts light energy"),
		testFragment("img-2", "Chlorophyll absorbs red wavelengths"),
	})

	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, 2, report.Count(domain.OutcomeSaved))
	for _, item := range report.Items {
		assert.Equal(t, domain.StateSynthesizedAndSaved, item.State)
	}

	fragments, err := fix.fragments.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, fragments, 2)
	assert.Equal(t, 1, fix.writer.Len(), "one document per subject group")
	_, ok := fix.writer.Get("Science - General")
	assert.True(t, ok, "unlinked notes land in the residual group")
}

func TestProcessBatch_SecondRunIsIdempotent(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})
	batch := []domain.Fragment{
		testFragment("img-1", "Photosynthesis converts light energy"),
		testFragment("img-2", "Chlorophyll absorbs red wavelengths"),
	}

	first, err := fix.orch.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 2, first.Count(domain.OutcomeSaved))
	firstDoc, ok := fix.writer.Get("Science - General")
	require.True(t, ok)

	classifierCalls := fix.classifier.callCount()
	embedderCalls := fix.embedder.callCount()

	second, err := fix.orch.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, second.SkippedCount())
	assert.Equal(t, classifierCalls, fix.classifier.callCount(), "settled items make no collaborator calls")
	assert.Equal(t, embedderCalls, fix.embedder.callCount())

	secondDoc, _ := fix.writer.Get("Science - General")
	assert.Equal(t, firstDoc.Content, secondDoc.Content, "skipped run leaves documents untouched")
}

func TestProcessOne_UnclassifiedSettlesWithoutLinking(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: map[string]any{
		"classification": "unknown",
		"confidence":     0.0,
	}})

	fragment := testFragment("img-1", "illegible scrawl on graph paper")
	result, err := fix.orch.ProcessOne(context.Background(), fragment)

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnclassified, result.Outcome)
	assert.Zero(t, fix.writer.Len(), "unclassified material synthesizes nothing")

	entry, err := fix.processed.Get(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnclassified, entry.Outcome)

	// Settled: same content is not reclassified.
	calls := fix.classifier.callCount()
	result, err = fix.orch.ProcessOne(context.Background(), fragment)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, calls, fix.classifier.callCount())
}

func TestProcessOne_ChangedContentReenters(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})

	_, err := fix.orch.ProcessOne(context.Background(), testFragment("img-1", "first capture"))
	require.NoError(t, err)
	calls := fix.classifier.callCount()

	result, err := fix.orch.ProcessOne(context.Background(), testFragment("img-1", "corrected capture"))
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Greater(t, fix.classifier.callCount(), calls, "changed content is reclassified")
}

func TestProcessOne_NearDuplicateSupersedes(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})
	fix.embedder.seedSameVector(
		"Photosynthesis converts light energy",
		"Photosynthesis converts light  energy", // same page, second photo
	)

	_, err := fix.orch.ProcessOne(context.Background(),
		testFragment("img-1", "Photosynthesis converts light energy"))
	require.NoError(t, err)
	calls := fix.classifier.callCount()

	result, err := fix.orch.ProcessOne(context.Background(),
		testFragment("img-2", "Photosynthesis converts light  energy"))
	require.NoError(t, err)

	assert.Equal(t, "img-1", result.SupersededID)
	assert.Equal(t, domain.OutcomeSaved, result.Outcome)
	assert.Equal(t, calls, fix.classifier.callCount(), "duplicate adopts the prior classification")

	// The old record is retired everywhere.
	_, err = fix.fragments.Get(context.Background(), "img-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	entry, err := fix.processed.Get(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuperseded, entry.Outcome)

	adopted, err := fix.fragments.Get(context.Background(), "img-2")
	require.NoError(t, err)
	assert.Equal(t, domain.KindNote, adopted.Kind)
	assert.Equal(t, "Science", adopted.Subject)
}

func TestProcessBatch_SameBatchNearDuplicatesCollapse(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})
	fix.embedder.seedSameVector(
		"Photosynthesis converts light energy",
		"Photosynthesis converts light  energy", // same page, second photo
	)

	// Both captures arrive in the same batch, so neither has settled
	// when the other starts.
	report, err := fix.orch.ProcessBatch(context.Background(), []domain.Fragment{
		testFragment("img-1", "Photosynthesis converts light energy"),
		testFragment("img-2", "Photosynthesis converts light  energy"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, fix.classifier.callCount(), "only one of the pair reaches the collaborator")
	assert.Equal(t, 1, report.Count(domain.OutcomeSaved))
	assert.Equal(t, 1, report.Count(domain.OutcomeSuperseded))

	superseding := 0
	for _, item := range report.Items {
		if item.SupersededID != "" {
			superseding++
		}
	}
	assert.Equal(t, 1, superseding, "exactly one capture supersedes the other")

	fragments, err := fix.fragments.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, fragments, 1, "one record survives for re-photographed material")
	assert.Equal(t, 1, fix.orch.index.Len())
}

// captureStateWriter observes item state at render time.
type captureStateWriter struct {
	capture func()
}

func (w *captureStateWriter) Write(context.Context, domain.Document) error {
	w.capture()
	return nil
}

func TestFinishSubjects_MarksLinkedAndGroupedBeforeRender(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})

	outcomes := []itemOutcome{
		fix.orch.processItem(context.Background(),
			testFragment("img-1", "Photosynthesis converts light energy")),
	}
	require.True(t, outcomes[0].pending)
	require.Equal(t, domain.StateIndexed, outcomes[0].result.State)

	var stateAtRender domain.ItemState
	fix.orch.writer = &captureStateWriter{capture: func() {
		stateAtRender = outcomes[0].result.State
	}}

	fix.orch.finishSubjects(context.Background(), outcomes)

	assert.Equal(t, domain.StateLinkedAndGrouped, stateAtRender,
		"items are linked and grouped before any document is written")
	assert.Equal(t, domain.StateSynthesizedAndSaved, outcomes[0].result.State)
	assert.Equal(t, domain.OutcomeSaved, outcomes[0].result.Outcome)
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	classifier := &mockClassifier{
		defaultResp: noteResponse("Science"),
		errs: map[string]error{
			"broken item": &domain.ClassificationError{Retryable: false, Err: assert.AnError},
		},
	}
	fix := newPipelineFixture(classifier)

	report, err := fix.orch.ProcessBatch(context.Background(), []domain.Fragment{
		testFragment("img-1", "broken item"),
		testFragment("img-2", "Photosynthesis converts light energy"),
	})

	require.NoError(t, err, "item failures never abort the run")
	assert.Equal(t, 1, report.Count(domain.OutcomeFailed))
	assert.Equal(t, 1, report.Count(domain.OutcomeSaved))

	entry, err := fix.processed.Get(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, entry.Outcome)
	assert.NotEmpty(t, entry.Error)
}

func TestProcessOne_FailedItemReentersNextRun(t *testing.T) {
	classifier := &mockClassifier{
		defaultResp: noteResponse("Science"),
		errs: map[string]error{
			"flaky item": &domain.ClassificationError{Retryable: false, Err: assert.AnError},
		},
	}
	fix := newPipelineFixture(classifier)
	fragment := testFragment("img-1", "flaky item")

	result, err := fix.orch.ProcessOne(context.Background(), fragment)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)

	// The collaborator recovers; the unchanged item is retried
	// because failed is not a settled outcome.
	classifier.mu.Lock()
	delete(classifier.errs, "flaky item")
	classifier.mu.Unlock()

	result, err = fix.orch.ProcessOne(context.Background(), fragment)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, domain.OutcomeSaved, result.Outcome)
}

func TestProcessOne_RetryableFailureIsRetried(t *testing.T) {
	classifier := &mockClassifier{
		defaultResp: noteResponse("Science"),
		failFirst:   2,
	}
	fix := newPipelineFixture(classifier)

	result, err := fix.orch.ProcessOne(context.Background(),
		testFragment("img-1", "Photosynthesis converts light energy"))

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSaved, result.Outcome)
	assert.Equal(t, 3, fix.classifier.callCount(), "two transient failures then success")
}

func TestProcessOne_EmptyTextFailsWithoutCollaboratorCall(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})

	result, err := fix.orch.ProcessOne(context.Background(), testFragment("img-1", "   "))

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	assert.Zero(t, fix.classifier.callCount())
}

func TestProcessBatch_LinkedPairRendersCrossReferences(t *testing.T) {
	noteText := "A fraction needs a common denominator before adding"
	questionText := "Wrong: added the denominator values 1/2 + 1/3 = 2/5"

	noteResp := noteResponse("Math")
	noteResp[driven.RawFieldKeyConcepts] = []any{"denominator"}
	mock := &mockClassifier{responses: map[string]driven.RawClassification{
		noteText:     noteResp,
		questionText: questionResponse("Math"),
	}}
	fix := newPipelineFixture(mock)
	// Semantically close but below the duplicate threshold, so the
	// pair links instead of superseding.
	fix.embedder.seedNearVectors(noteText, questionText, 0.9)

	report, err := fix.orch.ProcessBatch(context.Background(), []domain.Fragment{
		testFragment("img-note", noteText),
		testFragment("img-q", questionText),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(domain.OutcomeSaved))

	require.Equal(t, 1, fix.writer.Len())
	doc, ok := fix.writer.Get("Math - Denominator")
	require.True(t, ok, "the linked pair clusters under its dominant concept")
	assert.Contains(t, doc.Content, "Related wrong questions: img-q")
	assert.Contains(t, doc.Content, "Related notes: img-note")
}

func TestSearch_ReturnsStoredFragments(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})
	text := "Photosynthesis converts light energy"
	fix.embedder.seedSameVector(text, "photosynthesis query")

	_, err := fix.orch.ProcessOne(context.Background(), testFragment("img-1", text))
	require.NoError(t, err)

	results, err := fix.orch.Search(context.Background(), "photosynthesis query", 5)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "img-1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, domain.KindNote, results[0].Kind)
	assert.Equal(t, "Science", results[0].Subject)
	assert.Contains(t, results[0].Snippet, "Photosynthesis")
}

func TestSummary_CountsByOutcome(t *testing.T) {
	classifier := &mockClassifier{
		defaultResp: noteResponse("Science"),
		errs: map[string]error{
			"broken item": &domain.ClassificationError{Retryable: false, Err: assert.AnError},
		},
	}
	fix := newPipelineFixture(classifier)

	_, err := fix.orch.ProcessBatch(context.Background(), []domain.Fragment{
		testFragment("img-1", "Photosynthesis converts light energy"),
		testFragment("img-2", "broken item"),
	})
	require.NoError(t, err)

	summary, err := fix.orch.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.ByOutcome[domain.OutcomeSaved])
	assert.Equal(t, 1, summary.ByOutcome[domain.OutcomeFailed])
	assert.Equal(t, 1, summary.IndexSize)
}

func TestClear_RemovesEverything(t *testing.T) {
	fix := newPipelineFixture(&mockClassifier{defaultResp: noteResponse("Science")})
	_, err := fix.orch.ProcessOne(context.Background(),
		testFragment("img-1", "Photosynthesis converts light energy"))
	require.NoError(t, err)

	require.NoError(t, fix.orch.Clear(context.Background()))

	summary, err := fix.orch.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.IndexSize)

	fragments, err := fix.fragments.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fragments)
}
