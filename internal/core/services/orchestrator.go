package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
	"github.com/gleanly/glean/internal/core/ports/driving"
	"github.com/gleanly/glean/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Pipeline = (*Orchestrator)(nil)

// Orchestrator drives the per-item state machine and the per-subject
// synthesis stage. Independent items run concurrently; linking,
// grouping and synthesis for one subject are serialised so the
// linker always observes a consistent snapshot of that subject's
// fragments.
type Orchestrator struct {
	classify  *ClassifyService
	index     driven.EmbeddingIndex
	fragments driven.FragmentStore
	processed driven.ProcessedStore
	linker    *Linker
	grouper   *Grouper
	synth     *Synthesizer
	writer    driven.DocumentWriter
	settings  domain.PipelineSettings

	now func() time.Time

	// dedupMu serialises the duplicate check with the index insert so
	// near-identical captures in one batch observe each other.
	dedupMu sync.Mutex

	mu        sync.Mutex
	subjectMu map[string]*sync.Mutex
}

// NewOrchestrator wires the pipeline services together.
func NewOrchestrator(
	classify *ClassifyService,
	index driven.EmbeddingIndex,
	fragments driven.FragmentStore,
	processed driven.ProcessedStore,
	writer driven.DocumentWriter,
	settings domain.PipelineSettings,
) *Orchestrator {
	if settings.Workers <= 0 {
		settings.Workers = domain.DefaultPipelineSettings().Workers
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = domain.DefaultPipelineSettings().MaxAttempts
	}
	if settings.RetryBackoff <= 0 {
		settings.RetryBackoff = domain.DefaultPipelineSettings().RetryBackoff
	}
	return &Orchestrator{
		classify:  classify,
		index:     index,
		fragments: fragments,
		processed: processed,
		linker:    NewLinker(index, settings.LinkThreshold),
		grouper:   NewGrouper(),
		synth:     NewSynthesizer(),
		writer:    writer,
		settings:  settings,
		now:       time.Now,
		subjectMu: make(map[string]*sync.Mutex),
	}
}

// itemOutcome is the internal result of the per-item stages.
type itemOutcome struct {
	result  driving.ItemResult
	subject string
	hash    string
	// pending items await their subject's synthesis before their
	// processed-set entry is written.
	pending bool
}

// ProcessBatch processes a fixed set of fragments once. Per-item
// failures never abort the run.
func (o *Orchestrator) ProcessBatch(ctx context.Context, fragments []domain.Fragment) (*driving.BatchReport, error) {
	report := &driving.BatchReport{
		RunID:   uuid.NewString(),
		Started: o.now().UTC(),
	}
	logger.Section(fmt.Sprintf("Run %s: %d items", report.RunID, len(fragments)))

	outcomes := make([]itemOutcome, len(fragments))

	// Per-item stages run concurrently; the only synchronisation
	// point is per-subject synthesis below.
	workers := o.settings.Workers
	if workers > len(fragments) {
		workers = len(fragments)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = o.processItem(ctx, fragments[i])
			}
		}()
	}
	for i := range fragments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	o.finishSubjects(ctx, outcomes)

	for _, outcome := range outcomes {
		report.Items = append(report.Items, outcome.result)
	}
	report.Finished = o.now().UTC()
	return report, nil
}

// ProcessOne processes a single fragment, resynthesizing only the
// subject it affects.
func (o *Orchestrator) ProcessOne(ctx context.Context, fragment domain.Fragment) (driving.ItemResult, error) {
	outcomes := []itemOutcome{o.processItem(ctx, fragment)}
	o.finishSubjects(ctx, outcomes)
	return outcomes[0].result, nil
}

// processItem runs one fragment through classification and indexing.
// It writes the processed-set entry immediately for terminal
// outcomes (failed, unclassified); items awaiting synthesis are
// marked pending instead.
func (o *Orchestrator) processItem(ctx context.Context, fragment domain.Fragment) itemOutcome {
	id := fragment.Source.ImageID
	hash := domain.HashContent(fragment.Text)
	outcome := itemOutcome{
		result: driving.ItemResult{SourceID: id, State: domain.StateNew},
		hash:   hash,
	}

	// Idempotence gate: settled items with unchanged content are
	// skipped before any external call.
	if entry, err := o.processed.Get(ctx, id); err == nil &&
		entry.ContentHash == hash && entry.Outcome.Settled() {
		logger.Debug("skipping %s: already %s", id, entry.Outcome)
		outcome.result.State = domain.StateSynthesizedAndSaved
		outcome.result.Skipped = true
		return outcome
	}

	if strings.TrimSpace(fragment.Text) == "" {
		return o.failItem(ctx, outcome, fmt.Errorf("%w: fragment %s", domain.ErrEmptyInput, id))
	}

	classified, err := o.classifyAndIndex(ctx, fragment, &outcome)
	if err != nil {
		return o.failItem(ctx, outcome, err)
	}

	if classified.Kind == domain.KindUnclassified {
		// Processed, excluded from linking, not retried unless the
		// content changes.
		outcome.result.Outcome = domain.OutcomeUnclassified
		o.putEntry(ctx, id, hash, domain.OutcomeUnclassified, "")
		return outcome
	}

	outcome.subject = classified.Subject
	outcome.pending = true
	return outcome
}

// classifyAndIndex runs the duplicate check, classification, index
// insert and fragment save as one critical section. Near-identical
// captures arriving in the same batch must observe each other's
// inserts: at most one of them reaches the collaborator, and exactly
// one embedding record survives.
func (o *Orchestrator) classifyAndIndex(ctx context.Context, fragment domain.Fragment, outcome *itemOutcome) (domain.ClassifiedFragment, error) {
	o.dedupMu.Lock()
	defer o.dedupMu.Unlock()

	id := fragment.Source.ImageID

	var classified domain.ClassifiedFragment
	supersededID, prior, err := o.findDuplicate(ctx, fragment)
	if err != nil {
		return classified, err
	}

	if prior != nil {
		// Same material re-photographed: adopt the prior
		// classification without another collaborator call. The new
		// record supersedes the old one.
		classified = adoptClassification(*prior, fragment)
		outcome.result.SupersededID = supersededID
		logger.Info("%s supersedes near-duplicate %s", id, supersededID)
	} else {
		outcome.result.State = domain.StateClassifying
		classified, err = o.classifyWithRetry(ctx, fragment)
		if err != nil {
			return classified, err
		}
		outcome.result.State = domain.StateClassified
	}

	if err := o.indexWithRetry(ctx, id, fragment.Text); err != nil {
		return classified, err
	}
	if err := o.fragments.Save(ctx, classified); err != nil {
		return classified, err
	}
	outcome.result.State = domain.StateIndexed

	if supersededID != "" && supersededID != id {
		if err := o.retireSuperseded(ctx, supersededID); err != nil {
			return classified, err
		}
	}
	return classified, nil
}

// finishSubjects serialises link/group/synthesize per affected
// subject, then settles the pending items' processed-set entries.
// A subject synthesis failure fails that subject's items only.
func (o *Orchestrator) finishSubjects(ctx context.Context, outcomes []itemOutcome) {
	affected := make(map[string][]int)
	for i, outcome := range outcomes {
		if outcome.pending {
			affected[outcome.subject] = append(affected[outcome.subject], i)
		}
	}

	subjects := make([]string, 0, len(affected))
	for subject := range affected {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		indices := affected[subject]
		err := o.synthesizeSubject(ctx, subject, func() {
			for _, i := range indices {
				outcomes[i].result.State = domain.StateLinkedAndGrouped
			}
		})
		for _, i := range indices {
			outcome := &outcomes[i]
			if err != nil {
				outcome.result.State = domain.StateFailed
				outcome.result.Outcome = domain.OutcomeFailed
				outcome.result.Err = err.Error()
				o.putEntry(ctx, outcome.result.SourceID, outcome.hash, domain.OutcomeFailed, err.Error())
				continue
			}
			if entry, err := o.processed.Get(ctx, outcome.result.SourceID); err == nil &&
				entry.Outcome == domain.OutcomeSuperseded && entry.ContentHash == outcome.hash {
				// Retired by a near-duplicate later in the same run;
				// the superseded entry stands.
				outcome.result.State = domain.StateSynthesizedAndSaved
				outcome.result.Outcome = domain.OutcomeSuperseded
				continue
			}
			outcome.result.State = domain.StateSynthesizedAndSaved
			outcome.result.Outcome = domain.OutcomeSaved
			o.putEntry(ctx, outcome.result.SourceID, outcome.hash, domain.OutcomeSaved, "")
		}
	}
}

// synthesizeSubject rebuilds the subject's groups wholesale and
// persists their documents. At most one synthesis per subject runs
// at a time. linked is called once linking and grouping have
// succeeded, before any document is rendered.
func (o *Orchestrator) synthesizeSubject(ctx context.Context, subject string, linked func()) error {
	mu := o.subjectMutex(subject)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	fragments, err := o.fragments.ListBySubject(ctx, subject)
	if err != nil {
		return fmt.Errorf("list fragments for %s: %w", subject, err)
	}

	links, err := o.linker.Link(ctx, fragments)
	if err != nil {
		return err
	}

	groups, err := o.grouper.Group(fragments, links)
	if err != nil {
		return err
	}
	if linked != nil {
		linked()
	}

	generated := o.now()
	for _, group := range groups {
		doc, err := o.synth.Synthesize(group, generated)
		if err != nil {
			return err
		}
		if err := o.writer.Write(ctx, doc); err != nil {
			return fmt.Errorf("write document %s: %w", doc.GroupName, err)
		}
	}
	logger.Info("synthesized %d groups for subject %s", len(groups), subject)
	return nil
}

// findDuplicate checks whether the fragment is a near-duplicate of
// indexed material. It returns the superseded id and its stored
// classification when it is.
func (o *Orchestrator) findDuplicate(ctx context.Context, fragment domain.Fragment) (string, *domain.ClassifiedFragment, error) {
	if o.index.Len() == 0 {
		return "", nil, nil
	}

	var dupID string
	err := o.retry(ctx, isEmbeddingError, func() error {
		dup, matched, err := o.index.IsDuplicate(ctx, fragment.Text, o.settings.DuplicateThreshold)
		if err != nil {
			return err
		}
		if dup {
			dupID = matched
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if dupID == "" || dupID == fragment.Source.ImageID {
		return "", nil, nil
	}

	prior, err := o.fragments.Get(ctx, dupID)
	if errors.Is(err, domain.ErrNotFound) {
		// Embedding without a fragment; treat as fresh material.
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return dupID, prior, nil
}

// retireSuperseded removes the replaced fragment's records and marks
// its processed-set entry superseded. The entry's hash comes from the
// retired fragment's own text: a fragment retired before its first
// processed entry exists still gets a hash its next run can match.
func (o *Orchestrator) retireSuperseded(ctx context.Context, id string) error {
	hash := ""
	if fragment, err := o.fragments.Get(ctx, id); err == nil {
		hash = domain.HashContent(fragment.Text)
	} else if entry, err := o.processed.Get(ctx, id); err == nil {
		hash = entry.ContentHash
	}

	if err := o.index.Delete(ctx, id); err != nil {
		return err
	}
	if err := o.fragments.Delete(ctx, id); err != nil {
		return err
	}
	o.putEntry(ctx, id, hash, domain.OutcomeSuperseded, "")
	return nil
}

// classifyWithRetry applies the bounded retry policy to the
// collaborator call. Only retryable classification failures are
// retried; empty input and permanent failures are not.
func (o *Orchestrator) classifyWithRetry(ctx context.Context, fragment domain.Fragment) (domain.ClassifiedFragment, error) {
	var classified domain.ClassifiedFragment
	err := o.retry(ctx, isRetryableClassification, func() error {
		var err error
		classified, err = o.classify.Classify(ctx, fragment)
		return err
	})
	return classified, err
}

// indexWithRetry applies the bounded retry policy to embedding
// computation.
func (o *Orchestrator) indexWithRetry(ctx context.Context, id, text string) error {
	return o.retry(ctx, isEmbeddingError, func() error {
		_, err := o.index.Insert(ctx, id, text)
		return err
	})
}

// retry runs fn up to MaxAttempts times with doubling backoff,
// retrying only errors retryable reports true for.
func (o *Orchestrator) retry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	backoff := o.settings.RetryBackoff
	var err error
	for attempt := 1; attempt <= o.settings.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == o.settings.MaxAttempts {
			return err
		}
		logger.Warn("attempt %d failed, retrying in %s: %v", attempt, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// failItem records a terminal failure for the current run. The item
// re-enters the pipeline on the next run.
func (o *Orchestrator) failItem(ctx context.Context, outcome itemOutcome, err error) itemOutcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Abandoned mid-flight: leave the processed set untouched so
		// the next run retries cleanly.
		outcome.result.State = domain.StateFailed
		outcome.result.Err = err.Error()
		return outcome
	}

	logger.Warn("item %s failed: %v", outcome.result.SourceID, err)
	outcome.result.State = domain.StateFailed
	outcome.result.Outcome = domain.OutcomeFailed
	outcome.result.Err = err.Error()
	o.putEntry(ctx, outcome.result.SourceID, outcome.hash, domain.OutcomeFailed, err.Error())
	return outcome
}

// putEntry writes a processed-set entry, logging rather than failing
// on store errors so one item's bookkeeping never aborts the run.
func (o *Orchestrator) putEntry(ctx context.Context, id, hash string, result domain.Outcome, errMsg string) {
	entry := domain.ProcessedEntry{
		SourceID:    id,
		ContentHash: hash,
		Outcome:     result,
		Error:       errMsg,
		ProcessedAt: o.now().UTC(),
	}
	if err := o.processed.Put(ctx, entry); err != nil {
		logger.Warn("record processed entry %s: %v", id, err)
	}
}

// Search embeds the query and returns the most similar stored
// fragments.
func (o *Orchestrator) Search(ctx context.Context, query string, limit int) ([]driving.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	hits, err := o.index.Query(ctx, query, limit, 0)
	if err != nil {
		return nil, err
	}

	results := make([]driving.SearchResult, 0, len(hits))
	for _, hit := range hits {
		fragment, err := o.fragments.Get(ctx, hit.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, driving.SearchResult{
			ID:      hit.ID,
			Score:   hit.Score,
			Kind:    fragment.Kind,
			Subject: fragment.Subject,
			Snippet: snippet(fragment.Text, 120),
		})
	}
	return results, nil
}

// Summary reports processed-set counts.
func (o *Orchestrator) Summary(ctx context.Context) (*driving.ProcessedSummary, error) {
	entries, err := o.processed.List(ctx)
	if err != nil {
		return nil, err
	}
	summary := &driving.ProcessedSummary{
		Total:     len(entries),
		ByOutcome: make(map[domain.Outcome]int),
		IndexSize: o.index.Len(),
	}
	for _, entry := range entries {
		summary.ByOutcome[entry.Outcome]++
	}
	return summary, nil
}

// Clear removes all fragments, embeddings and processed entries.
func (o *Orchestrator) Clear(ctx context.Context) error {
	if err := o.processed.Clear(ctx); err != nil {
		return err
	}
	if err := o.fragments.Clear(ctx); err != nil {
		return err
	}
	return o.index.Clear(ctx)
}

// subjectMutex returns the serialisation lock for a subject.
func (o *Orchestrator) subjectMutex(subject string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	mu, ok := o.subjectMu[subject]
	if !ok {
		mu = &sync.Mutex{}
		o.subjectMu[subject] = mu
	}
	return mu
}

// adoptClassification carries a superseded fragment's classification
// over to its replacement capture.
func adoptClassification(prior domain.ClassifiedFragment, fragment domain.Fragment) domain.ClassifiedFragment {
	adopted := prior
	adopted.Fragment = fragment
	adopted.ID = fragment.Source.ImageID
	return adopted
}

// isRetryableClassification reports whether err is a transient
// collaborator failure.
func isRetryableClassification(err error) bool {
	var cerr *domain.ClassificationError
	if errors.As(err, &cerr) {
		return cerr.Retryable
	}
	return false
}

// isEmbeddingError reports whether err came from embedding
// computation; those are retried.
func isEmbeddingError(err error) bool {
	return errors.Is(err, domain.ErrEmbedding)
}

// snippet returns the leading runes of text on a single line.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
