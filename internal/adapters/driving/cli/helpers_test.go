package cli

import (
	"context"
	"sync"
	"time"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockPipeline is a configurable driving.Pipeline for command tests.
type mockPipeline struct {
	mu sync.Mutex

	report        *driving.BatchReport
	itemResult    driving.ItemResult
	searchResults []driving.SearchResult
	summary       *driving.ProcessedSummary
	err           error

	batchCalls  int
	oneCalls    int
	searchQuery string
	searchLimit int
	clearCalls  int
}

var _ driving.Pipeline = (*mockPipeline)(nil)

func (m *mockPipeline) ProcessBatch(_ context.Context, fragments []domain.Fragment) (*driving.BatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	report := &driving.BatchReport{
		RunID:    "run-test",
		Started:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Finished: time.Date(2026, 3, 1, 10, 0, 2, 0, time.UTC),
	}
	for i := range fragments {
		report.Items = append(report.Items, driving.ItemResult{
			SourceID: fragments[i].Source.ImageID,
			State:    domain.StateSynthesizedAndSaved,
			Outcome:  domain.OutcomeSaved,
		})
	}
	return report, nil
}

func (m *mockPipeline) ProcessOne(_ context.Context, fragment domain.Fragment) (driving.ItemResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneCalls++
	if m.err != nil {
		return driving.ItemResult{}, m.err
	}
	result := m.itemResult
	if result.SourceID == "" {
		result.SourceID = fragment.Source.ImageID
	}
	return result, nil
}

func (m *mockPipeline) Search(_ context.Context, query string, limit int) ([]driving.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchQuery = query
	m.searchLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.searchResults, nil
}

func (m *mockPipeline) Summary(_ context.Context) (*driving.ProcessedSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.summary != nil {
		return m.summary, nil
	}
	return &driving.ProcessedSummary{ByOutcome: map[domain.Outcome]int{}}, nil
}

func (m *mockPipeline) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	return m.err
}

// mockSettingsService is a configurable driving.SettingsService.
type mockSettingsService struct {
	settings    *domain.Settings
	saveErr     error
	setErr      error
	validateErr error
	pingErr     error

	savedSettings      *domain.Settings
	classifierProvider domain.AIProvider
	embeddingProvider  domain.AIProvider
}

var _ driving.SettingsService = (*mockSettingsService)(nil)

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.settings != nil {
		return m.settings, nil
	}
	defaults := domain.DefaultSettings()
	return &defaults, nil
}

func (m *mockSettingsService) Save(settings *domain.Settings) error {
	m.savedSettings = settings
	return m.saveErr
}

func (m *mockSettingsService) SetClassifierProvider(provider domain.AIProvider, _, _ string) error {
	m.classifierProvider = provider
	return m.setErr
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, _, _ string) error {
	m.embeddingProvider = provider
	return m.setErr
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

func (m *mockSettingsService) ValidateClassifierConfig() error { return m.pingErr }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

// setupTestServices swaps the package-level services for mocks so
// commands run without touching real providers or disk. The returned
// cleanup restores the originals.
func setupTestServices() func() {
	originalPipeline := pipelineService
	originalSettings := settingsService
	originalNotesDir := notesDir

	pipelineService = &mockPipeline{}
	settingsService = &mockSettingsService{}
	notesDir = ""

	return func() {
		pipelineService = originalPipeline
		settingsService = originalSettings
		notesDir = originalNotesDir
	}
}

// setupTestServicesWith installs the given mocks instead of fresh
// defaults.
func setupTestServicesWith(pipeline driving.Pipeline, settings driving.SettingsService) func() {
	cleanup := setupTestServices()
	pipelineService = pipeline
	settingsService = settings
	return cleanup
}
