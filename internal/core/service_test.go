package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLLM struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	prompts []string
	started chan struct{}
	release chan struct{}
}

func (f *fakeLLM) Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ModelResponse{Text: f.text, Model: "fake-model", ID: "resp-1"}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCatalog struct {
	items []CatalogItem
	err   error
}

func (f *fakeCatalog) Load(ctx context.Context) ([]CatalogItem, error) {
	return f.items, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*Notification
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, n *Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

func (c *mapCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.Expired(time.Now()) {
		return nil, errors.New("miss")
	}
	return e, nil
}

func (c *mapCache) Set(ctx context.Context, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Cleanup(ctx context.Context) error { return nil }

var vilvahCatalog = []CatalogItem{
	{ID: "P001", Brand: "VILVAH", Description: "Milk Drops Serum 20ml", Price: 620},
}

var vilvahListing = Listing{Name: "VILVAH Milk Drops Brightening Serum (20ml)", Price: 620}

const vilvahResponse = `{"similarity_score":"95","risk_level":"HIGH RISK","matching_product_id":"P001","reasoning":"Exact name and price match."}`

func newTestService(t *testing.T, llm LLMClient, cache CacheRepository, notifier NotificationSender, catalog CatalogSource) *AnalysisService {
	t.Helper()
	svc := NewAnalysisService(llm, cache, notifier, catalog, zap.NewNop(), ServiceSettings{
		CacheEnabled:    cache != nil,
		CacheTTL:        time.Hour,
		NotifyThreshold: DefaultNotifyThreshold,
		NotifyTimeout:   time.Second,
	})
	return svc
}

func TestAnalysisService_EndToEnd(t *testing.T) {
	llm := &fakeLLM{text: "```json\n" + vilvahResponse + "\n```"}
	notifier := &fakeNotifier{}
	svc := newTestService(t, llm, nil, notifier, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))
	require.NoError(t, svc.Ready())

	analysis, err := svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)
	svc.Wait()

	result := analysis.Result
	assert.Equal(t, 95, result.SimilarityScore)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Equal(t, ActionReject, result.RecommendedAction)
	assert.Equal(t, "P001", result.MatchingItemID)
	assert.Equal(t, "fake-model", result.ModelUsed)
	assert.NotEmpty(t, result.ProcessingID)
	assert.Empty(t, result.Warnings)

	assert.True(t, analysis.NotificationQueued)
	require.Equal(t, 1, notifier.count())
	assert.Contains(t, notifier.sent[0].Body, "Matched product: P001")

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "P001 | VILVAH | Milk Drops Serum 20ml | 620")
	assert.Contains(t, llm.prompts[0], "Name: VILVAH Milk Drops Brightening Serum (20ml)")
}

func TestAnalysisService_LowRiskDoesNotNotify(t *testing.T) {
	llm := &fakeLLM{text: `{"similarity_score":12,"risk_level":"LOW","matching_product_id":null,"reasoning":"Different product."}`}
	notifier := &fakeNotifier{}
	svc := newTestService(t, llm, nil, notifier, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	analysis, err := svc.Analyze(context.Background(), Listing{Name: "Garden hose", Price: 300})
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, RiskLow, analysis.Result.RiskLevel)
	assert.False(t, analysis.NotificationQueued)
	assert.Equal(t, 0, notifier.count())
}

func TestAnalysisService_NotificationFailureIsNotFatal(t *testing.T) {
	llm := &fakeLLM{text: vilvahResponse}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc := newTestService(t, llm, nil, notifier, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	analysis, err := svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)
	svc.Wait()

	assert.True(t, analysis.NotificationQueued)
	assert.Equal(t, 1, notifier.count())
}

func TestAnalysisService_ModelErrorsAbort(t *testing.T) {
	kinds := []error{ErrModelUnavailable, ErrModelTimeout, ErrModelRefused}
	for _, kind := range kinds {
		t.Run(kind.Error(), func(t *testing.T) {
			llm := &fakeLLM{err: NewModelError(kind, "fake", errors.New("boom"))}
			svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
			require.NoError(t, svc.LoadCatalog(context.Background()))

			analysis, err := svc.Analyze(context.Background(), vilvahListing)
			assert.Nil(t, analysis)
			assert.ErrorIs(t, err, kind)
			assert.Equal(t, 1, llm.callCount(), "no retries")
		})
	}
}

func TestAnalysisService_MalformedKeepsRawText(t *testing.T) {
	llm := &fakeLLM{text: "Sorry, I can only answer in prose."}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	_, err := svc.Analyze(context.Background(), vilvahListing)
	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "Sorry, I can only answer in prose.", malformed.Raw)
}

func TestAnalysisService_DegradedResultIsReturned(t *testing.T) {
	llm := &fakeLLM{text: `{"similarity_score":"abc","risk_level":"HIGH","reasoning":"?"}`}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	analysis, err := svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)
	assert.True(t, analysis.Result.Degraded)
	assert.Equal(t, 0, analysis.Result.SimilarityScore)
	assert.Equal(t, RiskLow, analysis.Result.RiskLevel)
	assert.Contains(t, analysis.Report.Summary, "DEGRADED RESULT")
}

func TestAnalysisService_UnknownMatchWarns(t *testing.T) {
	llm := &fakeLLM{text: `{"similarity_score":60,"risk_level":"MEDIUM","matching_product_id":"P999","reasoning":"r"}`}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	analysis, err := svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)
	require.Len(t, analysis.Result.Warnings, 1)
	assert.Contains(t, analysis.Result.Warnings[0], "P999")
	assert.False(t, analysis.Result.Degraded)
}

func TestAnalysisService_LargeCatalogKeepsListingInPrompt(t *testing.T) {
	llm := &fakeLLM{text: `{"similarity_score":10,"risk_level":"LOW","matching_product_id":null,"reasoning":"r"}`}
	svc := NewAnalysisService(llm, nil, nil, &fakeCatalog{items: largeCatalog(600)}, zap.NewNop(), ServiceSettings{
		NotifyThreshold: DefaultNotifyThreshold,
		MaxPromptSize:   32768,
	})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	analysis, err := svc.Analyze(context.Background(), Listing{Name: "CANDIDATE-XYZ", Price: 777})
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	assert.LessOrEqual(t, len(llm.prompts[0]), 32768)
	assert.Contains(t, llm.prompts[0], "Name: CANDIDATE-XYZ")
	assert.Contains(t, llm.prompts[0], "Price: 777")
	require.Len(t, analysis.Result.Warnings, 1)
	assert.Contains(t, analysis.Result.Warnings[0], "of 600 catalog products fit in the prompt")
}

func TestAnalysisService_PromptLimitTooSmall(t *testing.T) {
	llm := &fakeLLM{text: vilvahResponse}
	svc := NewAnalysisService(llm, nil, nil, &fakeCatalog{items: vilvahCatalog}, zap.NewNop(), ServiceSettings{
		MaxPromptSize: 64,
	})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	_, err := svc.Analyze(context.Background(), vilvahListing)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, 0, llm.callCount())
}

func TestAnalysisService_CanceledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	llm := &fakeLLM{
		err:     NewModelError(ErrModelUnavailable, "fake", errors.New("connection reset")),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	go func() {
		<-llm.started
		cancel()
		close(llm.release)
	}()

	_, err := svc.Analyze(ctx, vilvahListing)
	assert.ErrorIs(t, err, ErrAnalysisCanceled)
	assert.Equal(t, "The analysis was canceled before the AI service answered.", UserMessage(err))
}

func TestDiagnostic(t *testing.T) {
	assert.Empty(t, Diagnostic(nil))
	assert.Empty(t, Diagnostic(ErrModelTimeout))
	assert.Equal(t, "(empty response)", Diagnostic(&MalformedResponseError{Raw: "  \n"}))
	assert.Equal(t, "not json at all", Diagnostic(&MalformedResponseError{Raw: "not\n json  at all\t"}))

	long := Diagnostic(fmt.Errorf("wrapped: %w", &MalformedResponseError{Raw: strings.Repeat("\u00e9", 1000)}))
	assert.Equal(t, maxExcerptRunes+3, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestAnalysisService_InvalidListing(t *testing.T) {
	llm := &fakeLLM{text: vilvahResponse}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	for _, l := range []Listing{{Name: " ", Price: 10}, {Name: "x", Price: 0}, {Name: "x", Price: -3}} {
		_, err := svc.Analyze(context.Background(), l)
		assert.ErrorIs(t, err, ErrInvalidListing)
	}
	assert.Equal(t, 0, llm.callCount())
}

func TestAnalysisService_CatalogErrorHaltsAnalysis(t *testing.T) {
	llm := &fakeLLM{text: vilvahResponse}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{err: &ConfigError{Input: "catalog.path", Err: errors.New("file not found")}})

	err := svc.Ready()
	assert.ErrorIs(t, err, ErrNotConfigured)

	require.Error(t, svc.LoadCatalog(context.Background()))
	_, err = svc.Analyze(context.Background(), vilvahListing)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "catalog.path", cfgErr.Input)
	assert.Equal(t, 0, llm.callCount())
}

func TestAnalysisService_MisconfiguredClient(t *testing.T) {
	svc := newTestService(t, NewMisconfiguredClient(errors.New("openai API key is required")), nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	err := svc.Ready()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "llm", cfgErr.Input)

	_, err = svc.Analyze(context.Background(), vilvahListing)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalysisService_MemoizesIdenticalInput(t *testing.T) {
	llm := &fakeLLM{text: vilvahResponse}
	catalog := &fakeCatalog{items: vilvahCatalog}
	svc := newTestService(t, llm, newMapCache(), nil, catalog)
	require.NoError(t, svc.LoadCatalog(context.Background()))

	first, err := svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)

	assert.Equal(t, 1, llm.callCount())
	assert.False(t, first.Result.FromCache)
	assert.True(t, second.Result.FromCache)
	assert.Equal(t, first.Result.SimilarityScore, second.Result.SimilarityScore)

	_, err = svc.Analyze(context.Background(), Listing{Name: vilvahListing.Name, Price: 621})
	require.NoError(t, err)
	assert.Equal(t, 2, llm.callCount())

	catalog.items = append([]CatalogItem{{ID: "P000", Brand: "X", Description: "Y", Price: 1}}, vilvahCatalog...)
	require.NoError(t, svc.LoadCatalog(context.Background()))
	_, err = svc.Analyze(context.Background(), vilvahListing)
	require.NoError(t, err)
	assert.Equal(t, 3, llm.callCount(), "catalog reload changes the key")
}

func TestAnalysisService_RejectsOverlappingAnalysis(t *testing.T) {
	llm := &fakeLLM{
		text:    vilvahResponse,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, llm, nil, nil, &fakeCatalog{items: vilvahCatalog})
	require.NoError(t, svc.LoadCatalog(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Analyze(context.Background(), vilvahListing)
		done <- err
	}()

	<-llm.started
	_, err := svc.Analyze(context.Background(), vilvahListing)
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	llm.mu.Lock()
	llm.started = nil
	llm.mu.Unlock()
	close(llm.release)
	require.NoError(t, <-done)
}

func TestCacheKey(t *testing.T) {
	fp := CatalogFingerprint(vilvahCatalog)
	assert.Equal(t, CacheKey(vilvahListing, fp), CacheKey(vilvahListing, fp))
	assert.NotEqual(t, CacheKey(vilvahListing, fp), CacheKey(Listing{Name: vilvahListing.Name + " ", Price: 620}, fp))
	assert.NotEqual(t, fp, CatalogFingerprint(nil))
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(NewModelError(ErrModelTimeout, "openai", context.DeadlineExceeded)), "did not respond in time")
	assert.Contains(t, UserMessage(&IncompleteResponseError{Missing: []string{"reasoning"}}), "reasoning")
	assert.Contains(t, UserMessage(&ConfigError{Input: "catalog.path", Err: errors.New("missing")}), "catalog.path")
	assert.Empty(t, UserMessage(nil))
}

func TestClassifyModelError(t *testing.T) {
	err := ClassifyModelError("openai", context.DeadlineExceeded, ErrModelUnavailable)
	assert.ErrorIs(t, err, ErrModelTimeout)

	err = ClassifyModelError("openai", errors.New("connection refused"), ErrModelUnavailable)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	err = ClassifyModelError("openai", fmt.Errorf("post: %w", context.Canceled), ErrModelUnavailable)
	assert.ErrorIs(t, err, ErrAnalysisCanceled)
	assert.NotErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, UserMessage(err), "canceled")

	already := NewModelError(ErrModelRefused, "openai", errors.New("filtered"))
	assert.Same(t, already, ClassifyModelError("openai", already, ErrModelUnavailable))
}
