package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ServiceSettings holds the tunables of the analysis service
type ServiceSettings struct {
	CacheEnabled    bool
	CacheTTL        time.Duration
	NotifyThreshold int
	NotifyTimeout   time.Duration
	MaxPromptSize   int
}

// AnalysisService is the core service for listing risk evaluation. One
// instance serves one analyst session.
type AnalysisService struct {
	llmClient     LLMClient
	cache         CacheRepository
	notifier      NotificationSender
	catalogSource CatalogSource
	logger        *zap.Logger
	settings      ServiceSettings

	mu          sync.RWMutex
	catalog     []CatalogItem
	fingerprint string
	loaded      bool
	catalogErr  error

	inflight *semaphore.Weighted
	pending  sync.WaitGroup
}

// NewAnalysisService creates a new analysis service. cache and notifier may be nil.
func NewAnalysisService(
	llmClient LLMClient,
	cache CacheRepository,
	notifier NotificationSender,
	catalogSource CatalogSource,
	logger *zap.Logger,
	settings ServiceSettings,
) *AnalysisService {
	if settings.NotifyTimeout <= 0 {
		settings.NotifyTimeout = 30 * time.Second
	}
	return &AnalysisService{
		llmClient:     llmClient,
		cache:         cache,
		notifier:      notifier,
		catalogSource: catalogSource,
		logger:        logger,
		settings:      settings,
		inflight:      semaphore.NewWeighted(1),
	}
}

// LoadCatalog (re)loads the reference catalog. A failure halts analysis
// until a later load succeeds.
func (s *AnalysisService) LoadCatalog(ctx context.Context) error {
	items, err := s.catalogSource.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if err != nil {
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			err = &ConfigError{Input: "catalog", Err: err}
		}
		s.catalogErr = err
		s.catalog = nil
		s.fingerprint = ""
		s.logger.Error("Failed to load catalog, analysis disabled", zap.Error(err))
		return err
	}

	s.catalogErr = nil
	s.catalog = items
	s.fingerprint = CatalogFingerprint(items)
	s.logger.Info("Loaded catalog",
		zap.Int("items", len(items)),
		zap.String("fingerprint", s.fingerprint[:12]))
	return nil
}

// Catalog returns a copy of the loaded catalog
func (s *AnalysisService) Catalog() []CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CatalogItem(nil), s.catalog...)
}

// Ready returns the configuration error that blocks analysis, if any
func (s *AnalysisService) Ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return &ConfigError{Input: "catalog", Err: errors.New("catalog has not been loaded")}
	}
	if s.catalogErr != nil {
		return s.catalogErr
	}
	if mc, ok := s.llmClient.(*misconfiguredClient); ok {
		return mc.err
	}
	return nil
}

// Analyze runs one listing through the evaluator pipeline
func (s *AnalysisService) Analyze(ctx context.Context, listing Listing) (*Analysis, error) {
	if err := listing.Validate(); err != nil {
		return nil, err
	}
	if err := s.Ready(); err != nil {
		return nil, err
	}
	if !s.inflight.TryAcquire(1) {
		return nil, ErrAnalysisInProgress
	}
	defer s.inflight.Release(1)

	catalog, fingerprint := s.snapshot()
	key := CacheKey(listing, fingerprint)

	result := s.cached(ctx, key)
	if result == nil {
		var err error
		result, err = s.evaluate(ctx, &AnalysisRequest{Listing: listing, Catalog: catalog})
		if errors.Is(err, ErrAnalysisCanceled) {
			s.logger.Info("Listing analysis canceled",
				zap.String("listing", listing.Name),
				zap.Error(err))
			return nil, err
		}
		if err != nil {
			s.logger.Error("Listing analysis failed",
				zap.String("listing", listing.Name),
				zap.Int("price", listing.Price),
				zap.Error(err))
			return nil, err
		}
		s.remember(ctx, key, result)
	}

	report := FormatReport(result, listing, s.settings.NotifyThreshold)
	analysis := &Analysis{
		Listing: listing,
		Result:  result,
		Report:  report,
	}
	if report.Notification != nil {
		analysis.NotificationQueued = s.notify(report.Notification, result)
	}

	s.logger.Info("Analyzed listing",
		zap.String("processing_id", result.ProcessingID),
		zap.String("listing", listing.Name),
		zap.Int("score", result.SimilarityScore),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.String("action", string(result.RecommendedAction)),
		zap.String("matching_item_id", result.MatchingItemID),
		zap.Bool("degraded", result.Degraded),
		zap.Bool("from_cache", result.FromCache))

	return analysis, nil
}

// evaluate performs the model round trip and validation
func (s *AnalysisService) evaluate(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error) {
	prompt, shown, err := BuildBoundedPrompt(req.Catalog, req.Listing, s.settings.MaxPromptSize)
	if err != nil {
		return nil, err
	}
	if shown < len(req.Catalog) {
		s.logger.Warn("Catalog truncated to fit the prompt size limit",
			zap.Int("shown", shown),
			zap.Int("catalog_size", len(req.Catalog)),
			zap.Int("max_prompt_size", s.settings.MaxPromptSize))
	}

	resp, err := s.llmClient.Generate(ctx, &ModelRequest{
		Prompt: prompt,
		Schema: ResponseSchema(),
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, Canceled(err)
		}
		return nil, err
	}

	candidate := NormalizeResponse(resp.Text)
	result, err := ValidateResponse(candidate)
	if err != nil {
		var malformed *MalformedResponseError
		if errors.As(err, &malformed) {
			s.logger.Warn("Model returned a malformed response",
				zap.String("model", resp.Model),
				zap.String("raw", resp.Text))
			malformed.Raw = resp.Text
		}
		return nil, err
	}

	result.ModelUsed = resp.Model
	result.ProcessingID = uuid.NewString()
	if resp.ID != "" {
		s.logger.Debug("Model response received",
			zap.String("processing_id", result.ProcessingID),
			zap.String("response_id", resp.ID))
	}

	if shown < len(req.Catalog) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("only %d of %d catalog products fit in the prompt", shown, len(req.Catalog)))
	}
	if result.HasMatch() && !containsItem(req.Catalog, result.MatchingItemID) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("matched product %q is not in the reference catalog", result.MatchingItemID))
	}
	if result.Degraded {
		s.logger.Warn("Degraded analysis result",
			zap.String("processing_id", result.ProcessingID),
			zap.Strings("warnings", result.Warnings))
	}
	return result, nil
}

func (s *AnalysisService) snapshot() ([]CatalogItem, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.fingerprint
}

// cached returns a copy of a memoized result, or nil
func (s *AnalysisService) cached(ctx context.Context, key string) *AnalysisResult {
	if !s.settings.CacheEnabled || s.cache == nil {
		return nil
	}
	entry, err := s.cache.Get(ctx, key)
	if err != nil || entry == nil || entry.Result == nil {
		return nil
	}
	s.logger.Debug("Cache hit for listing", zap.String("key", key))

	result := *entry.Result
	result.Warnings = append([]string(nil), entry.Result.Warnings...)
	result.FromCache = true
	return &result
}

func (s *AnalysisService) remember(ctx context.Context, key string, result *AnalysisResult) {
	if !s.settings.CacheEnabled || s.cache == nil {
		return
	}
	now := time.Now()
	entry := &CacheEntry{
		Key:       key,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(s.settings.CacheTTL),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		s.logger.Error("Failed to update cache", zap.Error(err))
	}
}

// notify hands the alert to the sender without blocking the caller
func (s *AnalysisService) notify(n *Notification, result *AnalysisResult) bool {
	if s.notifier == nil {
		return false
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.NotifyTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, n); err != nil {
			s.logger.Error("Failed to send notification",
				zap.String("processing_id", result.ProcessingID),
				zap.Error(err))
			return
		}
		s.logger.Info("Notification sent",
			zap.String("processing_id", result.ProcessingID),
			zap.String("subject", n.Subject))
	}()
	return true
}

// Wait blocks until queued notifications have been attempted
func (s *AnalysisService) Wait() {
	s.pending.Wait()
}

// CacheKey identifies an analysis by exact input equality
func CacheKey(listing Listing, catalogFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(listing.Name))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(listing.Price)))
	h.Write([]byte{0})
	h.Write([]byte(catalogFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// CatalogFingerprint hashes the catalog content in order
func CatalogFingerprint(items []CatalogItem) string {
	h := sha256.New()
	for _, item := range items {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\n", item.ID, item.Brand, item.Description, item.Price)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func containsItem(catalog []CatalogItem, id string) bool {
	for _, item := range catalog {
		if item.ID == id {
			return true
		}
	}
	return false
}

// misconfiguredClient stands in for a model client that could not be built
type misconfiguredClient struct {
	err error
}

// NewMisconfiguredClient returns an LLMClient that reports err on every call
// and makes the service report it from Ready.
func NewMisconfiguredClient(err error) LLMClient {
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		err = &ConfigError{Input: "llm", Err: err}
	}
	return &misconfiguredClient{err: err}
}

func (c *misconfiguredClient) Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
	return nil, c.err
}
