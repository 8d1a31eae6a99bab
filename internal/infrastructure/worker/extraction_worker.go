package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// ExtractionWorker polls for uploaded documents and runs receipt extraction
// on them. Each document is claimed before processing so that concurrent
// workers never pick up the same one; a claimed document always ends in
// EXTRACTED or FAILED.
type ExtractionWorker struct {
	pollInterval   time.Duration
	batchSize      int
	processTimeout time.Duration

	documentRepo port.DocumentRepository
	extractor    port.ReceiptExtractor
	storage      port.FileStorage
	logger       *zap.Logger

	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isRunning      bool
	processedCount int
	failedCount    int
}

// ExtractionWorkerConfig carries the tunables of the extraction worker
type ExtractionWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	ProcessTimeout time.Duration
}

// NewExtractionWorker creates a new extraction worker
func NewExtractionWorker(
	documentRepo port.DocumentRepository,
	extractor port.ReceiptExtractor,
	storage port.FileStorage,
	cfg ExtractionWorkerConfig,
	logger *zap.Logger,
) *ExtractionWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 120 * time.Second
	}

	return &ExtractionWorker{
		pollInterval:   cfg.PollInterval,
		batchSize:      cfg.BatchSize,
		processTimeout: cfg.ProcessTimeout,
		documentRepo:   documentRepo,
		extractor:      extractor,
		storage:        storage,
		logger:         logger,
	}
}

// Name returns the worker name
func (w *ExtractionWorker) Name() string {
	return "extraction-worker"
}

// Start begins the polling loop
func (w *ExtractionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ExtractionWorker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *ExtractionWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("ExtractionWorker stopped",
		zap.Int("processed_count", w.processedCount),
		zap.Int("failed_count", w.failedCount))
}

func (w *ExtractionWorker) pollLoop() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			if err := w.processUploadedDocuments(); err != nil {
				w.logger.Error("Failed to process uploaded documents", zap.Error(err))
			}
		}
	}
}

// processUploadedDocuments claims and extracts one batch of pending documents
func (w *ExtractionWorker) processUploadedDocuments() error {
	docs, err := w.documentRepo.GetUploaded(w.ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get uploaded documents: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}

	w.logger.Debug("Processing uploaded documents", zap.Int("count", len(docs)))

	for _, doc := range docs {
		if err := w.processDocument(doc); err != nil {
			w.logger.Warn("Failed to process document",
				zap.Int64("document_id", doc.ID),
				zap.String("file_name", doc.OriginalFilename),
				zap.Error(err))

			w.mu.Lock()
			w.failedCount++
			w.mu.Unlock()
		} else {
			w.mu.Lock()
			w.processedCount++
			w.mu.Unlock()
		}
	}

	return nil
}

// processDocument runs extraction for a single document
func (w *ExtractionWorker) processDocument(doc *entity.Document) error {
	claimed, err := w.documentRepo.ClaimForProcessing(w.ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to claim document: %w", err)
	}
	if !claimed {
		// Another worker got there first
		return nil
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.processTimeout)
	defer cancel()

	fields, err := w.extractor.Extract(ctx, w.storage.GetFullPath(doc.FilePath), doc.ContentType)
	if err != nil {
		if failErr := w.documentRepo.SetFailed(w.ctx, doc.ID, err.Error()); failErr != nil {
			w.logger.Error("Failed to mark document failed",
				zap.Int64("document_id", doc.ID),
				zap.Error(failErr))
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	if fields.SupplierName == "" || fields.AmountCents <= 0 {
		msg := "extraction produced no usable supplier or amount"
		if failErr := w.documentRepo.SetFailed(w.ctx, doc.ID, msg); failErr != nil {
			w.logger.Error("Failed to mark document failed",
				zap.Int64("document_id", doc.ID),
				zap.Error(failErr))
		}
		return fmt.Errorf("%s (document %d)", msg, doc.ID)
	}

	if err := w.documentRepo.SetExtracted(w.ctx, doc.ID, fields.SupplierName, fields.PurchaseDate, fields.AmountCents); err != nil {
		return fmt.Errorf("failed to record extraction result: %w", err)
	}

	w.logger.Info("Document extracted",
		zap.Int64("document_id", doc.ID),
		zap.String("supplier", fields.SupplierName),
		zap.Int64("amount_cents", fields.AmountCents))

	return nil
}

var _ Worker = (*ExtractionWorker)(nil)
