package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

type mockDocumentRepo struct {
	claimFn        func(ctx context.Context, id int64) (bool, error)
	getUploadedFn  func(ctx context.Context, limit int) ([]*entity.Document, error)
	setExtractedFn func(ctx context.Context, id int64, supplier string, purchaseDate time.Time, amountCents int64) error
	setFailedFn    func(ctx context.Context, id int64, errorMessage string) error
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	return nil, nil
}

func (m *mockDocumentRepo) ClaimForProcessing(ctx context.Context, id int64) (bool, error) {
	return m.claimFn(ctx, id)
}

func (m *mockDocumentRepo) GetUploaded(ctx context.Context, limit int) ([]*entity.Document, error) {
	return m.getUploadedFn(ctx, limit)
}

func (m *mockDocumentRepo) SetExtracted(ctx context.Context, id int64, supplier string, purchaseDate time.Time, amountCents int64) error {
	return m.setExtractedFn(ctx, id, supplier, purchaseDate, amountCents)
}

func (m *mockDocumentRepo) SetFailed(ctx context.Context, id int64, errorMessage string) error {
	return m.setFailedFn(ctx, id, errorMessage)
}

type mockExtractor struct {
	extractFn func(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error)
}

func (m *mockExtractor) Extract(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error) {
	return m.extractFn(ctx, filePath, contentType)
}

type mockStorage struct{}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error { return nil }
func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error)       { return nil, nil }
func (m *mockStorage) Exists(ctx context.Context, path string) bool                { return true }
func (m *mockStorage) Delete(ctx context.Context, path string) error               { return nil }
func (m *mockStorage) GetFullPath(relativePath string) string                      { return "/data/" + relativePath }

func newTestWorker(repo *mockDocumentRepo, extractor *mockExtractor) *ExtractionWorker {
	w := NewExtractionWorker(repo, extractor, &mockStorage{}, ExtractionWorkerConfig{}, zap.NewNop())
	w.ctx, w.cancel = context.WithCancel(context.Background())
	return w
}

func TestProcessDocument_Success(t *testing.T) {
	doc := &entity.Document{ID: 7, FilePath: "receipts/7_invoice.pdf", ContentType: "application/pdf"}
	purchaseDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	var recordedSupplier string
	var recordedCents int64
	repo := &mockDocumentRepo{
		claimFn: func(ctx context.Context, id int64) (bool, error) { return true, nil },
		setExtractedFn: func(ctx context.Context, id int64, supplier string, date time.Time, cents int64) error {
			recordedSupplier = supplier
			recordedCents = cents
			assert.Equal(t, purchaseDate, date)
			return nil
		},
	}
	extractor := &mockExtractor{
		extractFn: func(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error) {
			assert.Equal(t, "/data/receipts/7_invoice.pdf", filePath)
			return &port.ReceiptFields{
				SupplierName: "Office Depot",
				PurchaseDate: purchaseDate,
				AmountCents:  4599,
				Confidence:   0.98,
			}, nil
		},
	}

	w := newTestWorker(repo, extractor)
	err := w.processDocument(doc)

	require.NoError(t, err)
	assert.Equal(t, "Office Depot", recordedSupplier)
	assert.Equal(t, int64(4599), recordedCents)
}

func TestProcessDocument_ExtractionError(t *testing.T) {
	doc := &entity.Document{ID: 8, FilePath: "receipts/8_blur.jpg", ContentType: "image/jpeg"}

	var failedMessage string
	repo := &mockDocumentRepo{
		claimFn: func(ctx context.Context, id int64) (bool, error) { return true, nil },
		setFailedFn: func(ctx context.Context, id int64, errorMessage string) error {
			failedMessage = errorMessage
			return nil
		},
	}
	extractor := &mockExtractor{
		extractFn: func(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error) {
			return nil, errors.New("vision call failed")
		},
	}

	w := newTestWorker(repo, extractor)
	err := w.processDocument(doc)

	require.Error(t, err)
	assert.Contains(t, failedMessage, "vision call failed")
}

func TestProcessDocument_EmptyFieldsAreFatal(t *testing.T) {
	doc := &entity.Document{ID: 9, FilePath: "receipts/9_blank.png", ContentType: "image/png"}

	var failed bool
	repo := &mockDocumentRepo{
		claimFn: func(ctx context.Context, id int64) (bool, error) { return true, nil },
		setFailedFn: func(ctx context.Context, id int64, errorMessage string) error {
			failed = true
			return nil
		},
	}
	extractor := &mockExtractor{
		extractFn: func(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error) {
			return &port.ReceiptFields{SupplierName: "", AmountCents: 0}, nil
		},
	}

	w := newTestWorker(repo, extractor)
	err := w.processDocument(doc)

	require.Error(t, err)
	assert.True(t, failed)
}

func TestProcessDocument_LostClaimIsNotAnError(t *testing.T) {
	doc := &entity.Document{ID: 10}

	repo := &mockDocumentRepo{
		claimFn: func(ctx context.Context, id int64) (bool, error) { return false, nil },
	}
	extractor := &mockExtractor{
		extractFn: func(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error) {
			t.Fatal("extractor must not run for an unclaimed document")
			return nil, nil
		},
	}

	w := newTestWorker(repo, extractor)
	err := w.processDocument(doc)

	assert.NoError(t, err)
}

func TestManager_StartStopOrder(t *testing.T) {
	m := NewManager(zap.NewNop())

	var order []string
	m.Register(&fakeWorker{name: "first", order: &order})
	m.Register(&fakeWorker{name: "second", order: &order})

	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()

	assert.Equal(t, []string{"start first", "start second", "stop second", "stop first"}, order)
	assert.Equal(t, 2, m.Count())
}

type fakeWorker struct {
	name  string
	order *[]string
}

func (f *fakeWorker) Start(ctx context.Context) error {
	*f.order = append(*f.order, "start "+f.name)
	return nil
}

func (f *fakeWorker) Stop() {
	*f.order = append(*f.order, "stop "+f.name)
}

func (f *fakeWorker) Name() string { return f.name }
