package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/pkg/utils"
)

// Extractor implements port.ReceiptExtractor using the OpenAI Vision API.
// PDF receipts are rendered to images with mupdf first; image receipts are
// sent as-is.
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewExtractor creates a new vision-backed receipt extractor
func NewExtractor(apiKey, model string, logger *zap.Logger) *Extractor {
	return &Extractor{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// extractedReceipt is the JSON shape the model is asked to return
type extractedReceipt struct {
	SupplierName string  `json:"supplier_name"`
	PurchaseDate string  `json:"purchase_date"`
	TotalAmount  float64 `json:"total_amount"`
	Currency     string  `json:"currency"`
	Confidence   float64 `json:"confidence"`
}

// Extract reads a receipt file and extracts structured fields with Vision
func (e *Extractor) Extract(ctx context.Context, filePath, contentType string) (*port.ReceiptFields, error) {
	e.logger.Info("Extracting receipt data with Vision API",
		zap.String("path", filePath),
		zap.String("content_type", contentType))

	images, err := e.convertToImages(filePath)
	if err != nil {
		e.logger.Error("Failed to prepare receipt images", zap.Error(err))
		return nil, fmt.Errorf("failed to prepare receipt: %w", err)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages extracted from receipt")
	}

	// Limit to first 2 pages to control costs
	maxPages := 2
	if len(images) < maxPages {
		maxPages = len(images)
	}

	return e.extractWithVision(ctx, images[:maxPages])
}

// convertToImages renders PDF pages to JPEG images using mupdf, or reads
// image files directly
func (e *Extractor) convertToImages(path string) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("receipt file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			return e.readImageFile(path)
		}
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var images [][]byte
	pageCount := doc.NumPage()

	e.logger.Debug("Processing PDF", zap.Int("total_pages", pageCount))

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			e.logger.Warn("Failed to render page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		imgBytes, err := encodeJPEG(img)
		if err != nil {
			e.logger.Warn("Failed to encode page to JPEG",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		images = append(images, imgBytes)
	}

	return images, nil
}

// readImageFile reads an image receipt directly, re-encoding to JPEG
func (e *Extractor) readImageFile(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imgBytes, err := encodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return [][]byte{imgBytes}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// extractWithVision sends the receipt images to the Vision API and parses
// the structured response
func (e *Extractor) extractWithVision(ctx context.Context, images [][]byte) (*port.ReceiptFields, error) {
	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: receiptVisionPrompt,
		},
	}

	for i, imgData := range images {
		base64Img := base64.StdEncoding.EncodeToString(imgData)
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64Img),
				Detail: openai.ImageURLDetailHigh,
			},
		})
		e.logger.Debug("Added image to request", zap.Int("page", i+1), zap.Int("size_bytes", len(imgData)))
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   1024,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert in reading receipts and invoices. You extract supplier names, dates, and totals with perfect accuracy. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("Vision API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from Vision API")
	}

	content := resp.Choices[0].Message.Content

	var extracted extractedReceipt
	if err := json.Unmarshal([]byte(content), &extracted); err != nil {
		// Fallback: some models wrap the JSON in markdown code blocks
		if jsonStr := extractJSON(content); jsonStr != "" {
			err = json.Unmarshal([]byte(jsonStr), &extracted)
		}
		if err != nil {
			e.logger.Error("Failed to parse Vision API response",
				zap.Error(err),
				zap.String("content", content))
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	fields := &port.ReceiptFields{
		SupplierName: strings.TrimSpace(extracted.SupplierName),
		AmountCents:  utils.AmountToCents(extracted.TotalAmount),
		Confidence:   extracted.Confidence,
		RawResponse:  content,
	}

	if extracted.PurchaseDate != "" {
		date, err := time.Parse("2006-01-02", extracted.PurchaseDate)
		if err != nil {
			e.logger.Warn("Could not parse purchase date",
				zap.String("purchase_date", extracted.PurchaseDate))
		} else {
			fields.PurchaseDate = date
		}
	}

	e.logger.Info("Receipt data extracted",
		zap.String("supplier", fields.SupplierName),
		zap.Int64("amount_cents", fields.AmountCents),
		zap.Float64("confidence", fields.Confidence))

	return fields, nil
}

// extractJSON extracts the first balanced JSON object from a string
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if char == '{' {
			braceCount++
		} else if char == '}' {
			braceCount--
			if braceCount == 0 {
				return content[start : i+1]
			}
		}
	}

	return ""
}

var _ port.ReceiptExtractor = (*Extractor)(nil)
