package pricebook

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/label-scanner/internal/label"
	"github.com/zombor/label-scanner/internal/scanning"
)

// verdictThreshold is how far, in percent, a shelf price must move from the
// last price paid before it counts as cheaper or more expensive.
const verdictThreshold = 5.0

// IDGenerator generates unique IDs for scans and price records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles label scans and price history
type Service struct {
	db          DB
	recognizer  scanning.Recognizer
	extractor   *label.Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, recognizer scanning.Recognizer, extractor *label.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, recognizer, extractor, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer scanning.Recognizer, extractor *label.Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	if extractor == nil {
		extractor = label.MustNew(label.DefaultTable())
	}
	return &Service{
		db:          db,
		recognizer:  recognizer,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone generated file names: special characters
// are removed and the base name is truncated to 50 characters.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)
	if len(ext) < 2 || unsafeFilenameChars.MatchString(ext[1:]) {
		ext = ""
	}

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "label"
	}
	return base + ext
}

// ScanLabel stores a label photo, reads it and saves what was found. Recognition
// problems do not fail the scan: the photo is kept with an empty result so the
// shopper can fill the fields in by hand.
func (s *Service) ScanLabel(ctx context.Context, filename string, data []byte, contentType string) (*Scan, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text := s.recognize(ctx, filename, data, contentType)
	result := s.extractor.Extract(text)

	scan := &Scan{
		ID:          id,
		Result:      result,
		RawText:     text,
		Filename:    savedPath,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveScan(scan); err != nil {
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("saving scan to database: %w", err)
	}

	slog.Info("Scanned label",
		"id", id,
		"found", !result.Empty(),
		"text_length", len(text),
	)
	return scan, nil
}

// recognize crops the photo to the camera guide box and reads its text.
// Any failure gives an empty string.
func (s *Service) recognize(ctx context.Context, filename string, data []byte, contentType string) string {
	imageData, imageType := data, contentType
	if cropped, err := scanning.CropGuideBox(data, contentType); err != nil {
		slog.Warn("Could not crop label photo, using the full image",
			"filename", filename,
			"content_type", contentType,
			"error", err,
		)
	} else {
		imageData, imageType = cropped, "image/jpeg"
	}

	text, err := s.recognizer.Recognize(ctx, imageData, imageType)
	switch {
	case errors.Is(err, scanning.ErrNoText):
		slog.Info("No text found on label", "filename", filename)
		return ""
	case err != nil:
		slog.Error("Failed to recognize label",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return ""
	}
	return text
}

// ExtractText reads already recognized label text
func (s *Service) ExtractText(text string) label.Result {
	return s.extractor.Extract(text)
}

// GetScan retrieves a scan by ID
func (s *Service) GetScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return scan, nil
}

// ListScans returns all scans, newest first
func (s *Service) ListScans() ([]*Scan, error) {
	scans, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	slices.SortStableFunc(scans, func(a, b *Scan) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return scans, nil
}

// DeleteScan removes a scan and its photo
func (s *Service) DeleteScan(id string) error {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	if err := s.storage.Delete(scan.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", scan.Filename, "error", err)
	}

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan from database: %w", err)
	}
	return nil
}

// GetScanFile retrieves the photo of a scan
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan: %w", err)
	}

	data, err := s.storage.Get(scan.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan file: %w", err)
	}

	return data, scan.ContentType, nil
}

// RecordPrice saves a price paid for a product. An empty price type means
// varejo and a zero quantity means one unit.
func (s *Service) RecordPrice(product string, price float64, priceType PriceType, quantity int, store string) (*PriceRecord, error) {
	product = strings.Join(strings.Fields(product), " ")
	key := label.Key(product)
	if key == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if !validPrice(price) {
		return nil, fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	}
	switch priceType {
	case "":
		priceType = Varejo
	case Varejo, Atacado:
	default:
		return nil, fmt.Errorf("%w: unknown price type %q", ErrInvalidInput, priceType)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}

	record := &PriceRecord{
		ID:         s.idGenerator.Generate(),
		Product:    product,
		ProductKey: key,
		Price:      price,
		PriceType:  priceType,
		Quantity:   quantity,
		Store:      strings.TrimSpace(store),
		RecordedAt: s.timeSource.Now(),
	}

	if err := s.db.SavePrice(record); err != nil {
		return nil, fmt.Errorf("saving price record: %w", err)
	}
	return record, nil
}

// PriceHistory returns the prices recorded for a product, newest first.
// Product names match regardless of case and accents.
func (s *Service) PriceHistory(product string) ([]*PriceRecord, error) {
	key := label.Key(product)
	if key == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}

	records, err := s.db.ListPrices(key)
	if err != nil {
		return nil, fmt.Errorf("listing prices: %w", err)
	}
	slices.SortStableFunc(records, func(a, b *PriceRecord) int {
		return cmp.Or(b.RecordedAt.Compare(a.RecordedAt), strings.Compare(b.ID, a.ID))
	})
	return records, nil
}

// ComparePrice compares a shelf price with the newest price recorded for the
// product. More than 5% below is cheaper, more than 5% above is expensive.
func (s *Service) ComparePrice(product string, current float64) (*Comparison, error) {
	if !validPrice(current) {
		return nil, fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	}

	history, err := s.PriceHistory(product)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%s: %w", product, ErrNoHistory)
	}

	last := history[0]
	diff := math.Round((current-last.Price)/last.Price*100*100) / 100

	verdict := Average
	switch {
	case diff < -verdictThreshold:
		verdict = Cheaper
	case diff > verdictThreshold:
		verdict = Expensive
	}

	return &Comparison{
		Product:      last.Product,
		LastPrice:    last.Price,
		CurrentPrice: current,
		DiffPercent:  diff,
		Verdict:      verdict,
		Last:         last,
	}, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
