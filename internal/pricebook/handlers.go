package pricebook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/label-scanner/internal/label"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20)

const tooLargeMessage = "File is too large. Maximum size is 50MB. Please compress or resize your image."

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoHistory):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// handleHealth reports liveness and the running version
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleListScans returns every scan, newest first
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.service.ListScans()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if scans == nil {
		scans = []*Scan{}
	}
	writeJSON(w, http.StatusOK, scans)
}

// contentTypeFor guesses a content type from the file extension when the
// upload did not carry one
func contentTypeFor(filename, declared string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleUploadScan reads an uploaded label photo
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage)
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a photo of the label."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "The uploaded file is empty.")
		return
	}

	contentType := contentTypeFor(header.Filename, header.Header.Get("Content-Type"))

	scan, err := s.service.ScanLabel(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing scan", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Error saving scan. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// handleExtract reads label text that was recognized elsewhere
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, s.service.ExtractText(req.Text))
}

// handleGetScan returns a single scan
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.service.GetScan(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// handleGetScanFile returns the photo of a scan
func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetScanFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeServiceError(w, err)
			return
		}
		slog.Error("Error reading scan file", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteScan deletes a scan
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteScan(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecordPrice records a price paid
func (s *Server) handleRecordPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product   string          `json:"product"`
		Price     json.RawMessage `json:"price"`
		PriceType PriceType       `json:"price_type"`
		Quantity  int             `json:"quantity"`
		Store     string          `json:"store"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	price, ok := decodePrice(req.Price)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	record, err := s.service.RecordPrice(req.Product, price, req.PriceType, req.Quantity, req.Store)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// decodePrice accepts a JSON number or a string such as "12,49" or "R$ 12,49"
func decodePrice(raw json.RawMessage) (float64, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return parsePriceParam(s)
}

// parsePriceParam parses a price from a query string or JSON string
func parsePriceParam(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if p, ok := label.ParsePrice(s); ok {
		return p, true
	}
	p, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// handlePriceHistory returns the prices recorded for a product
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.PriceHistory(r.URL.Query().Get("product"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*PriceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleComparePrice compares a shelf price with the last price paid
func (s *Server) handleComparePrice(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	price, ok := parsePriceParam(query.Get("price"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	comparison, err := s.service.ComparePrice(query.Get("product"), price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}
