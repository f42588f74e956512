package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/label-scanner/internal/label"
	"github.com/zombor/label-scanner/internal/pricebook"
	"github.com/zombor/label-scanner/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// recognizerConfig holds the flags that select and configure text recognition
type recognizerConfig struct {
	kind          string
	ocrSpaceKey   string
	ocrSpaceURL   string
	tesseractLang string
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("label-scanner")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "label-scanner.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./labels", "Label photo storage directory")
		kind          = fs.StringLong("recognizer", "ocrspace", "Text recognizer: ocrspace, tesseract, gemini, ollama or fallback")
		ocrSpaceKey   = fs.StringLong("ocrspace-key", "", "OCR.space API key (or set OCRSPACE_API_KEY env var)")
		ocrSpaceURL   = fs.StringLong("ocrspace-url", "", "OCR.space endpoint (default: public API)")
		tesseractLang = fs.StringLong("tesseract-lang", "por", "Tesseract language")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		vocabulary    = fs.StringLong("vocabulary", "", "YAML file with product name vocabulary overrides")
		extractPath   = fs.StringLong("extract", "", "Read label text from FILE (- for stdin), print the extracted fields and exit")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("LABEL_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	extractor, err := loadExtractor(*vocabulary)
	if err != nil {
		slog.Error("Failed to load vocabulary", "path", *vocabulary, "error", err)
		os.Exit(1)
	}

	if *extractPath != "" {
		if err := runExtract(extractor, *extractPath, os.Stdin, os.Stdout); err != nil {
			slog.Error("Extraction failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := pricebook.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recognizer, err := newRecognizer(recognizerConfig{
		kind:          *kind,
		ocrSpaceKey:   firstNonEmpty(*ocrSpaceKey, os.Getenv("OCRSPACE_API_KEY")),
		ocrSpaceURL:   *ocrSpaceURL,
		tesseractLang: *tesseractLang,
		geminiKey:     firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize recognizer", "recognizer", *kind, "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := pricebook.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := pricebook.NewService(db, recognizer, extractor, store)

	basicAuth := pricebook.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := pricebook.NewServer(service, basicAuth, version)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// loadExtractor builds the label extractor, merging a vocabulary file over
// the built-in table when one is given
func loadExtractor(vocabularyPath string) (*label.Extractor, error) {
	table := label.DefaultTable()
	if vocabularyPath != "" {
		var err error
		table, err = label.LoadTable(vocabularyPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded vocabulary", "path", vocabularyPath, "rules", len(table.Rules))
	}
	return label.New(table)
}

// runExtract reads label text from path, or stdin for "-", and writes the
// extracted fields as JSON
func runExtract(extractor *label.Extractor, path string, stdin io.Reader, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading label text: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(extractor.Extract(string(data))); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// newRecognizer builds the recognizer selected by cfg.kind
func newRecognizer(cfg recognizerConfig) (scanning.Recognizer, error) {
	switch cfg.kind {
	case "ocrspace":
		slog.Info("Initializing OCR.space recognizer...")
		r, err := scanning.NewOCRSpace(cfg.ocrSpaceKey, cfg.ocrSpaceURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "language", cfg.tesseractLang)
		r, err := scanning.NewTesseract(cfg.tesseractLang)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "gemini":
		slog.Info("Initializing Gemini recognizer...", "model", cfg.geminiModel)
		r, err := scanning.NewGemini(cfg.geminiKey, cfg.geminiModel)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		r, err := scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "fallback":
		return newFallback(cfg)
	default:
		return nil, fmt.Errorf("invalid recognizer type %q (valid: ocrspace, tesseract, gemini, ollama, fallback)", cfg.kind)
	}
}

// newFallback chains every hosted provider that has credentials, then
// the local Tesseract install
func newFallback(cfg recognizerConfig) (scanning.Recognizer, error) {
	var (
		recognizers []scanning.Recognizer
		names       []string
	)
	closeAll := func() {
		for _, r := range recognizers {
			r.Close()
		}
	}

	if cfg.ocrSpaceKey != "" {
		r, err := scanning.NewOCRSpace(cfg.ocrSpaceKey, cfg.ocrSpaceURL)
		if err != nil {
			return nil, err
		}
		recognizers, names = append(recognizers, r), append(names, "ocrspace")
	}
	if cfg.geminiKey != "" {
		r, err := scanning.NewGemini(cfg.geminiKey, cfg.geminiModel)
		if err != nil {
			closeAll()
			return nil, err
		}
		recognizers, names = append(recognizers, r), append(names, "gemini")
	}
	r, err := scanning.NewTesseract(cfg.tesseractLang)
	if err != nil {
		closeAll()
		return nil, err
	}
	recognizers, names = append(recognizers, r), append(names, "tesseract")

	slog.Info("Initializing fallback recognizer...", "order", strings.Join(names, ","))
	return scanning.NewFallback(recognizers, names), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
