package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"slidebanai-backend/internal/shared/telemetry"
)

// OCREngine hands out recognition workers. Each Extract call owns exactly one worker.
type OCREngine interface {
	NewWorker(ctx context.Context) (OCRWorker, error)
}

// OCRWorker is a scoped OCR resource. Terminate must be safe to call after a failed Recognize.
type OCRWorker interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Terminate() error
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (text string, err error) {
	if e.OCR == nil {
		return "", errOCRNotConfigured
	}
	img, err := normalizeImage(data)
	if err != nil {
		return "", err
	}

	worker, err := e.OCR.NewWorker(ctx)
	if err != nil {
		return "", fmt.Errorf("start ocr worker: %w", err)
	}
	defer func() {
		if termErr := worker.Terminate(); termErr != nil {
			telemetry.Warn("extract.ocr.terminate_failed", map[string]any{"error": termErr.Error()})
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("ocr worker panic: %v", rec)
		}
	}()

	return worker.Recognize(ctx, img)
}

var execCommand = exec.CommandContext

var errWorkerTerminated = errors.New("ocr worker terminated")

// TesseractEngine runs the tesseract CLI, one private temp dir per worker.
type TesseractEngine struct {
	Binary   string
	Language string
	TempDir  string
}

func NewTesseractEngine(binary, language string) *TesseractEngine {
	if strings.TrimSpace(binary) == "" {
		binary = "tesseract"
	}
	if strings.TrimSpace(language) == "" {
		language = "eng"
	}
	return &TesseractEngine{Binary: binary, Language: language}
}

func (t *TesseractEngine) NewWorker(ctx context.Context) (OCRWorker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(t.TempDir, "ocr-*")
	if err != nil {
		return nil, fmt.Errorf("ocr temp dir: %w", err)
	}
	return &tesseractWorker{engine: t, dir: dir}, nil
}

type tesseractWorker struct {
	engine *TesseractEngine
	mu     sync.Mutex
	dir    string
}

func (w *tesseractWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	w.mu.Lock()
	dir := w.dir
	w.mu.Unlock()
	if dir == "" {
		return "", errWorkerTerminated
	}

	input := filepath.Join(dir, "input.png")
	if err := os.WriteFile(input, image, 0o600); err != nil {
		return "", fmt.Errorf("write ocr input: %w", err)
	}

	cmd := execCommand(ctx, w.engine.Binary, input, "stdout", "-l", w.engine.Language)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("tesseract: %w", err)
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, msg)
	}
	return stdout.String(), nil
}

func (w *tesseractWorker) Terminate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir == "" {
		return nil
	}
	err := os.RemoveAll(w.dir)
	w.dir = ""
	return err
}
