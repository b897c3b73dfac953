package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"docreader/internal/config"
)

// stubRunner scripts the external binaries. For pdftoppm it materializes the
// requested page files so the glob in pdfToOCR finds them.
type stubRunner struct {
	textLayer  string
	textErr    error
	rasterErr  error
	pageCount  int
	tsvByCall  []string
	tsvErr     error
	tsvCalls   int
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	switch name {
	case "pdftotext":
		return []byte(s.textLayer), nil, s.textErr
	case "pdftoppm":
		if s.rasterErr != nil {
			return nil, []byte("raster stderr"), s.rasterErr
		}
		prefix := args[len(args)-1]
		for i := 1; i <= s.pageCount; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if s.tsvErr != nil {
			return nil, []byte("tesseract stderr"), s.tsvErr
		}
		idx := s.tsvCalls
		s.tsvCalls++
		if idx >= len(s.tsvByCall) {
			idx = len(s.tsvByCall) - 1
		}
		return []byte(s.tsvByCall[idx]), nil, nil
	default:
		return nil, nil, fmt.Errorf("unexpected command %s", name)
	}
}

func tsvDoc(rows ...string) string {
	header := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

func tsvWord(block, par, line int, conf float64, text string) string {
	return fmt.Sprintf("5\t1\t%d\t%d\t%d\t1\t0\t0\t10\t10\t%.2f\t%s", block, par, line, conf, text)
}

func newTestEngine(r Runner) *TesseractEngine {
	e := NewTesseractEngine(config.OCRConfig{}, MeanScore{}, nil)
	e.runner = r
	return e
}

func TestExtractUsesTextLayerWhenPresent(t *testing.T) {
	runner := &stubRunner{textLayer: "Invoice 2024-001\fTotal: 99.50 EUR\n"}
	engine := newTestEngine(runner)

	res, err := engine.Extract(context.Background(), "/tmp/doc.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Method != "pdf-text" {
		t.Fatalf("expected pdf-text method, got %s", res.Method)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("digital text layer should score 1.0, got %f", res.Confidence)
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", res.Pages)
	}
	if runner.tsvCalls != 0 {
		t.Fatalf("tesseract must not run when the text layer suffices")
	}
}

func TestExtractFallsBackToOCR(t *testing.T) {
	runner := &stubRunner{
		textLayer: "  \n", // no usable text layer
		pageCount: 2,
		tsvByCall: []string{
			tsvDoc(
				tsvWord(1, 1, 1, 90, "Hello"),
				tsvWord(1, 1, 1, 80, "world"),
				tsvWord(1, 1, 2, 70, "below"),
			),
			tsvDoc(
				tsvWord(1, 1, 1, 60, "page2"),
			),
		},
	}
	engine := newTestEngine(runner)

	res, err := engine.Extract(context.Background(), "/tmp/scan.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Method != "pdf-ocr" {
		t.Fatalf("expected pdf-ocr method, got %s", res.Method)
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", res.Pages)
	}
	wantText := "Hello world\nbelow\n\f\npage2"
	if res.Text != wantText {
		t.Fatalf("text mismatch:\nwant %q\ngot  %q", wantText, res.Text)
	}
	// mean of 0.90, 0.80, 0.70, 0.60
	if math.Abs(res.Confidence-0.75) > 1e-9 {
		t.Fatalf("expected mean confidence 0.75, got %f", res.Confidence)
	}
}

func TestExtractBlankPageYieldsEmptyTextZeroConfidence(t *testing.T) {
	runner := &stubRunner{
		textLayer: "",
		pageCount: 1,
		tsvByCall: []string{tsvDoc()}, // no word rows
	}
	engine := newTestEngine(runner)

	res, err := engine.Extract(context.Background(), "/tmp/blank.pdf")
	if err != nil {
		t.Fatalf("blank page is not an error: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text, got %q", res.Text)
	}
	if res.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %f", res.Confidence)
	}
}

func TestExtractSkipsNonWordAndNegativeConfRows(t *testing.T) {
	runner := &stubRunner{
		textLayer: "",
		pageCount: 1,
		tsvByCall: []string{tsvDoc(
			"1\t1\t0\t0\t0\t0\t0\t0\t10\t10\t-1\t", // page row
			"4\t1\t1\t1\t1\t0\t0\t0\t10\t10\t-1\t", // line row
			tsvWord(1, 1, 1, 100, "kept"),
		)},
	}
	engine := newTestEngine(runner)

	res, err := engine.Extract(context.Background(), "/tmp/scan.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Text != "kept" {
		t.Fatalf("expected only word rows in text, got %q", res.Text)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", res.Confidence)
	}
}

func TestExtractErrorsHideBackendDetail(t *testing.T) {
	runner := &stubRunner{textLayer: "", pageCount: 1, tsvErr: errors.New("tessdata path /secret/x missing")}
	engine := newTestEngine(runner)

	_, err := engine.Extract(context.Background(), "/tmp/scan.pdf")
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("backend detail leaked into error: %v", err)
	}
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error cause, got %v", err)
	}
}

func TestExtractPropagatesCancellation(t *testing.T) {
	runner := &stubRunner{textLayer: "long enough text layer here"}
	engine := newTestEngine(runner)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := engine.Extract(ctx, "/tmp/doc.pdf")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestMeanScoreBounds(t *testing.T) {
	policy := MeanScore{}
	if got := policy.Score(nil); got != 0 {
		t.Fatalf("no words should score 0, got %f", got)
	}
	if got := policy.Score([]float64{0.5, 1.5}); got != 1 {
		t.Fatalf("scores clamp to 1, got %f", got)
	}
	if got := policy.Score([]float64{0.2, 0.4}); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected 0.3, got %f", got)
	}
}
