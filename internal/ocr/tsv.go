package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// word is one recognized token from tesseract's TSV output.
type word struct {
	block int
	par   int
	line  int
	text  string
	conf  float64 // 0..1
}

// tesseractTSV recognizes one page image and returns its word stream.
//
// TSV columns: level page_num block_num par_num line_num word_num
// left top width height conf text. Word rows carry level 5 and a
// non-negative confidence in 0..100.
func (e *TesseractEngine) tesseractTSV(ctx context.Context, img string) ([]word, error) {
	args := []string{img, "stdout", "-l", e.cfg.Language, "tsv"}
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("recognize page: %w", errBackend)
	}

	var words []word
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || ln == "" { // header
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" { // only word-level rows carry text
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := cols[11]
		if strings.TrimSpace(text) == "" {
			continue
		}
		block, _ := strconv.Atoi(cols[2])
		par, _ := strconv.Atoi(cols[3])
		line, _ := strconv.Atoi(cols[4])
		words = append(words, word{
			block: block,
			par:   par,
			line:  line,
			text:  text,
			conf:  conf / 100.0,
		})
	}
	return words, nil
}

// assembleText rebuilds page text from the word stream, one output line per
// recognized line.
func assembleText(words []word) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	prev := words[0]
	for i, w := range words {
		if i > 0 {
			if w.block != prev.block || w.par != prev.par || w.line != prev.line {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.text)
		prev = w
	}
	return b.String()
}
