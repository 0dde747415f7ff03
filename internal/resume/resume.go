// Package resume turns uploaded resume documents into attribute tokens.
package resume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"

	"github.com/spigell/skill-matcher/internal/entity"
)

var ErrUnsupportedFormat = errors.New("unsupported resume format")

// ExtractText returns the plain text of a resume. Plain text and markdown
// files are read as is, pdf pages and docx paragraphs are joined by newlines.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading resume: %w", err)
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDocx(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// extractPDF joins the text of every page that has any.
func extractPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed objects
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("reading pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, "\n"), nil
}

func extractDocx(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parsing docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			lines = append(lines, it.String())
		case *docx.Table:
			lines = append(lines, tableLines(it)...)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// tableLines flattens a table into one line per cell paragraph.
func tableLines(t *docx.Table) []string {
	var lines []string
	for _, row := range t.TableRows {
		for _, cell := range row.TableCells {
			for _, p := range cell.Paragraphs {
				lines = append(lines, p.String())
			}
			for _, nested := range cell.Tables {
				lines = append(lines, tableLines(nested)...)
			}
		}
	}
	return lines
}

// Tokenize lowercases text, splits it on whitespace and trims punctuation
// around each word. '+' and '#' survive so that "c++" and "c#" stay intact.
// The result is sorted and free of duplicates.
func Tokenize(text string) []string {
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, isTrimmable)
		if word == "" {
			continue
		}
		seen[word] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)

	return out
}

func isTrimmable(r rune) bool {
	if r == '+' || r == '#' {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Attributes returns the tokens of text together with every multi-word
// vocabulary entry found in it as a phrase.
func Attributes(text string, vocabulary []string) []string {
	tokens := Tokenize(text)
	joined := " " + strings.Join(words(text), " ") + " "

	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}

	for _, v := range vocabulary {
		phrase := words(v)
		if len(phrase) < 2 {
			continue
		}
		key := strings.Join(phrase, " ")
		if _, ok := seen[key]; ok {
			continue
		}
		if strings.Contains(joined, " "+key+" ") {
			seen[key] = struct{}{}
			tokens = append(tokens, key)
		}
	}
	sort.Strings(tokens)

	return tokens
}

// Applicant builds a side-A entity from resume text.
func Applicant(id, text string, vocabulary []string) entity.Entity {
	return entity.New(id, Attributes(text, vocabulary)...)
}

func words(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimFunc(f, isTrimmable); f != "" {
			out = append(out, f)
		}
	}
	return out
}
