package resume

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveDocx(t *testing.T, doc *docx.Docx) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "resume.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	_, err = doc.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return path
}

// writePDF lays out a minimal PDF with one Helvetica text line per page.
func writePDF(t *testing.T, pages ...string) string {
	t.Helper()

	var (
		buf     bytes.Buffer
		offsets []int
	)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	var kids bytes.Buffer
	for i := range pages {
		fmt.Fprintf(&kids, "%d 0 R ", 4+2*i)
	}

	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

func TestExtractTextDocx(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Jane Doe")
	doc.AddParagraph().AddText("Skills: Python, Machine Learning")

	text, err := ExtractText(saveDocx(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills: Python, Machine Learning", text)
}

func TestExtractTextDocxTable(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Experience")
	table := doc.AddTable(1, 2, 0, nil)
	table.TableRows[0].TableCells[0].AddParagraph().AddText("Docker")
	table.TableRows[0].TableCells[1].AddParagraph().AddText("Kubernetes")

	text, err := ExtractText(saveDocx(t, doc))
	require.NoError(t, err)
	assert.Contains(t, text, "Experience")
	assert.Contains(t, text, "Docker")
	assert.Contains(t, text, "Kubernetes")
}

func TestExtractTextDocxNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text renamed"), 0o600))

	_, err := ExtractText(path)
	assert.Error(t, err)
}

func TestExtractTextPDF(t *testing.T) {
	path := writePDF(t, "Jane Doe", "Python, SQL and Machine Learning")

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nPython, SQL and Machine Learning", text)

	attrs := Attributes(text, []string{"Machine Learning", "SQL"})
	assert.Contains(t, attrs, "machine learning")
	assert.Contains(t, attrs, "sql")
}

func TestExtractTextPDFBroken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o600))

	_, err := ExtractText(path)
	assert.Error(t, err)

	_, err = ExtractText(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestExtractTextPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("C++ and Go"), 0o600))

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "C++ and Go", text)
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("resume.odt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{name: "empty", input: "  ", expect: []string{}},
		{name: "punctuation trimmed", input: "Python, SQL. (Django)", expect: []string{"django", "python", "sql"}},
		{name: "plus and hash kept", input: "C++; C#, c", expect: []string{"c", "c#", "c++"}},
		{name: "inner punctuation kept", input: "AI/ML node.js", expect: []string{"ai/ml", "node.js"}},
		{name: "deduplicated", input: "Go go GO", expect: []string{"go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Tokenize(tt.input))
		})
	}
}

func TestAttributesFindsPhrases(t *testing.T) {
	vocabulary := []string{"Machine Learning", "Data Structures", "Python", "UI/UX Design"}

	got := Attributes("Strong in machine   learning and Python; some UI/UX design.", vocabulary)

	assert.Contains(t, got, "machine learning")
	assert.Contains(t, got, "python")
	assert.Contains(t, got, "ui/ux design")
	assert.NotContains(t, got, "data structures")
}

func TestApplicant(t *testing.T) {
	e := Applicant("Student", "Data Structures in C++", []string{"Data Structures"})

	assert.Equal(t, "Student", e.ID)
	assert.Contains(t, e.Attributes, "data structures")
	assert.Contains(t, e.Attributes, "c++")
}
