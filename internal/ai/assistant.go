package ai

import "context"

// Extraction holds the skills an assistant recognised in a document.
type Extraction struct {
	Skills []string
	Raw    string
}

// SkillExtractor finds skills from a known vocabulary in free-form text such
// as a resume.
type SkillExtractor interface {
	Extract(ctx context.Context, text string, vocabulary []string) (*Extraction, error)
}
