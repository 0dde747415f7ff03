package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/ai"
	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultBackoff      = time.Second
)

// Extractor asks Gemini which catalog skills a resume demonstrates.
type Extractor struct {
	generator  contentGenerator
	logger     *zap.Logger
	maxRetries int
	maxLogLen  int
	backoff    time.Duration
}

var _ ai.SkillExtractor = (*Extractor)(nil)

func NewExtractor(generator contentGenerator, log *zap.Logger, maxRetries, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Extractor{
		generator:  generator,
		logger:     logger.OrNop(log),
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
		backoff:    defaultBackoff,
	}
}

// Extract returns the vocabulary entries the model found in text. Answers
// outside the vocabulary are dropped.
func (e *Extractor) Extract(ctx context.Context, text string, vocabulary []string) (*ai.Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("resume text is required")
	}
	if len(vocabulary) == 0 {
		return &ai.Extraction{}, nil
	}

	log := logger.WithCommonFields(e.logger, "gemini", e.generator.Model())
	prompt := buildPrompt(text, vocabulary)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	var (
		raw string
		err error
	)
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn("retrying gemini request", zap.Int("attempt", attempt), zap.Error(err))
			if werr := utils.WaitFor(ctx, time.Duration(attempt)*e.backoff); werr != nil {
				return nil, werr
			}
		}

		raw, err = e.generator.GenerateContent(ctx, prompt)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	skills, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	return &ai.Extraction{Skills: restrict(skills, vocabulary), Raw: raw}, nil
}

func buildPrompt(text string, vocabulary []string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Skills:\n{{VOCABULARY}}\n\nResume:\n{{RESUME}}\n\nJSON Response:"
	}

	var list strings.Builder
	for _, skill := range vocabulary {
		list.WriteString("- ")
		list.WriteString(skill)
		list.WriteString("\n")
	}

	prompt := strings.ReplaceAll(template, "{{VOCABULARY}}", strings.TrimRight(list.String(), "\n"))
	prompt = strings.ReplaceAll(prompt, "{{RESUME}}", text)
	return prompt
}

func parseResponse(raw string) ([]string, error) {
	var data struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return data.Skills, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// restrict maps answers onto vocabulary spellings, keeping vocabulary order
// and dropping anything unknown.
func restrict(skills, vocabulary []string) []string {
	found := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		found[entity.Normalize(s)] = struct{}{}
	}

	var out []string
	for _, v := range vocabulary {
		if _, ok := found[entity.Normalize(v)]; ok {
			out = append(out, v)
			delete(found, entity.Normalize(v))
		}
	}

	return out
}
