package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/assignment"
	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/filtering"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/resume"
	"github.com/spigell/skill-matcher/internal/utils"
)

const excludeReasonRecommended = "recommended"

var recommendCmd = &cobra.Command{
	Use:   "recommend <resume-file>",
	Short: "Recommend the best position for a resume (pdf, docx, txt or md)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recommend(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("name", "n", "Student", "name of the applicant in the matching graph")
	recommendCmd.Flags().Bool("dump", false, "dump the matching graph to a temporary JSON file")
	recommendCmd.Flags().Bool("exclude-matched", false, "append the recommended company to filters.exclude-file")
	recommendCmd.Flags().Bool("ai", false, "extract skills with the configured AI provider as well")
}

func recommend(cmd *cobra.Command, path string) {
	ctx := context.Background()
	base, config := setup()
	c := loadCatalog(config, base)

	name, _ := cmd.Flags().GetString("name")
	log := logger.WithFields(base, logger.EntityFields(entity.SideA.String(), name)...)

	text, err := resume.ExtractText(path)
	if err != nil {
		log.Warn("could not read resume, continuing without skills", zap.String("file", path), zap.Error(err))
		text = ""
	}

	log.Debug("resume text extracted",
		zap.String("file", path),
		zap.String("preview", utils.TruncateForLog(text, config.AI.Gemini.MaxLogLength)),
	)

	vocabulary := c.Vocabulary()
	applicant := resume.Applicant(name, text, vocabulary)

	useAI, _ := cmd.Flags().GetBool("ai")
	if (useAI || config.AI.Enabled) && strings.TrimSpace(text) != "" {
		applicant.Attributes = append(applicant.Attributes, extractWithAI(ctx, config, log, text, vocabulary)...)
	}

	log.Debug("applicant skills", zap.Strings("skills", applicant.Normalized()))

	positions, err := filterSide(ctx, config, log, entity.SideB, c.PositionEntities())
	if err != nil {
		log.Fatal("filtering positions", zap.Error(err))
	}

	a, err := assignment.Compute(ctx, []entity.Entity{applicant}, positions, assignment.Options{
		MaxCardinality: config.Matching.MaxCardinality,
		Timeout:        config.Matching.Timeout,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("computing recommendation", zap.Error(err))
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := a.DumpToTmpFile()
		if err != nil {
			log.Fatal("dump results to file", zap.Error(err))
		}
		log.Info("dumping result to file", zap.String("filename", filename))
	}

	m, ok := a.Lookup(name)
	if !ok {
		fmt.Println("No strong match found. Try improving your resume skills!")
		return
	}

	p, _ := c.Position(m.Partner)
	fmt.Printf("Best matching internship: %s at %s\n", p.Role, p.Name)
	fmt.Printf("  Matching skills: %s\n", m.Label)

	if exclude, _ := cmd.Flags().GetBool("exclude-matched"); exclude {
		if err := excludeRecommended(config.Filters.ExcludeFile, m.Partner); err != nil {
			log.Fatal("appending to exclude file", zap.Error(err))
		}
		log.Info("appended to exclude file",
			zap.String("filename", config.Filters.ExcludeFile),
			zap.String("company", m.Partner),
		)
	}
}

func extractWithAI(ctx context.Context, config *Config, log *zap.Logger, text string, vocabulary []string) []string {
	extractor, err := newSkillExtractor(ctx, config.AI, log)
	if err != nil {
		log.Warn("skipping AI skill extraction", zap.Error(err))
		return nil
	}

	extraction, err := extractor.Extract(ctx, text, vocabulary)
	if err != nil {
		log.Warn("AI skill extraction failed", zap.Error(err))
		return nil
	}

	log.Info("skills extracted by AI", zap.Strings("skills", extraction.Skills))
	return extraction.Skills
}

func excludeRecommended(path, company string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("filters.exclude-file is not configured")
	}

	excluded, err := filtering.ExcludedFromFile(path)
	if err != nil {
		return err
	}

	excluded.Append(filtering.NewExcludedEntities(excludeReasonRecommended, company))
	return excluded.ToFile(path)
}
