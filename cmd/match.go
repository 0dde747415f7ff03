package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/assignment"
	"github.com/spigell/skill-matcher/internal/catalog"
	"github.com/spigell/skill-matcher/internal/entity"
)

const (
	PromptApplicant = "Applicant"
	PromptPosition  = "Company"
	PromptAll       = "Show all matches"
	PromptExit      = "exit"
	PromptBack      = "back"
)

var errExit = errors.New("exit requested")

var entityTypePrompt = promptui.Select{
	Label: "Select entity type",
	Items: []string{PromptApplicant, PromptPosition, PromptAll, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match every applicant with a company and look up the results",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("entity", "e", "", "print the match of one applicant or company and exit")
	matchCmd.Flags().BoolP("all", "a", false, "print every matched pair and exit")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()
	c := loadCatalog(config, logger)

	applicants, err := filterSide(ctx, config, logger, entity.SideA, c.ApplicantEntities())
	if err != nil {
		logger.Fatal("filtering applicants", zap.Error(err))
	}

	positions, err := filterSide(ctx, config, logger, entity.SideB, c.PositionEntities())
	if err != nil {
		logger.Fatal("filtering positions", zap.Error(err))
	}

	a, err := assignment.Compute(ctx, applicants, positions, assignment.Options{
		MaxCardinality: config.Matching.MaxCardinality,
		Timeout:        config.Matching.Timeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("computing matches", zap.Error(err))
	}

	logger.Info("matching completed",
		zap.String("assignment_id", a.ID),
		zap.Int("pairs", a.Matching.Len()),
		zap.Int64("weight", a.Weight()),
	)

	if id, _ := cmd.Flags().GetString("entity"); id != "" {
		if !a.Has(id) {
			logger.Fatal("unknown entity", zap.String("entity", id))
		}
		printLookup(c, a, id)
		return
	}

	if all, _ := cmd.Flags().GetBool("all"); all {
		printAll(c, a)
		return
	}

	for {
		_, action, err := entityTypePrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchAction(action, c, a, applicants, positions); err != nil {
			if errors.Is(err, errExit) {
				logger.Info("exiting", zap.String("reason", "got exit from prompt"))
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleMatchAction(action string, c *catalog.Catalog, a *assignment.Assignment, applicants, positions []entity.Entity) error {
	switch action {
	case PromptApplicant:
		return selectAndPrint(c, a, "Select an applicant", entity.IDs(applicants))
	case PromptPosition:
		return selectAndPrint(c, a, "Select a company", entity.IDs(positions))
	case PromptAll:
		printAll(c, a)
		return nil
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func selectAndPrint(c *catalog.Catalog, a *assignment.Assignment, label string, ids []string) error {
	prompt := promptui.Select{
		Label: label,
		Items: append(ids, PromptBack),
		Size:  10,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return err
	}

	if selected == PromptBack {
		return nil
	}

	printLookup(c, a, selected)
	return nil
}

func printLookup(c *catalog.Catalog, a *assignment.Assignment, id string) {
	m, ok := a.Lookup(id)
	if !ok {
		fmt.Printf("%s has no match.\n", id)
		return
	}

	fmt.Printf("%s is matched with %s\n", id, describe(c, m.Partner))
	fmt.Printf("  Shared skills: %s\n", m.Label)
}

func printAll(c *catalog.Catalog, a *assignment.Assignment) {
	matches := a.Matches()
	if len(matches) == 0 {
		fmt.Println("No matches found.")
		return
	}

	for _, m := range matches {
		fmt.Printf("%s -> %s [%s]\n", m.Entity, describe(c, m.Partner), m.Label)
	}

	if unmatched := a.Unmatched(entity.SideA); len(unmatched) > 0 {
		fmt.Printf("Without a match: %s\n", strings.Join(unmatched, ", "))
	}
}

// describe renders a company together with its role.
func describe(c *catalog.Catalog, name string) string {
	if p, ok := c.Position(name); ok && p.Role != "" {
		return fmt.Sprintf("%s (%s)", name, p.Role)
	}
	return name
}
