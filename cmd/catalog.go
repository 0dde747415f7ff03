package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the companies hiring and the applicants",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()
		c := loadCatalog(config, logger)

		fmt.Println("Companies hiring interns:")
		for _, p := range c.Positions {
			fmt.Printf("  %s - %s\n", p.Name, p.Role)
			fmt.Printf("    Required skills: %s\n", strings.Join(p.Skills, ", "))
		}

		if applicants, _ := cmd.Flags().GetBool("applicants"); applicants {
			fmt.Println("\nApplicants:")
			for _, a := range c.Applicants {
				fmt.Printf("  %s: %s\n", a.Name, strings.Join(a.Skills, ", "))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().BoolP("applicants", "a", false, "list applicants too")
}
