package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/matching"
)

const PromptExit = "exit"

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank open listings for a profile once and browse the results",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("profile", "p", "", "profile id to match (prompted when empty)")
	matchCmd.Flags().Bool("output-json", false, "print results as JSON to stdout instead of browsing them")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()
	defer logger.Sync()

	profileID, _ := cmd.Flags().GetString("profile")
	asJSON, _ := cmd.Flags().GetBool("output-json")

	if strings.TrimSpace(profileID) == "" {
		if asJSON {
			logger.Fatal("--profile is required with --output-json")
		}
		var err error
		profileID, err = askProfileID()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing services", zap.Error(err))
	}
	defer svc.Close()

	outcome := svc.orchestrator.FindMatches(ctx, strings.TrimSpace(profileID))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome.Results); err != nil {
			logger.Fatal("encoding results", zap.Error(err))
		}
		return
	}

	logger.Info("matches found",
		zap.String("source", string(outcome.Source)),
		zap.Int("count", len(outcome.Results)),
	)

	if len(outcome.Results) == 0 {
		logger.Info("exiting", zap.String("reason", "no matches"))
		return
	}

	if err := browseResults(outcome.Results); err != nil && !errors.Is(err, promptui.ErrInterrupt) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func askProfileID() (string, error) {
	prompt := promptui.Prompt{
		Label: "Profile ID",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("profile id must not be empty")
			}
			return nil
		},
	}
	return prompt.Run()
}

// browseResults lists the results until the user picks exit.
func browseResults(results []matching.MatchResult) error {
	items := make([]string, 0, len(results)+1)
	for _, r := range results {
		items = append(items, resultLabel(r))
	}
	items = append(items, PromptExit)

	for {
		resultPrompt := promptui.Select{
			Label: "Choose a listing and press ENTER",
			Items: items,
			Size:  10,
		}

		idx, selected, err := resultPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptExit {
			return nil
		}

		fmt.Println(describeResult(results[idx]))
	}
}

func resultLabel(r matching.MatchResult) string {
	label := fmt.Sprintf("%3d%% %s", r.MatchPercentage, r.Name)
	if r.Role != "" {
		label += " / " + r.Role
	}
	return label + " / " + r.Location
}

func describeResult(r matching.MatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s), %d%% match\n", r.Name, r.Location, r.MatchPercentage)
	for _, line := range []struct{ key, value string }{
		{"Languages", strings.Join(r.Languages, ", ")},
		{"Skills", strings.Join(r.Skills, ", ")},
		{"Duration", r.Duration},
		{"Work arrangement", r.WorkArrangement},
		{"Compensation", r.Compensation},
	} {
		if line.value != "" {
			fmt.Fprintf(&b, "  %s: %s\n", line.key, line.value)
		}
	}
	for _, reason := range r.MatchReasons {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}
	return b.String()
}
