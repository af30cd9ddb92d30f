package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/profile"
)

var postCommand = &cobra.Command{
	Use:   "post",
	Short: "Generate a single LinkedIn post",
	Args:  cobra.NoArgs,
	RunE:  generatePostCmd,
}

var (
	postTopic          string
	postType           string
	postOptimizationID string
	postProfileFile    string
)

func init() {
	postCommand.Flags().StringVarP(&postTopic, "topic", "t", "", "Post topic")
	postCommand.Flags().StringVar(&postType, "type", content.PostTypes()[0], "Post type")
	postCommand.Flags().StringVar(&postOptimizationID, "id", "", "Use the profile from a stored optimization")
	postCommand.Flags().StringVar(&postProfileFile, "profile", "", "Path to a profile JSON file")
	_ = postCommand.MarkFlagRequired("topic")
	rootCmd.AddCommand(postCommand)
}

func generatePostCmd(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	var p *profile.Profile
	switch {
	case postOptimizationID != "":
		res, err := app.Workflow.GetResult(cmd.Context(), postOptimizationID)
		if err != nil {
			return err
		}
		p = res.ProfileData
	case postProfileFile != "":
		p, err = readProfile(postProfileFile)
		if err != nil {
			return err
		}
	}

	post, err := app.Generator.GeneratePost(cmd.Context(), postTopic, postType, p)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), post)
}

func readProfile(path string) (*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	p := profile.Normalize(raw)
	return &p, nil
}
