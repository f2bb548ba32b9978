package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/classifier"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Talk to the agent personas",
	}

	cmd.AddCommand(newAgentRosterCmd())
	cmd.AddCommand(newAgentAnalyzeCmd())
	cmd.AddCommand(newAgentChatCmd())
	return cmd
}

func newAgentRosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "List the agent personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSPECIALTIES")
			for _, a := range agent.DefaultRoster() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, strings.Join(a.Specialties, ", "))
			}
			return tw.Flush()
		},
	}
}

func newAgentAnalyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <message>",
		Short: "Classify a message and show which personas would respond",
		Long:  "Runs the keyword classifier locally. No AI service or database is contacted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := classifier.Analyze(strings.Join(args, " "))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			}
			printAnalysis(cmd.OutOrStdout(), a)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full analysis as JSON")
	return cmd
}

func printAnalysis(out io.Writer, a classifier.Analysis) {
	fmt.Fprintf(out, "Intent:   %s\n", a.Intent)
	fmt.Fprintf(out, "Category: %s\n", a.Category)
	fmt.Fprintf(out, "Urgency:  %s\n", a.Urgency)
	if len(a.Activations) == 0 {
		fmt.Fprintln(out, "No persona activated.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nAGENT\tTIER\tCONFIDENCE\tREASONING")
	for _, act := range a.Activations {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\n", act.AgentID, act.Tier, act.Confidence*100, act.Reasoning)
	}
	tw.Flush()
}

func newAgentChatCmd() *cobra.Command {
	var (
		configPath string
		user       string
		offline    bool
	)
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the personas a question",
		Long:  "Classifies the message and prints a reply from every activated persona.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, appOpts{Offline: offline}, func(ctx context.Context, a *app) error {
				var userID string
				if user != "" {
					u, err := userByEmail(ctx, a.db, user)
					if err != nil {
						return err
					}
					userID = u.ID
				}
				res, err := a.dialogue.Submit(ctx, userID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, r := range res.Replies {
					fmt.Fprintf(out, "[%s · %s]\n%s\n", r.AgentName, r.Tier, r.Content)
					if len(r.Handoffs) > 0 {
						fmt.Fprintf(out, "  -> handed off to %s\n", strings.Join(r.Handoffs, ", "))
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&user, "user", "u", envOr("DESK_USER", ""), "account email (optional)")
	cmd.Flags().BoolVar(&offline, "offline", false, "use static AI responses")
	return cmd
}
