package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/logger"
	"github.com/zhouzirui/medguide/backend/internal/model/chat"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
	"github.com/zhouzirui/medguide/backend/internal/service/ai"
	"github.com/zhouzirui/medguide/backend/internal/service/facility"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "triagectl",
		Short:        "Exercise the triage provider, resolver and facility directory",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logger.Configure(cmd.ErrOrStderr(), level, "console")
		},
	}
	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(resolveCmd())
	cmd.AddCommand(facilitiesCmd())
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <message>",
		Short: "Run the configured analysis provider on a single message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			useMock, _ := cmd.Flags().GetBool("mock")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var provider ai.Provider = ai.NewMockProvider()
			if !useMock {
				provider, err = ai.New(ctx, cfg.AI)
				if err != nil {
					return err
				}
			}

			messages := []chat.Message{chat.NewMessage(chat.RoleUser, strings.Join(args, " "))}
			analysis, err := provider.Analyze(ctx, messages)
			if err != nil {
				return fmt.Errorf("%s analysis failed: %w", provider.Name(), err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"provider": provider.Name(),
				"analysis": analysis,
			})
		},
	}
	cmd.Flags().Duration("timeout", 45*time.Second, "Request timeout")
	cmd.Flags().Bool("mock", false, "Use the offline keyword provider")
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <department>",
		Short: "Print the directory category code for a department label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			department := strings.Join(args, " ")
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", facility.Resolve(department), department)
			return err
		},
	}
}

func facilitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facilities <department>",
		Short: "Query the facility directory (falls back to the built-in list)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var location *triage.Location
			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet || lonSet {
				lat, _ := cmd.Flags().GetFloat64("lat")
				lon, _ := cmd.Flags().GetFloat64("lon")
				location = triage.NewLocation(&lat, &lon)
				if !latSet || !lonSet || location == nil {
					return errors.New("both --lat and --lon must be valid coordinates")
				}
			}

			client := facility.NewClient(cfg.Directory)
			return printJSON(cmd.OutOrStdout(), client.Recommend(cmd.Context(), strings.Join(args, " "), location))
		},
	}
	cmd.Flags().Float64("lat", 0, "Latitude of the search center")
	cmd.Flags().Float64("lon", 0, "Longitude of the search center")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
