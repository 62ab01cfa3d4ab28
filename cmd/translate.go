package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var translateCmd = &cobra.Command{
	Use:   "translate TEXT...",
	Short: "Translate text into another language",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		translate(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().String("to", "", "target language name or code, e.g. Japanese or ja")
	translateCmd.Flags().String("from", "", "source language (detected when empty)")
	translateCmd.MarkFlagRequired("to")
}

func translate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, config := bootstrap()
	defer logger.Sync()

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing services", zap.Error(err))
	}
	defer svc.Close()

	settings := config.translationSettings()
	settings.TargetLanguage, _ = cmd.Flags().GetString("to")
	settings.SourceLanguage, _ = cmd.Flags().GetString("from")

	result := svc.translator.Translate(ctx, strings.Join(args, " "), settings)
	if !result.Success {
		logger.Warn("translation failed, printing the original text", zap.String("error", result.Error))
	} else if result.DetectedLanguage != "" {
		logger.Debug("translated", zap.String("detected_language", result.DetectedLanguage))
	}

	fmt.Println(result.TranslatedText)
}
