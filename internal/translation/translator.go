// Package translation translates free text through the completion service,
// falling back to the original text whenever the service cannot help.
package translation

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/ai"
	"github.com/in-c0/langtern/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	DefaultTimeout      = 20 * time.Second
)

var (
	ErrTargetRequired     = errors.New("target language is required")
	ErrServiceUnavailable = errors.New("translation service is not configured")
	ErrEmptyTranslation   = errors.New("translation service returned an empty reply")
)

// Settings are the per-call translation preferences.
type Settings struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	SourceLanguage string `json:"sourceLanguage,omitempty" mapstructure:"source-language"`
	TargetLanguage string `json:"targetLanguage" mapstructure:"target-language"`
	AutoDetect     bool   `json:"autoDetect" mapstructure:"auto-detect"`
}

// Result is always usable: on failure TranslatedText holds the original text.
type Result struct {
	TranslatedText   string `json:"translatedText"`
	Success          bool   `json:"success"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Error            string `json:"error,omitempty"`
}

type Translator struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
	timeout   time.Duration
}

func NewTranslator(completer ai.Completer, logger *zap.Logger, maxLogLength int, timeout time.Duration) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Translator{completer: completer, logger: logger, maxLogLen: maxLogLength, timeout: timeout}
}

// Translate makes at most one completion call, bounded by the translator
// timeout.
func (t *Translator) Translate(ctx context.Context, text string, settings Settings) Result {
	if strings.TrimSpace(text) == "" || !settings.Enabled {
		return Result{TranslatedText: text, Success: true}
	}

	target := NormalizeLanguage(settings.TargetLanguage)
	if target == "" {
		return failed(text, ErrTargetRequired)
	}
	source := NormalizeLanguage(settings.SourceLanguage)
	if source != "" && strings.EqualFold(source, target) {
		return Result{TranslatedText: text, Success: true, DetectedLanguage: source}
	}
	if t.completer == nil {
		return failed(text, ErrServiceUnavailable)
	}

	prompt := buildPrompt(text, source, target, settings.AutoDetect)
	t.logger.Debug("translation request",
		zap.String("target", target),
		zap.String("source", source),
		zap.Int("text_length", utf8.RuneCountInString(text)),
	)

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	raw, err := t.completer.Complete(callCtx, prompt)
	if err != nil {
		t.logger.Warn("translation failed, returning original text", zap.Error(err))
		return failed(text, err)
	}

	t.logger.Debug("translation response",
		zap.String("response_preview", utils.TruncateForLog(raw, t.maxLogLen)),
	)

	translated, detected := parseReply(raw)
	if translated == "" {
		t.logger.Warn("translation reply was empty, returning original text")
		return failed(text, ErrEmptyTranslation)
	}
	if detected == "" {
		detected = source
	}

	return Result{TranslatedText: translated, Success: true, DetectedLanguage: detected}
}

func failed(text string, err error) Result {
	return Result{TranslatedText: text, Success: false, Error: err.Error()}
}

func buildPrompt(text, source, target string, autoDetect bool) string {
	sourceLine := "Detect the source language."
	switch {
	case source != "":
		sourceLine = "The text is written in " + source + "."
	case !autoDetect:
		sourceLine = ""
	}

	return strings.NewReplacer(
		"{{TARGET}}", target,
		"{{SOURCE_LINE}}", sourceLine,
		"{{TEXT}}", text,
	).Replace(promptTemplate)
}

type reply struct {
	Translation      *string `json:"translation"`
	DetectedLanguage string  `json:"detectedLanguage"`
}

// parseReply prefers the requested JSON object and otherwise treats the
// whole reply, minus code fences, as the translation. An object that carries
// a blank "translation" yields "", which the caller reports as a failure.
func parseReply(raw string) (translation, detected string) {
	cleaned := utils.StripCodeFences(raw)

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start != -1 && end > start {
		var r reply
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &r); err == nil && r.Translation != nil {
			return strings.TrimSpace(*r.Translation), NormalizeLanguage(r.DetectedLanguage)
		}
	}

	return strings.TrimSpace(cleaned), ""
}
