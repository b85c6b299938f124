package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/srt-editor/internal/session"
	"github.com/MimeLyc/srt-editor/internal/subtitle"
	"github.com/MimeLyc/srt-editor/pkg/file"
	"github.com/MimeLyc/srt-editor/pkg/log"
)

type translateCmd struct {
	Input     string `arg:"positional,required" help:"SRT file to translate"`
	Lang      string `arg:"-l,--lang" help:"target language (default: DEFAULT_TARGET_LANGUAGE)"`
	Output    string `arg:"-o,--output" help:"output path (default: input name tagged with the language)"`
	NoContext bool   `arg:"--no-context" help:"do not send the whole file as context"`
	APIKey    string `arg:"--api-key" help:"provider API key (default: LLM_API_KEY)"`
}

// translateFile translates every cue of cmd.Input and writes the result,
// returning the output path. Nothing is written when any cue fails.
func translateFile(ctx context.Context, cmd *translateCmd, tr session.Translator, credential, defaultLang string, concurrency int) (string, error) {
	doc, err := subtitle.NewReader().Read(cmd.Input)
	if err != nil {
		return "", err
	}

	lang := strings.TrimSpace(cmd.Lang)
	if lang == "" {
		lang = defaultLang
	}
	out := cmd.Output
	if out == "" {
		out = file.InsertTag(cmd.Input, lang)
	}
	if out == cmd.Input {
		return "", fmt.Errorf("output would overwrite input: %s", out)
	}

	sess := session.NewStore(0).Create(filepath.Base(cmd.Input), doc)
	log.Info("Translating %d cues of %s to %s", len(doc.Cues), cmd.Input, lang)
	if _, err := sess.TranslateAll(ctx, tr, session.DocumentTranslation{
		TargetLanguage: lang,
		IncludeContext: !cmd.NoContext,
		Credential:     credential,
		Concurrency:    concurrency,
	}); err != nil {
		return "", fmt.Errorf("translate %s: %w", cmd.Input, err)
	}

	if err := subtitle.NewWriter().Write(out, sess.Document()); err != nil {
		return "", err
	}
	return out, nil
}
