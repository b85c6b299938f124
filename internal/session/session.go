package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MimeLyc/srt-editor/internal/subtitle"
	"github.com/MimeLyc/srt-editor/internal/translator"
	"github.com/MimeLyc/srt-editor/pkg/log"
	"golang.org/x/sync/errgroup"
)

// DefaultFileName names exports of sessions created without a file name.
const DefaultFileName = "subtitles.srt"

// Translator is the part of translator.Handler a session needs.
type Translator interface {
	Translate(ctx context.Context, req translator.Request, credential string) (string, error)
}

// Session is one loaded subtitle file being edited.
// All access to the document goes through the session's lock.
type Session struct {
	ID        string
	FileName  string
	CreatedAt time.Time

	mu         sync.RWMutex
	doc        *subtitle.Document
	lastAccess time.Time
}

// View is a point-in-time copy of a session.
type View struct {
	ID        string         `json:"id"`
	FileName  string         `json:"fileName"`
	Language  string         `json:"language,omitempty"`
	Skipped   int            `json:"skipped"`
	CreatedAt time.Time      `json:"createdAt"`
	Cues      []subtitle.Cue `json:"cues"`
}

// CueTranslation describes a single-cue translation.
type CueTranslation struct {
	Index          int
	TargetLanguage string
	IncludeContext bool
	Credential     string
}

// DocumentTranslation describes a whole-document translation.
type DocumentTranslation struct {
	TargetLanguage string
	IncludeContext bool
	Credential     string
	Concurrency    int
	// OnProgress is called after each cue completes, possibly from several goroutines.
	OnProgress func(done, total int)
}

func newSession(id, fileName string, doc *subtitle.Document, now time.Time) *Session {
	if fileName == "" {
		fileName = DefaultFileName
	}
	if doc == nil {
		doc = &subtitle.Document{}
	}
	return &Session{
		ID:         id,
		FileName:   fileName,
		CreatedAt:  now,
		doc:        doc,
		lastAccess: now,
	}
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := s.doc.Clone()
	return View{
		ID:        s.ID,
		FileName:  s.FileName,
		Language:  doc.Language,
		Skipped:   doc.Skipped,
		CreatedAt: s.CreatedAt,
		Cues:      doc.Cues,
	}
}

// Cue returns the first cue numbered index.
func (s *Session) Cue(index int) (subtitle.Cue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Cue(index)
}

func (s *Session) SetField(index int, field subtitle.Field, value string) (subtitle.Cue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.SetField(index, field, value)
}

// Document returns a copy of the current document.
func (s *Session) Document() *subtitle.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Export serializes the current cues.
func (s *Session) Export() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Text()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

// TranslateCue translates one cue and replaces its text with the model's
// response. The cue is left untouched when translation fails or ctx is
// done by the time the response arrives.
func (s *Session) TranslateCue(ctx context.Context, tr Translator, opts CueTranslation) (subtitle.Cue, error) {
	s.mu.RLock()
	cue, ok := s.doc.Cue(opts.Index)
	var fullDoc string
	if ok && opts.IncludeContext {
		fullDoc = s.doc.Text()
	}
	s.mu.RUnlock()
	if !ok {
		return subtitle.Cue{}, fmt.Errorf("%w: %d", subtitle.ErrCueNotFound, opts.Index)
	}

	translated, err := tr.Translate(ctx, translator.Request{
		Text:           cue.Text,
		TargetLanguage: opts.TargetLanguage,
		FullDocument:   fullDoc,
		StartTime:      cue.StartTime,
		EndTime:        cue.EndTime,
	}, opts.Credential)
	if err != nil {
		return subtitle.Cue{}, err
	}
	if err := ctx.Err(); err != nil {
		return subtitle.Cue{}, err
	}

	return s.SetField(opts.Index, subtitle.FieldText, translated)
}

// TranslateAll translates every non-empty cue, at most opts.Concurrency at a
// time. Each result is written back as soon as it arrives; the first failure
// cancels the remaining cues and is returned. It reports how many cues were
// translated.
func (s *Session) TranslateAll(ctx context.Context, tr Translator, opts DocumentTranslation) (int, error) {
	s.mu.RLock()
	snapshot := s.doc.Clone()
	s.mu.RUnlock()

	var fullDoc string
	if opts.IncludeContext {
		fullDoc = snapshot.Text()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	total := len(snapshot.Cues)
	var (
		progressMu sync.Mutex
		done       int
		translated int
	)
	report := func(ok bool) {
		progressMu.Lock()
		done++
		if ok {
			translated++
		}
		n := done
		progressMu.Unlock()
		if opts.OnProgress != nil {
			opts.OnProgress(n, total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for pos, cue := range snapshot.Cues {
		if gctx.Err() != nil {
			break
		}
		if cue.Text == "" {
			report(false)
			continue
		}
		g.Go(func() error {
			text, err := tr.Translate(gctx, translator.Request{
				Text:           cue.Text,
				TargetLanguage: opts.TargetLanguage,
				FullDocument:   fullDoc,
				StartTime:      cue.StartTime,
				EndTime:        cue.EndTime,
			}, opts.Credential)
			if err != nil {
				return fmt.Errorf("cue %d: %w", cue.Index, err)
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			s.setTextAt(pos, cue.Index, text)
			report(true)
			return nil
		})
	}

	err := g.Wait()
	progressMu.Lock()
	n := translated
	progressMu.Unlock()
	if err != nil {
		log.Warn("Session %s: translated %d/%d cues before failure: %v", s.ID, n, total, err)
		return n, err
	}
	log.Info("Session %s: translated %d/%d cues", s.ID, n, total)
	return n, nil
}

// setTextAt writes by position so duplicate sequence numbers each get their own
// translation. Positions are stable because cues are never inserted or removed.
func (s *Session) setTextAt(pos, index int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < len(s.doc.Cues) && s.doc.Cues[pos].Index == index {
		s.doc.Cues[pos].Text = text
	}
}
