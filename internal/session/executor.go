package session

import (
	"context"
	"fmt"

	"github.com/MimeLyc/srt-editor/internal/jobs"
)

// NewJobExecutor returns a jobs.Executor that translates the whole session
// named by the job payload, at most cueConcurrency cues at a time.
func NewJobExecutor(store *Store, tr Translator, cueConcurrency int) jobs.Executor {
	return func(ctx context.Context, job *jobs.TranslationJob, report func(done, total int)) error {
		sess, err := store.Get(job.Payload.SessionID)
		if err != nil {
			return fmt.Errorf("session %s: %w", job.Payload.SessionID, err)
		}
		_, err = sess.TranslateAll(ctx, tr, DocumentTranslation{
			TargetLanguage: job.Payload.TargetLanguage,
			IncludeContext: job.Payload.IncludeContext,
			Credential:     job.Payload.Credential,
			Concurrency:    cueConcurrency,
			OnProgress:     report,
		})
		return err
	}
}
