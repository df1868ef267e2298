package newswire

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cognicore/placewatch/pkg/placewatch/extract"
)

// Scanner drains the job queue through the search client.
type Scanner struct {
	client *Client
	queue  *Queue
	log    zerolog.Logger
}

// NewScanner wires a client and queue together.
func NewScanner(client *Client, queue *Queue, log zerolog.Logger) *Scanner {
	return &Scanner{client: client, queue: queue, log: log}
}

// Drain pops and executes jobs until the queue is empty or every API
// key is rate limited. On rate limiting the current job goes back on
// the queue so the next run resumes where this one stopped. The entry
// list may be empty even on a fully drained queue.
func (s *Scanner) Drain(ctx context.Context) ([]extract.Entry, error) {
	var entries []extract.Entry

	for {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		job, ok, err := s.queue.Pop(ctx)
		if err != nil {
			return entries, err
		}
		if !ok {
			return entries, nil
		}

		results, err := s.client.Search(ctx, job)
		if errors.Is(err, ErrRateLimited) {
			if pushErr := s.queue.Push(ctx, job); pushErr != nil {
				return entries, fmt.Errorf("requeue after rate limit: %w", pushErr)
			}
			s.log.Warn().Str("place", job.PlaceName).
				Msg("Rate limited, job requeued for next run")
			return entries, err
		}
		if err != nil {
			// A malformed response for one place should not poison the
			// rest of the batch.
			s.log.Error().Str("place", job.PlaceName).Err(err).
				Msg("Search failed, job dropped")
			continue
		}

		s.log.Debug().Str("place", job.PlaceName).Int("hits", len(results)).
			Msg("Search complete")
		entries = append(entries, results...)
	}
}
