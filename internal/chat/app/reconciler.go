package app

import (
	"context"
	"sort"
	"time"

	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistoryRepository paginated history endpoints, both oldest-first
type HistoryRepository interface {
	FetchMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
	FetchAttachments(ctx context.Context, roomID string, limit int) ([]domain.Attachment, error)
}

// HistoryResult one finished load, tagged with the room and epoch it was started for
type HistoryResult struct {
	RoomID  string
	Epoch   uint64
	Entries []domain.Entry
	Err     error
	Took    time.Duration
}

// ApplyOutcome what Apply did with a result
type ApplyOutcome string

const (
	// ApplyApplied display replaced
	ApplyApplied ApplyOutcome = "applied"
	// ApplyStale room switched meanwhile, result dropped
	ApplyStale ApplyOutcome = "stale"
	// ApplyFailed a fetch failed, HistoryFetchError surfaced
	ApplyFailed ApplyOutcome = "failed"
)

// HistoryReconciler loads a room's history and folds it into the timeline
type HistoryReconciler struct {
	repo     HistoryRepository
	session  *SessionContext
	dedup    *DedupSet
	timeline *Timeline
	sink     Sink
	limit    int
}

// NewHistoryReconciler create HistoryReconciler
func NewHistoryReconciler(
	repo HistoryRepository,
	session *SessionContext,
	dedup *DedupSet,
	timeline *Timeline,
	sink Sink,
	limit int,
) *HistoryReconciler {
	return &HistoryReconciler{
		repo:     repo,
		session:  session,
		dedup:    dedup,
		timeline: timeline,
		sink:     sink,
		limit:    limit,
	}
}

// Load fetch messages and attachments concurrently and merge them.
// Safe to call off the event loop; it touches no shared state.
func (h *HistoryReconciler) Load(ctx context.Context, roomID string, epoch uint64) HistoryResult {
	start := time.Now()
	res := HistoryResult{RoomID: roomID, Epoch: epoch}

	var (
		msgs []domain.Message
		atts []domain.Attachment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = h.repo.FetchMessages(gctx, roomID, h.limit)
		return err
	})
	g.Go(func() error {
		var err error
		atts, err = h.repo.FetchAttachments(gctx, roomID, h.limit)
		return err
	})

	if err := g.Wait(); err != nil {
		res.Err = err
	} else {
		res.Entries = MergeHistory(msgs, atts)
	}
	res.Took = time.Since(start)
	return res
}

// Apply fold res into the display; must run on the event loop
func (h *HistoryReconciler) Apply(res HistoryResult) ApplyOutcome {
	metrics.HistoryLoadDuration.Observe(res.Took.Seconds())

	if !h.session.IsCurrent(res.RoomID, res.Epoch) {
		logger.Log.Debug("discard stale history", zap.String("room_id", res.RoomID), zap.Uint64("epoch", res.Epoch))
		metrics.HistoryLoads.WithLabelValues(string(ApplyStale)).Inc()
		return ApplyStale
	}

	if res.Err != nil {
		metrics.HistoryLoads.WithLabelValues(string(ApplyFailed)).Inc()
		h.sink.OnError(errprocess.HistoryFetch(res.RoomID, res.Err))
		return ApplyFailed
	}

	for _, e := range res.Entries {
		h.dedup.AddEntry(e)
	}
	h.sink.OnReplace(h.timeline.Replace(res.Entries))

	metrics.HistoryLoads.WithLabelValues(string(ApplyApplied)).Inc()
	return ApplyApplied
}

// MergeHistory stable merge by created_at, messages before attachments on
// equal timestamps, server order within a kind
func MergeHistory(msgs []domain.Message, atts []domain.Attachment) []domain.Entry {
	out := make([]domain.Entry, 0, len(msgs)+len(atts))
	for _, m := range msgs {
		out = append(out, domain.MessageEntry(m))
	}
	for _, a := range atts {
		out = append(out, domain.AttachmentEntry(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}
