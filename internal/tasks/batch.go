package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-inbox/internal/models"
	"github.com/desertthunder/spotify-inbox/internal/services"
)

// MaxBatchSize is the largest number of tracks sent in one mutation request.
const MaxBatchSize = services.MaxMutationBatch

// Chunk splits items into consecutive slices of at most size elements.
// A non-positive size uses [MaxBatchSize]. The chunks share items' backing array.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxBatchSize
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Mutation names the kind of change applied to a playlist.
type Mutation string

const (
	MutationAdd    Mutation = "add"
	MutationRemove Mutation = "remove"
)

// BatchFailure records one rejected request.
type BatchFailure struct {
	Index int              `json:"index"` // 0-based batch number
	Size  int              `json:"size"`
	IDs   []models.TrackID `json:"ids"`
	Err   error            `json:"-"`
}

func (f BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (%d tracks): %v", f.Index, f.Size, f.Err)
}

func (f BatchFailure) Unwrap() error { return f.Err }

// BatchReport describes the outcome of applying one mutation in batches.
type BatchReport struct {
	Mutation   Mutation         `json:"mutation"`
	Requested  int              `json:"requested"`
	Applied    int              `json:"applied"`
	Batches    int              `json:"batches"`
	Skipped    []models.TrackID `json:"skipped,omitempty"`
	Failures   []BatchFailure   `json:"failures,omitempty"`
	SnapshotID string           `json:"snapshot_id,omitempty"`
}

// OK is true when every batch succeeded.
func (r BatchReport) OK() bool { return len(r.Failures) == 0 }

// Err joins the batch failures, nil when all succeeded.
func (r BatchReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

type mutateFunc func(ctx context.Context, playlistID string, ids []models.TrackID) (string, error)

// Applier sends playlist mutations in batches no larger than [MaxBatchSize].
type Applier struct {
	client   services.Client
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewApplier creates an Applier that mutates playlists through client.
func NewApplier(client services.Client, logger *log.Logger) *Applier {
	if logger == nil {
		logger = log.Default()
	}
	return &Applier{client: client, logger: logger}
}

func (a *Applier) withProgress(progress chan<- ProgressUpdate) *Applier {
	cp := *a
	cp.progress = progress
	return &cp
}

// AddAll appends ids to the playlist.
func (a *Applier) AddAll(ctx context.Context, playlistID string, ids models.TrackSet) BatchReport {
	return a.apply(ctx, MutationAdd, ApplyAdditions, a.client.AddTracks, playlistID, ids)
}

// RemoveAll removes every occurrence of ids from the playlist.
func (a *Applier) RemoveAll(ctx context.Context, playlistID string, ids models.TrackSet) BatchReport {
	return a.apply(ctx, MutationRemove, ApplyRemovals, a.client.RemoveTracks, playlistID, ids)
}

// apply validates ids, sorts them for deterministic batching, and issues one request per chunk.
// A failed batch is recorded and the remaining batches are still attempted.
func (a *Applier) apply(ctx context.Context, op Mutation, phase Phase, mutate mutateFunc, playlistID string, ids models.TrackSet) BatchReport {
	report := BatchReport{Mutation: op, Requested: ids.Len()}

	valid := models.NewTrackSet()
	for id := range ids {
		parsed, err := models.ParseTrackID(string(id))
		if err != nil {
			a.logger.Warn("skipping invalid track id", "mutation", op, "id", id)
			report.Skipped = append(report.Skipped, id)
			continue
		}
		valid.Add(parsed)
	}
	if len(report.Skipped) > 1 {
		report.Skipped = models.NewTrackSet(report.Skipped...).Slice()
	}

	batches := Chunk(valid.Slice(), MaxBatchSize)
	report.Batches = len(batches)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, BatchFailure{Index: i, Size: len(batch), IDs: batch, Err: err})
			sendProgress(a.progress, batchUpdate(phase, i+1, len(batches), len(batch), err))
			continue
		}

		snapshot, err := mutate(ctx, playlistID, batch)
		if err != nil {
			a.logger.Error("batch failed", "mutation", op, "playlist", playlistID, "batch", i, "size", len(batch), "error", err)
			report.Failures = append(report.Failures, BatchFailure{Index: i, Size: len(batch), IDs: batch, Err: err})
			sendProgress(a.progress, batchUpdate(phase, i+1, len(batches), len(batch), err))
			continue
		}

		report.Applied += len(batch)
		if snapshot != "" {
			report.SnapshotID = snapshot
		}
		a.logger.Debug("batch applied", "mutation", op, "playlist", playlistID, "batch", i, "size", len(batch))
		sendProgress(a.progress, batchUpdate(phase, i+1, len(batches), len(batch), nil))
	}

	return report
}
