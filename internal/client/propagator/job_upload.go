package propagator

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	maxSourceChangedRetries = 30
	sourceChangedBackoff    = 2 * time.Second
)

// UploadJob drives the chunked-PUT state machine described in the upload
// state machine component: split into fixed-size chunks, resume from a
// journaled chunk index when the source hasn't changed since, persist
// progress after every chunk, and reconcile ETag/FileID on completion.
type UploadJob struct {
	item *SyncItem
}

func NewUploadJob(item *SyncItem) *UploadJob { return &UploadJob{item: item} }

func (j *UploadJob) Item() *SyncItem { return j.item }

func (j *UploadJob) Run(ctx context.Context, env *Env) Result {
	path := env.LocalPath(j.item.File)

	for attempt := 0; ; attempt++ {
		res := j.attempt(ctx, env, path)
		if res.Status == StatusSoftError && isSourceChanged(res.Err) && attempt < maxSourceChangedRetries {
			select {
			case <-time.After(sourceChangedBackoff):
				continue
			case <-ctx.Done():
				return Failed(StatusNormalError, ctx.Err())
			}
		}
		return res
	}
}

// sourceChangedErr marks an upload attempt aborted because the local
// file's mtime moved while chunks were still in flight.
type sourceChangedErr struct{}

func (sourceChangedErr) Error() string { return "source file modified during upload" }

func isSourceChanged(err error) bool {
	_, ok := err.(sourceChangedErr)
	return ok
}

func (j *UploadJob) attempt(ctx context.Context, env *Env, path string) Result {
	item := j.item

	info, err := os.Stat(path)
	if err != nil {
		return Failed(StatusNormalError, err)
	}
	modtime := info.ModTime().Unix()
	size := info.Size()

	chunkSize := env.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10 * 1024 * 1024
	}
	totalChunks := int(divideCeil(size, chunkSize))
	if totalChunks == 0 {
		totalChunks = 1
	}

	startChunk := 0
	transferID := uuid.NewString()

	existing, err := env.Journal.GetUploadInfo(item.File)
	if err != nil {
		return Failed(StatusNormalError, err)
	}
	if existing.Valid && existing.Modtime == modtime {
		startChunk = existing.Chunk
		transferID = existing.TransferID
	} else if existing.Valid {
		if err := env.Journal.DeleteUploadInfo(item.File); err != nil {
			return Failed(StatusNormalError, err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return Failed(StatusNormalError, err)
	}
	defer file.Close()

	env.publish(Event{Kind: EventStartUpload, Path: item.File, Current: 0, Total: size})

	shaper := NewShaper(env.UploadRate)
	shaper.Reset()

	var uploaded int64 = int64(startChunk) * chunkSize
	var lastETag, lastFileID string

	for chunk := startChunk; chunk < totalChunks; chunk++ {
		if env.IsAborted() {
			return Failed(StatusNormalError, ErrAborted)
		}
		select {
		case <-ctx.Done():
			return Failed(StatusNormalError, ctx.Err())
		default:
		}

		if fresh, statErr := os.Stat(path); statErr == nil && fresh.ModTime().Unix() != modtime {
			return Failed(StatusSoftError, sourceChangedErr{})
		}

		offset := int64(chunk) * chunkSize
		thisSize := chunkSize
		if offset+thisSize > size {
			thisSize = size - offset
		}
		section := io.NewSectionReader(file, offset, thisSize)

		result, err := env.DAV.PutChunk(ctx, item.File, transferID, chunk, totalChunks, section, thisSize, lastETag)
		if err != nil {
			return classify(err, 0, 0)
		}
		lastETag = result.ETag
		if result.FileID != "" {
			lastFileID = result.FileID
		}

		uploaded += thisSize
		env.publish(Event{Kind: EventProgress, Path: item.File, Current: uploaded, Total: size})

		if err := env.Journal.SetUploadInfo(item.File, &UploadInfo{
			Valid:      true,
			Chunk:      chunk + 1,
			TransferID: transferID,
			Modtime:    modtime,
		}); err != nil {
			return Failed(StatusNormalError, err)
		}

		if d := shaper.Sample(uploaded); d > 0 {
			shaper.Sleep(ctx, d)
		}
	}

	item.Modtime = modtime
	item.Size = size
	if lastETag != "" {
		item.ETag = lastETag
	} else {
		updateMTimeAndETag(ctx, env, item)
	}
	if lastFileID != "" {
		item.FileID = lastFileID
	}

	if err := env.Journal.DeleteUploadInfo(item.File); err != nil {
		return Failed(StatusNormalError, err)
	}
	if err := writeFileRecord(env, item); err != nil {
		return Failed(StatusNormalError, err)
	}

	env.publish(Event{Kind: EventEndUpload, Path: item.File, Current: size, Total: size})
	return Succeeded()
}

func divideCeil(numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	q := numerator / denominator
	if numerator%denominator != 0 {
		q++
	}
	return q
}
