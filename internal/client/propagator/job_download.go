package propagator

import (
	"compress/gzip"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// maxDownloadTimeoutRetries bounds the GET attempts of one download. Only
// attempts that classify as SoftError are retried; a timeout reaches the
// job as a fatal TransportError and is not retried.
const maxDownloadTimeoutRetries = 3

// DownloadJob drives the resumable-GET state machine: resume from a
// journaled temp file when its ETag still matches, stream the body
// (transparently degzipping when the server compressed it) into that
// temp file, and atomically replace the target, preserving a conflicting
// local copy first.
type DownloadJob struct {
	item *SyncItem
}

func NewDownloadJob(item *SyncItem) *DownloadJob { return &DownloadJob{item: item} }

func (j *DownloadJob) Item() *SyncItem { return j.item }

func (j *DownloadJob) Run(ctx context.Context, env *Env) Result {
	item := j.item
	localPath := env.LocalPath(item.File)

	tmpPath, resumeOffset, err := j.resumeCheck(env, localPath)
	if err != nil {
		return Failed(StatusNormalError, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxDownloadTimeoutRetries; attempt++ {
		if env.IsAborted() {
			return Failed(StatusNormalError, ErrAborted)
		}

		etag, status, err := j.fetch(ctx, env, tmpPath, resumeOffset)
		if err == nil {
			return j.finalize(ctx, env, localPath, tmpPath, etag)
		}
		lastErr = err

		if res := classify(err, status, 0); res.Status != StatusSoftError {
			// non-retryable: if nothing was written, drop the partial state
			if empty, _ := isEmptyFile(tmpPath); empty {
				_ = os.Remove(tmpPath)
				_ = env.Journal.DeleteDownloadInfo(item.File)
			}
			return res
		}
	}

	return Failed(StatusSoftError, lastErr)
}

// resumeCheck loads DownloadInfo, discarding a stale temp file whose ETag
// no longer matches the item being fetched, and otherwise returns the
// temp file path and the byte offset to resume from.
func (j *DownloadJob) resumeCheck(env *Env, localPath string) (string, int64, error) {
	info, err := env.Journal.GetDownloadInfo(j.item.File)
	if err != nil {
		return "", 0, err
	}

	if info.Valid && info.ETag == j.item.ETag {
		if st, err := os.Stat(env.LocalPath(info.TmpFile)); err == nil {
			return env.LocalPath(info.TmpFile), st.Size(), nil
		}
	}

	if info.Valid {
		_ = os.Remove(env.LocalPath(info.TmpFile))
	}

	tmpRel := pickTempName(j.item.File)
	tmpPath := env.LocalPath(tmpRel)
	if err := os.MkdirAll(filepath.Dir(tmpPath), 0o755); err != nil {
		return "", 0, err
	}
	if err := env.Journal.SetDownloadInfo(j.item.File, &DownloadInfo{
		Valid:   true,
		ETag:    j.item.ETag,
		TmpFile: tmpRel,
	}); err != nil {
		return "", 0, err
	}
	return tmpPath, 0, nil
}

// pickTempName builds the ".<basename>.~<8-hex>" temp file name, in the
// same directory as the target so the final rename stays on one
// filesystem.
func pickTempName(relPath string) string {
	dir := filepath.Dir(relPath)
	base := filepath.Base(relPath)
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	name := "." + base + ".~" + hex.EncodeToString(buf[:])
	if dir == "." {
		return name
	}
	return dir + "/" + name
}

// fetch performs one GET attempt, streaming the (optionally gzip)
// response body into the temp file and returning the response ETag.
func (j *DownloadJob) fetch(ctx context.Context, env *Env, tmpPath string, resumeOffset int64) (string, int, error) {
	item := j.item

	result, err := env.DAV.Get(ctx, item.File, resumeOffset)
	if err != nil {
		return "", 0, err
	}
	defer result.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if resumeOffset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(tmpPath, flags, 0o644)
	if err != nil {
		return "", result.StatusCode, err
	}
	defer out.Close()

	env.publish(Event{Kind: EventStartDownload, Path: item.File, Current: resumeOffset, Total: item.Size})

	var reader io.Reader = result.Body
	if strings.EqualFold(result.ContentEncoding, "gzip") {
		gz, err := gzip.NewReader(result.Body)
		if err != nil {
			return "", result.StatusCode, err
		}
		defer gz.Close()
		reader = gz
	}

	shaper := NewShaper(env.DownloadRate)
	shaper.Reset()

	written := resumeOffset
	buf := make([]byte, 256*1024)
	for {
		if env.IsAborted() {
			return "", result.StatusCode, ErrAborted
		}
		select {
		case <-ctx.Done():
			return "", result.StatusCode, ctx.Err()
		default:
		}

		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return "", result.StatusCode, werr
			}
			written += int64(n)
			env.publish(Event{Kind: EventProgress, Path: item.File, Current: written, Total: item.Size})
			if d := shaper.Sample(written); d > 0 {
				shaper.Sleep(ctx, d)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", result.StatusCode, rerr
		}
	}

	return result.ETag, result.StatusCode, nil
}

// finalize closes out a successful fetch: conflict-checks, atomically
// replaces the target, sets its mtime, and records the new FileRecord.
func (j *DownloadJob) finalize(ctx context.Context, env *Env, localPath, tmpPath, etag string) Result {
	item := j.item

	conflicted := false
	if item.Instruction == InstructionConflict {
		differs, err := filesDiffer(localPath, tmpPath)
		if err != nil {
			// open failure on either side is itself treated as a conflict,
			// per the original's fileEquals-open-failure-means-conflict rule.
			differs = true
		}
		if differs {
			if err := preserveConflictCopy(localPath, item.Modtime); err != nil {
				return Failed(StatusNormalError, err)
			}
			conflicted = true
		}
	}

	if err := atomicReplace(tmpPath, localPath); err != nil {
		return Failed(StatusNormalError, err)
	}

	modtime := time.Unix(item.Modtime, 0)
	if err := os.Chtimes(localPath, modtime, modtime); err != nil {
		return Failed(StatusNormalError, err)
	}

	if etag != "" {
		item.ETag = etag
	}
	if err := env.Journal.DeleteDownloadInfo(item.File); err != nil {
		return Failed(StatusNormalError, err)
	}
	if err := writeFileRecord(env, item); err != nil {
		return Failed(StatusNormalError, err)
	}

	env.publish(Event{Kind: EventEndDownload, Path: item.File, Current: item.Size, Total: item.Size})

	if conflicted {
		return Conflicted()
	}
	return Succeeded()
}

// filesDiffer does a byte-for-byte comparison of two local files.
func filesDiffer(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	sa, err := fa.Stat()
	if err != nil {
		return false, err
	}
	sb, err := fb.Stat()
	if err != nil {
		return false, err
	}
	if sa.Size() != sb.Size() {
		return true, nil
	}

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		na, erra := fa.Read(bufA)
		nb, errb := fb.Read(bufB)
		if na != nb {
			return true, nil
		}
		if !bytesEqual(bufA[:na], bufB[:nb]) {
			return true, nil
		}
		if erra == io.EOF && errb == io.EOF {
			return false, nil
		}
		if erra != nil && erra != io.EOF {
			return false, erra
		}
		if errb != nil && errb != io.EOF {
			return false, errb
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// preserveConflictCopy renames localPath to "<stem>_conflict-<ts><ext>"
// before the caller overwrites the canonical path, using the overwritten
// item's own modtime for the timestamp per the conflict-naming rule.
func preserveConflictCopy(localPath string, modtime int64) error {
	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	dir := filepath.Dir(localPath)
	base := filepath.Base(localPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	ts := time.Unix(modtime, 0).Format("20060102-150405")
	conflictName := fmt.Sprintf("%s_conflict-%s%s", stem, ts, ext)
	return os.Rename(localPath, filepath.Join(dir, conflictName))
}

// atomicReplace moves tmpPath over localPath. On POSIX, os.Rename already
// replaces an existing destination atomically, so readers never observe a
// window where localPath is missing. Only platforms that refuse to rename
// over an existing file (Windows) fall back to remove-then-rename.
func atomicReplace(tmpPath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(localPath)
			return os.Rename(tmpPath, localPath)
		}
		return err
	}
	return nil
}

func isEmptyFile(path string) (bool, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return st.Size() == 0, nil
}
