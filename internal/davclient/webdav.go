package davclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Delete issues DELETE against relPath. A 404 response is treated as
// success: the resource is already gone.
func (c *Client) Delete(ctx context.Context, relPath string) error {
	resp, err := c.request(ctx).Delete(c.ResourceURL(relPath))
	if err != nil {
		return fatal("delete", err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.IsSuccessState() {
		return nil
	}
	return statusErrorWithBody("delete", resp.StatusCode, bytes.NewReader(resp.Bytes()))
}

// Mkcol issues MKCOL against relPath. A 405 response is treated as
// success: the collection already exists.
func (c *Client) Mkcol(ctx context.Context, relPath string) error {
	resp, err := c.request(ctx).Send("MKCOL", c.ResourceURL(relPath))
	if err != nil {
		return fatal("mkcol", err)
	}
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.IsSuccessState() {
		return nil
	}
	return statusErrorWithBody("mkcol", resp.StatusCode, bytes.NewReader(resp.Bytes()))
}

// Move issues MOVE from relPath to newRelPath with overwrite enabled.
func (c *Client) Move(ctx context.Context, relPath, newRelPath string) error {
	resp, err := c.request(ctx).
		SetHeader("Destination", c.ResourceURL(newRelPath)).
		SetHeader("Overwrite", "T").
		Send("MOVE", c.ResourceURL(relPath))
	if err != nil {
		return fatal("move", err)
	}
	if resp.IsSuccessState() {
		return nil
	}
	return statusErrorWithBody("move", resp.StatusCode, bytes.NewReader(resp.Bytes()))
}

// Metadata is what HEAD/PROPPATCH round-trips report back: the server's
// current ETag and stable file identifier for a resource.
type Metadata struct {
	ETag   string
	FileID string
}

// Proppatch sets DAV:lastmodified to modtime (unix seconds). Failure is
// non-fatal to the caller's job; the caller decides whether to log and
// continue.
func (c *Client) Proppatch(ctx context.Context, relPath string, modtime int64) error {
	body := fmt.Sprintf(`<?xml version="1.0"?>
<d:propertyupdate xmlns:d="DAV:">
  <d:set>
    <d:prop><d:lastmodified>%d</d:lastmodified></d:prop>
  </d:set>
</d:propertyupdate>`, modtime)

	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/xml").
		SetBody(body).
		Send("PROPPATCH", c.ResourceURL(relPath))
	if err != nil {
		return fatal("proppatch", err)
	}
	if resp.IsSuccessState() {
		return nil
	}
	return statusErrorWithBody("proppatch", resp.StatusCode, bytes.NewReader(resp.Bytes()))
}

// Head reads back ETag and OC-FileId for relPath.
func (c *Client) Head(ctx context.Context, relPath string) (*Metadata, error) {
	resp, err := c.request(ctx).Head(c.ResourceURL(relPath))
	if err != nil {
		return nil, fatal("head", err)
	}
	if !resp.IsSuccessState() {
		return nil, statusError("head", resp.StatusCode)
	}
	return &Metadata{
		ETag:   strings.Trim(resp.Header.Get("ETag"), `"`),
		FileID: resp.Header.Get("OC-FileId"),
	}, nil
}

// ChunkResult is what a single chunked-PUT call returns.
type ChunkResult struct {
	StatusCode int
	ETag       string
	FileID     string
}

// PutChunk uploads one chunk of a file to its chunking URL suffix, as
// described in the propagator's upload state machine.
func (c *Client) PutChunk(ctx context.Context, relPath string, transferID string, chunkIndex, totalChunks int, body io.Reader, size int64, ifMatchETag string) (*ChunkResult, error) {
	url := fmt.Sprintf("%s-chunking-%s-%d-%d", c.ResourceURL(relPath), transferID, chunkIndex, totalChunks)

	r := c.request(ctx).
		SetHeader("OC-Total-Length", strconv.FormatInt(size, 10)).
		SetHeader("Content-Length", strconv.FormatInt(size, 10)).
		SetBody(body)
	if ifMatchETag != "" {
		r = r.SetHeader("If-Match", `"`+ifMatchETag+`"`)
	}

	resp, err := r.Put(url)
	if err != nil {
		return nil, fatal("put chunk", err)
	}
	if !resp.IsSuccessState() {
		if resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusConflict {
			return nil, softf("put chunk", resp.StatusCode)
		}
		return nil, statusErrorWithBody("put chunk", resp.StatusCode, bytes.NewReader(resp.Bytes()))
	}

	return &ChunkResult{
		StatusCode: resp.StatusCode,
		ETag:       strings.Trim(resp.Header.Get("ETag"), `"`),
		FileID:     resp.Header.Get("OC-FileId"),
	}, nil
}

// GetResult is what Get returns: the response status, headers the caller
// needs, and a reader the caller must close.
type GetResult struct {
	StatusCode      int
	ContentEncoding string
	ETag            string
	Body            io.ReadCloser
}

// Get issues GET against relPath with optional Range resume and gzip
// negotiation.
func (c *Client) Get(ctx context.Context, relPath string, resumeOffset int64) (*GetResult, error) {
	r := c.request(ctx).
		SetHeader("Accept-Encoding", "gzip").
		DisableAutoReadResponse()
	if resumeOffset > 0 {
		r = r.SetHeader("Range", fmt.Sprintf("bytes=%d-", resumeOffset)).
			SetHeader("Accept-Ranges", "bytes")
	}

	resp, err := r.Get(c.ResourceURL(relPath))
	if err != nil {
		return nil, fatal("get", err)
	}
	if !resp.IsSuccessState() {
		resp.Body.Close()
		return nil, statusError("get", resp.StatusCode)
	}

	return &GetResult{
		StatusCode:      resp.StatusCode,
		ContentEncoding: resp.Header.Get("Content-Encoding"),
		ETag:            strings.Trim(resp.Header.Get("ETag"), `"`),
		Body:            resp.Body,
	}, nil
}
