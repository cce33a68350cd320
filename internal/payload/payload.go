// Package payload turns uploaded files into data URLs that can be stored as
// slide sources.
package payload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/vyrodovalexey/sitecms/internal/slideshow"
)

// Payload errors.
var (
	ErrNoFile        = errors.New("no file to read")
	ErrSizeMismatch  = errors.New("file is larger than declared")
	ErrUnboundedRead = errors.New("file size unknown and no read limit set")
)

// DataURLReader reads an upload fully and encodes it as
// data:<mime>;base64,<content>.
type DataURLReader struct {
	// MaxBytes bounds reads of uploads that do not declare a size.
	MaxBytes int64
}

// ReadPayload implements slideshow.PayloadReader.
func (r DataURLReader) ReadPayload(ctx context.Context, upload slideshow.Upload) (string, error) {
	if upload.Empty() {
		return "", ErrNoFile
	}

	limit := upload.Size
	if limit <= 0 {
		limit = r.MaxBytes
	}
	if limit <= 0 {
		return "", ErrUnboundedRead
	}

	rc, err := upload.Open()
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", upload.Filename, err)
	}
	defer rc.Close()

	// One extra byte detects files that grew past their declared size.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(&ctxReader{ctx: ctx, r: rc}, limit+1))
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", upload.Filename, err)
	}
	if n > limit {
		return "", fmt.Errorf("reading %q: %w", upload.Filename, ErrSizeMismatch)
	}

	return Encode(mediaType(upload.ContentType, buf.Bytes()), buf.Bytes()), nil
}

// Encode builds a base64 data URL.
func Encode(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// mediaType prefers the declared type, stripped of parameters, and sniffs the
// content otherwise.
func mediaType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
