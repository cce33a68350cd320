package slideshow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vyrodovalexey/sitecms/internal/model"
)

// Storage persists the JSON-encoded item list under the manager's storage key.
// Read returns store.ErrNotFound when nothing was saved yet.
type Storage interface {
	Read(ctx context.Context, key string) (string, error)
	Write(ctx context.Context, key, value string) error
}

// View is the state handed to renderers. Current is 1-based and meaningless
// when Items is empty.
type View struct {
	Name    string            `json:"name"`
	Items   []model.SlideItem `json:"items"`
	Current int               `json:"current"`
}

// Empty reports whether the view has no slides and should show a placeholder.
func (v View) Empty() bool {
	return len(v.Items) == 0
}

// Active returns the currently displayed slide.
func (v View) Active() (model.SlideItem, bool) {
	if v.Current < 1 || v.Current > len(v.Items) {
		return model.SlideItem{}, false
	}
	return v.Items[v.Current-1], true
}

// Renderer turns views into visible output (HTML fragments, websocket pushes).
// Render receives a private copy of the items and must not block for long:
// it runs on the manager's event loop.
type Renderer interface {
	Render(view View)
	// ResetAddForm clears the stale file selection of the add form.
	ResetAddForm(name string)
}

// Notifier is the transient status-message sink of an admin form.
type Notifier interface {
	Show(message string, isError bool, duration time.Duration)
}

// PayloadReader converts an uploaded file into a storable payload string.
type PayloadReader interface {
	ReadPayload(ctx context.Context, upload Upload) (string, error)
}

// Upload is a user-selected file submitted through the add form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Empty reports whether no file was selected.
func (u Upload) Empty() bool {
	return u.Open == nil
}

// MediaType returns the declared content type, sniffing the first bytes of
// the file when none was declared.
func (u Upload) MediaType() string {
	if u.ContentType != "" || u.Open == nil {
		return u.ContentType
	}

	rc, err := u.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(rc, head)
	return http.DetectContentType(head[:n])
}

// Check rejects a missing file, a non-image file and a file larger than
// maxBytes. A maxBytes of zero or less means DefaultMaxUploadBytes.
func (u Upload) Check(maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if u.Empty() {
		return ErrNoFile
	}
	if !strings.HasPrefix(u.MediaType(), "image/") {
		return ErrInvalidFileType
	}
	if u.Size > maxBytes {
		return fmt.Errorf("%w: maximum size is %s", ErrFileTooLarge, humanize.IBytes(uint64(maxBytes)))
	}
	return nil
}

// Timer is a pending scheduled action.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred actions.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the Clock backed by the time package.
var RealClock Clock = realClock{}
