package slideshow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/sitecms/internal/model"
	"github.com/vyrodovalexey/sitecms/internal/session"
	"github.com/vyrodovalexey/sitecms/internal/store"
)

func storedItems(t *testing.T, s store.Store, key string) []model.SlideItem {
	t.Helper()

	raw, err := s.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read(%q) unexpected error: %v", key, err)
	}

	var items []model.SlideItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("stored value is not a slide list: %v", err)
	}
	return items
}

func TestWrapIndex(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for k := -12; k <= 12; k++ {
			// Arrange
			want := (k-1)%n + 1
			if want < 1 {
				want += n
			}

			// Act
			got := wrapIndex(k, n)

			// Assert
			if got != want {
				t.Errorf("wrapIndex(%d, %d) = %d, want %d", k, n, got, want)
			}
			if got < 1 || got > n {
				t.Errorf("wrapIndex(%d, %d) = %d, out of [1, %d]", k, n, got, n)
			}
		}
	}
}

func TestManager_Init_PersistsDefaults(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.manager(t, threeSlides)

	// Act
	err := m.Init(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Init() unexpected error: %v", err)
	}
	if diff := cmp.Diff(threeSlides, storedItems(t, f.storage, m.StorageKey())); diff != "" {
		t.Errorf("stored slides mismatch (-want +got):\n%s", diff)
	}

	view := snapshot(t, m)
	if diff := cmp.Diff(threeSlides, view.Items); diff != "" {
		t.Errorf("view slides mismatch (-want +got):\n%s", diff)
	}
	if view.Current != 1 {
		t.Errorf("Current = %d, want 1", view.Current)
	}
	if f.renderer.Renders() != 1 {
		t.Errorf("renders = %d, want 1", f.renderer.Renders())
	}
	if f.clock.Active() != 1 {
		t.Errorf("pending timers = %d, want 1", f.clock.Active())
	}
}

func TestManager_Init_LoadsStoredSlides(t *testing.T) {
	// Arrange
	f := newFixture()
	stored := []model.SlideItem{
		{ID: "slide-1", Src: "data:image/png;base64,AAAA"},
		{ID: "slide-2", Src: "data:image/png;base64,BBBB"},
	}
	data, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := f.storage.MemoryStore.Write(context.Background(), "logan-design-slideshow", string(data)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := f.manager(t, threeSlides)

	// Act
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() unexpected error: %v", err)
	}

	// Assert
	if diff := cmp.Diff(stored, snapshot(t, m).Items); diff != "" {
		t.Errorf("slides mismatch (-want +got):\n%s", diff)
	}
	if f.storage.Writes() != 0 {
		t.Errorf("writes = %d, want 0", f.storage.Writes())
	}
}

func TestManager_Init_MalformedFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{{{"},
		{name: "object", raw: `{"id":"a","src":"b"}`},
		{name: "null", raw: "null"},
		{name: "empty list", raw: "[]"},
		{name: "item without id", raw: `[{"src":"b"}]`},
		{name: "item without src", raw: `[{"id":"a"}]`},
		{name: "list of strings", raw: `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			if err := f.storage.MemoryStore.Write(context.Background(), "logan-design-slideshow", tt.raw); err != nil {
				t.Fatalf("seed: %v", err)
			}
			m := f.manager(t, threeSlides)

			// Act
			err := m.Init(context.Background())

			// Assert
			if err != nil {
				t.Fatalf("Init() unexpected error: %v", err)
			}
			if diff := cmp.Diff(threeSlides, snapshot(t, m).Items); diff != "" {
				t.Errorf("slides mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(threeSlides, storedItems(t, f.storage, m.StorageKey())); diff != "" {
				t.Errorf("stored slides mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManager_Init_EmptyDefaultsShowsPlaceholder(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.manager(t, nil)

	// Act
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() unexpected error: %v", err)
	}

	// Assert
	view := snapshot(t, m)
	if !view.Empty() {
		t.Errorf("view has %d slides, want none", len(view.Items))
	}
	if _, ok := view.Active(); ok {
		t.Error("Active() reported a slide for an empty view")
	}
	if f.clock.Active() != 0 {
		t.Errorf("pending timers = %d, want 0", f.clock.Active())
	}
	if got := storedItems(t, f.storage, m.StorageKey()); len(got) != 0 {
		t.Errorf("stored %d slides, want 0", len(got))
	}
}

func TestManager_Init_Idempotent(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	if err := m.Next(); err != nil {
		t.Fatalf("Next() unexpected error: %v", err)
	}

	// Act
	err := m.Init(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Init() unexpected error: %v", err)
	}
	if got := snapshot(t, m).Current; got != 2 {
		t.Errorf("Current = %d, want 2", got)
	}
	if f.renderer.Renders() != 2 {
		t.Errorf("renders = %d, want 2", f.renderer.Renders())
	}
}

func TestManager_Unmounted(t *testing.T) {
	// Arrange
	storage := &toggleStorage{MemoryStore: store.NewMemoryStore(0)}
	notifier := &fakeNotifier{}
	m := New(Config{Name: "about", StorageKey: "logan-design-about-slideshow", DefaultItems: threeSlides},
		Deps{Storage: storage, Notifier: notifier, Payload: instantPayload{}, Clock: newFakeClock(), Logger: zap.NewNop()})
	t.Cleanup(m.Close)

	// Act
	initErr := m.Init(context.Background())
	nextErr := m.Next()
	_, addErr := wait(t, m.Add(context.Background(), admin, imageUpload("a.png", 10)))
	deleteErr := m.Delete(context.Background(), admin, "default-1")

	// Assert
	if initErr != nil {
		t.Errorf("Init() error = %v, want nil", initErr)
	}
	for name, err := range map[string]error{"Next": nextErr, "Add": addErr, "Delete": deleteErr} {
		if !errors.Is(err, ErrNotMounted) {
			t.Errorf("%s() error = %v, want %v", name, err, ErrNotMounted)
		}
	}
	if storage.Writes() != 0 {
		t.Errorf("writes = %d, want 0", storage.Writes())
	}
	if len(notifier.All()) != 0 {
		t.Errorf("notifications = %v, want none", notifier.All())
	}
	if m.Mounted() {
		t.Error("Mounted() = true, want false")
	}
}

func TestManager_NotInitialized(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.manager(t, threeSlides)

	// Act
	err := m.Next()

	// Assert
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Next() error = %v, want %v", err, ErrNotInitialized)
	}
	if f.renderer.Renders() != 0 {
		t.Errorf("renders = %d, want 0", f.renderer.Renders())
	}
}

func TestManager_Navigation(t *testing.T) {
	tests := []struct {
		name string
		act  func(m *Manager) error
		want int
	}{
		{name: "next", act: (*Manager).Next, want: 2},
		{name: "previous wraps to last", act: (*Manager).Previous, want: 3},
		{name: "advance by two", act: func(m *Manager) error { return m.Advance(2) }, want: 3},
		{name: "advance wraps forward", act: func(m *Manager) error { return m.Advance(3) }, want: 1},
		{name: "goto in range", act: func(m *Manager) error { return m.GoTo(3) }, want: 3},
		{name: "goto past end", act: func(m *Manager) error { return m.GoTo(5) }, want: 2},
		{name: "goto zero", act: func(m *Manager) error { return m.GoTo(0) }, want: 3},
		{name: "goto negative", act: func(m *Manager) error { return m.GoTo(-1) }, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			m := f.initManager(t, threeSlides)

			// Act
			err := tt.act(m)

			// Assert
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			view := snapshot(t, m)
			if view.Current != tt.want {
				t.Errorf("Current = %d, want %d", view.Current, tt.want)
			}
			if f.renderer.LastView().Current != tt.want {
				t.Errorf("rendered Current = %d, want %d", f.renderer.LastView().Current, tt.want)
			}
			if f.clock.Active() != 1 {
				t.Errorf("pending timers = %d, want 1", f.clock.Active())
			}
		})
	}
}

func TestManager_Rotation(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)

	// Act & Assert
	for _, want := range []int{2, 3, 1, 2} {
		f.clock.Advance(DefaultDwell)
		if got := snapshot(t, m).Current; got != want {
			t.Fatalf("Current = %d, want %d", got, want)
		}
		if f.clock.Active() != 1 {
			t.Fatalf("pending timers = %d, want 1", f.clock.Active())
		}
	}
}

func TestManager_ManualNavigationRestartsDwell(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	f.clock.Advance(4 * time.Second)

	// Act
	if err := m.Next(); err != nil {
		t.Fatalf("Next() unexpected error: %v", err)
	}
	f.clock.Advance(4 * time.Second)
	afterFour := snapshot(t, m).Current
	f.clock.Advance(time.Second)
	afterFive := snapshot(t, m).Current

	// Assert
	if afterFour != 2 {
		t.Errorf("Current 4s after Next = %d, want 2", afterFour)
	}
	if afterFive != 3 {
		t.Errorf("Current 5s after Next = %d, want 3", afterFive)
	}
}

func TestManager_StaleTimerIgnored(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	stale := f.clock.Last()
	if err := m.Next(); err != nil {
		t.Fatalf("Next() unexpected error: %v", err)
	}

	// Act
	stale.f()

	// Assert
	if got := snapshot(t, m).Current; got != 2 {
		t.Errorf("Current = %d, want 2", got)
	}
	pending, err := m.Pending()
	if err != nil {
		t.Fatalf("Pending() unexpected error: %v", err)
	}
	if !pending {
		t.Error("Pending() = false, want true")
	}
}

func TestManager_PointerPausesRotation(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)

	// Act
	if err := m.PointerEnter(); err != nil {
		t.Fatalf("PointerEnter() unexpected error: %v", err)
	}
	if err := m.PointerEnter(); err != nil {
		t.Fatalf("PointerEnter() unexpected error: %v", err)
	}
	f.clock.Advance(3 * DefaultDwell)
	pausedAt := snapshot(t, m).Current
	pausedPending, _ := m.Pending()

	if err := m.PointerLeave(); err != nil {
		t.Fatalf("PointerLeave() unexpected error: %v", err)
	}
	if err := m.PointerLeave(); err != nil {
		t.Fatalf("PointerLeave() unexpected error: %v", err)
	}
	activeAfterLeave := f.clock.Active()
	f.clock.Advance(DefaultDwell)
	resumedAt := snapshot(t, m).Current

	// Assert
	if pausedAt != 1 {
		t.Errorf("Current while hovered = %d, want 1", pausedAt)
	}
	if pausedPending {
		t.Error("timer pending while hovered")
	}
	if activeAfterLeave != 1 {
		t.Errorf("pending timers after leave = %d, want exactly 1", activeAfterLeave)
	}
	if resumedAt != 2 {
		t.Errorf("Current after resume = %d, want 2", resumedAt)
	}
}

func TestManager_Add(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	added := testutil.ToFloat64(slideshowUploadsTotal.WithLabelValues("home", uploadAdded))

	// Act
	item, err := wait(t, m.Add(context.Background(), admin, imageUpload("new.png", 1024)))

	// Assert
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if !strings.HasPrefix(item.ID, "slide-") {
		t.Errorf("ID = %q, want slide- prefix", item.ID)
	}
	if item.Src != "data:image/png;base64,new.png" {
		t.Errorf("Src = %q", item.Src)
	}

	view := snapshot(t, m)
	if len(view.Items) != 4 || view.Current != 4 {
		t.Fatalf("view = %d items at %d, want 4 at 4", len(view.Items), view.Current)
	}
	if active, _ := view.Active(); active != item {
		t.Errorf("active slide = %+v, want %+v", active, item)
	}
	if diff := cmp.Diff(view.Items, storedItems(t, f.storage, m.StorageKey())); diff != "" {
		t.Errorf("stored slides mismatch (-memory +stored):\n%s", diff)
	}

	msgs := f.notifier.All()
	if len(msgs) != 1 || msgs[0].message != msgAdded || msgs[0].isError {
		t.Errorf("notifications = %+v, want one success", msgs)
	}
	if f.renderer.Resets() != 1 {
		t.Errorf("form resets = %d, want 1", f.renderer.Resets())
	}
	if got := testutil.ToFloat64(slideshowUploadsTotal.WithLabelValues("home", uploadAdded)); got != added+1 {
		t.Errorf("uploads added = %v, want %v", got, added+1)
	}
}

func TestManager_Add_ToEmptyShow(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, nil)

	// Act
	_, err := wait(t, m.Add(context.Background(), admin, imageUpload("first.png", 10)))

	// Assert
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	view := snapshot(t, m)
	if len(view.Items) != 1 || view.Current != 1 {
		t.Errorf("view = %d items at %d, want 1 at 1", len(view.Items), view.Current)
	}
	if f.clock.Active() != 1 {
		t.Errorf("pending timers = %d, want 1", f.clock.Active())
	}
}

func TestManager_Add_CompletionOrder(t *testing.T) {
	// Arrange
	f := newFixture()
	payload := newGatedPayload()
	f.payload = payload
	m := f.initManager(t, threeSlides)

	taskA := m.Add(context.Background(), admin, imageUpload("a.png", 10))
	taskB := m.Add(context.Background(), admin, imageUpload("b.png", 10))

	// Act
	payload.Release("b.png", "data:b", nil)
	itemB, errB := wait(t, taskB)
	payload.Release("a.png", "data:a", nil)
	itemA, errA := wait(t, taskA)

	// Assert
	if errA != nil || errB != nil {
		t.Fatalf("Add() errors = %v, %v", errA, errB)
	}

	view := snapshot(t, m)
	want := append(append([]model.SlideItem{}, threeSlides...), itemB, itemA)
	if diff := cmp.Diff(want, view.Items); diff != "" {
		t.Errorf("slides mismatch (-want +got):\n%s", diff)
	}
	if view.Current != 5 {
		t.Errorf("Current = %d, want 5", view.Current)
	}
	if diff := cmp.Diff(want, storedItems(t, f.storage, m.StorageKey())); diff != "" {
		t.Errorf("stored slides mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Add_Rejected(t *testing.T) {
	sniffed := func(content string) Upload {
		return Upload{
			Filename: "upload",
			Size:     int64(len(content)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(content)), nil
			},
		}
	}

	tests := []struct {
		name       string
		upload     Upload
		wantErr    error
		wantMsg    string
		wantResets int
	}{
		{
			name:       "no file",
			upload:     Upload{},
			wantErr:    ErrNoFile,
			wantMsg:    msgSelectFile,
			wantResets: 0,
		},
		{
			name: "declared non-image",
			upload: Upload{
				Filename:    "notes.txt",
				ContentType: "text/plain",
				Size:        10,
				Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("x")), nil },
			},
			wantErr:    ErrInvalidFileType,
			wantMsg:    msgInvalidType,
			wantResets: 1,
		},
		{
			name:       "sniffed non-image",
			upload:     sniffed("%PDF-1.7 document"),
			wantErr:    ErrInvalidFileType,
			wantMsg:    msgInvalidType,
			wantResets: 1,
		},
		{
			name:       "oversize",
			upload:     imageUpload("huge.png", DefaultMaxUploadBytes+1),
			wantErr:    ErrFileTooLarge,
			wantMsg:    "File is too large. Maximum size is 2.0 MiB.",
			wantResets: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			m := f.initManager(t, threeSlides)
			writes := f.storage.Writes()
			renders := f.renderer.Renders()

			// Act
			_, err := wait(t, m.Add(context.Background(), admin, tt.upload))

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
			msgs := f.notifier.All()
			if len(msgs) != 1 {
				t.Fatalf("notifications = %+v, want exactly one", msgs)
			}
			if msgs[0].message != tt.wantMsg || !msgs[0].isError {
				t.Errorf("notification = %+v, want error %q", msgs[0], tt.wantMsg)
			}
			if f.renderer.Resets() != tt.wantResets {
				t.Errorf("form resets = %d, want %d", f.renderer.Resets(), tt.wantResets)
			}
			if f.storage.Writes() != writes {
				t.Errorf("writes = %d, want %d", f.storage.Writes(), writes)
			}
			if f.renderer.Renders() != renders {
				t.Errorf("renders = %d, want %d", f.renderer.Renders(), renders)
			}
			if diff := cmp.Diff(threeSlides, snapshot(t, m).Items); diff != "" {
				t.Errorf("slides changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManager_Add_SniffedImageAccepted(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	upload := Upload{
		Filename: "photo",
		Size:     int64(len(png)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(png)), nil
		},
	}

	// Act
	_, err := wait(t, m.Add(context.Background(), admin, upload))

	// Assert
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if got := len(snapshot(t, m).Items); got != 4 {
		t.Errorf("slides = %d, want 4", got)
	}
}

func TestManager_Add_ReadFailure(t *testing.T) {
	// Arrange
	f := newFixture()
	payload := newGatedPayload()
	f.payload = payload
	m := f.initManager(t, threeSlides)
	task := m.Add(context.Background(), admin, imageUpload("broken.png", 10))

	// Act
	payload.Release("broken.png", "", errors.New("disk error"))
	_, err := wait(t, task)

	// Assert
	if !errors.Is(err, ErrReadFailed) {
		t.Errorf("Add() error = %v, want %v", err, ErrReadFailed)
	}
	msgs := f.notifier.All()
	if len(msgs) != 1 || msgs[0].message != msgReadError || !msgs[0].isError {
		t.Errorf("notifications = %+v, want one read error", msgs)
	}
	if diff := cmp.Diff(threeSlides, snapshot(t, m).Items); diff != "" {
		t.Errorf("slides changed (-want +got):\n%s", diff)
	}
}

func TestManager_Add_QuotaExceededRollsBack(t *testing.T) {
	// Arrange
	defaults, err := json.Marshal(threeSlides)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f := newFixture()
	f.storage = &toggleStorage{MemoryStore: store.NewMemoryStore(int64(len(defaults)) + 64)}
	payload := newGatedPayload()
	f.payload = payload
	m := f.initManager(t, threeSlides)
	renders := f.renderer.Renders()
	failures := testutil.ToFloat64(slideshowStorageFailuresTotal.WithLabelValues("home"))

	task := m.Add(context.Background(), admin, imageUpload("big.png", 1024))

	// Act
	payload.Release("big.png", "data:image/png;base64,"+strings.Repeat("A", 1024), nil)
	_, err = wait(t, task)

	// Assert
	if !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("Add() error = %v, want %v", err, store.ErrQuotaExceeded)
	}
	msgs := f.notifier.All()
	if len(msgs) != 1 || msgs[0].message != msgStorageFull || msgs[0].duration != storageErrorDuration {
		t.Errorf("notifications = %+v, want one storage-full error", msgs)
	}
	if diff := cmp.Diff(threeSlides, snapshot(t, m).Items); diff != "" {
		t.Errorf("memory changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(threeSlides, storedItems(t, f.storage, m.StorageKey())); diff != "" {
		t.Errorf("storage changed (-want +got):\n%s", diff)
	}
	if f.renderer.Renders() != renders {
		t.Errorf("renders = %d, want %d", f.renderer.Renders(), renders)
	}
	if got := testutil.ToFloat64(slideshowStorageFailuresTotal.WithLabelValues("home")); got != failures+1 {
		t.Errorf("storage failures = %v, want %v", got, failures+1)
	}
}

func TestManager_Add_WriteFailure(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	writeErr := errors.New("database is locked")
	f.storage.FailWrites(writeErr)

	// Act
	_, err := wait(t, m.Add(context.Background(), admin, imageUpload("a.png", 10)))

	// Assert
	if !errors.Is(err, writeErr) {
		t.Errorf("Add() error = %v, want %v", err, writeErr)
	}
	msgs := f.notifier.All()
	if len(msgs) != 1 || msgs[0].message != msgStorageWrite {
		t.Errorf("notifications = %+v, want one write error", msgs)
	}
	if got := len(snapshot(t, m).Items); got != 3 {
		t.Errorf("slides = %d, want 3", got)
	}
}

func TestManager_Delete(t *testing.T) {
	tests := []struct {
		name        string
		gotoIndex   int
		deleteID    string
		wantIDs     []string
		wantCurrent int
	}{
		{
			name:        "current stays when still in range",
			gotoIndex:   5,
			deleteID:    "default-2",
			wantIDs:     []string{"default-1", "default-3"},
			wantCurrent: 2,
		},
		{
			name:        "current clamps to new end",
			gotoIndex:   3,
			deleteID:    "default-3",
			wantIDs:     []string{"default-1", "default-2"},
			wantCurrent: 2,
		},
		{
			name:        "deleting before current keeps the index",
			gotoIndex:   2,
			deleteID:    "default-1",
			wantIDs:     []string{"default-2", "default-3"},
			wantCurrent: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			m := f.initManager(t, threeSlides)
			if err := m.GoTo(tt.gotoIndex); err != nil {
				t.Fatalf("GoTo() unexpected error: %v", err)
			}

			// Act
			err := m.Delete(context.Background(), admin, tt.deleteID)

			// Assert
			if err != nil {
				t.Fatalf("Delete() unexpected error: %v", err)
			}
			view := snapshot(t, m)
			var ids []string
			for _, item := range view.Items {
				ids = append(ids, item.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if view.Current != tt.wantCurrent {
				t.Errorf("Current = %d, want %d", view.Current, tt.wantCurrent)
			}
			if diff := cmp.Diff(view.Items, storedItems(t, f.storage, m.StorageKey())); diff != "" {
				t.Errorf("stored slides mismatch (-memory +stored):\n%s", diff)
			}
			msgs := f.notifier.All()
			if len(msgs) != 1 || msgs[0].message != msgDeleted || msgs[0].isError {
				t.Errorf("notifications = %+v, want one deletion message", msgs)
			}
		})
	}
}

func TestManager_Delete_LastSlide(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides[:1])

	// Act
	err := m.Delete(context.Background(), admin, threeSlides[0].ID)

	// Assert
	if err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	view := snapshot(t, m)
	if !view.Empty() || view.Current != 1 {
		t.Errorf("view = %d items at %d, want empty at 1", len(view.Items), view.Current)
	}
	if !f.renderer.LastView().Empty() {
		t.Error("placeholder not rendered")
	}
	if f.clock.Active() != 0 {
		t.Errorf("pending timers = %d, want 0", f.clock.Active())
	}
	if err := m.Next(); err != nil {
		t.Errorf("Next() on empty show error = %v, want nil", err)
	}
}

func TestManager_EmptyShowSchedulesNothing(t *testing.T) {
	tests := []struct {
		name     string
		defaults []model.SlideItem
		act      func(m *Manager) error
	}{
		{
			name:     "leave after deleting every slide",
			defaults: threeSlides,
			act: func(m *Manager) error {
				for _, item := range threeSlides {
					if err := m.Delete(context.Background(), admin, item.ID); err != nil {
						return err
					}
				}
				if err := m.PointerEnter(); err != nil {
					return err
				}
				return m.PointerLeave()
			},
		},
		{
			name:     "leave on a show initialized empty",
			defaults: nil,
			act:      func(m *Manager) error { return m.PointerLeave() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			m := f.initManager(t, tt.defaults)

			// Act
			err := tt.act(m)

			// Assert
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			pending, err := m.Pending()
			if err != nil {
				t.Fatalf("Pending() unexpected error: %v", err)
			}
			if pending {
				t.Error("Pending() = true, want false")
			}
			if f.clock.Active() != 0 {
				t.Errorf("pending timers = %d, want 0", f.clock.Active())
			}
		})
	}
}

func TestManager_Delete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sess     session.Session
		id       string
		writeErr error
		wantErr  error
		wantMsgs int
	}{
		{name: "unknown id", sess: admin, id: "missing", wantErr: ErrSlideNotFound},
		{name: "not admin", sess: session.Anonymous, id: "default-1", wantErr: ErrForbidden},
		{
			name:     "quota exceeded",
			sess:     admin,
			id:       "default-1",
			writeErr: fmt.Errorf("kv: %w", store.ErrQuotaExceeded),
			wantErr:  store.ErrQuotaExceeded,
			wantMsgs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			m := f.initManager(t, threeSlides)
			f.storage.FailWrites(tt.writeErr)

			// Act
			err := m.Delete(context.Background(), tt.sess, tt.id)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
			}
			if got := len(f.notifier.All()); got != tt.wantMsgs {
				t.Errorf("notifications = %d, want %d", got, tt.wantMsgs)
			}
			if diff := cmp.Diff(threeSlides, snapshot(t, m).Items); diff != "" {
				t.Errorf("slides changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManager_Add_NotAdmin(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)

	// Act
	_, err := wait(t, m.Add(context.Background(), session.Anonymous, imageUpload("a.png", 10)))

	// Assert
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Add() error = %v, want %v", err, ErrForbidden)
	}
	if len(f.notifier.All()) != 0 {
		t.Errorf("notifications = %+v, want none", f.notifier.All())
	}
	if got := len(snapshot(t, m).Items); got != 3 {
		t.Errorf("slides = %d, want 3", got)
	}
}

func TestManager_Close(t *testing.T) {
	// Arrange
	f := newFixture()
	payload := newGatedPayload()
	f.payload = payload
	m := f.initManager(t, threeSlides)
	task := m.Add(context.Background(), admin, imageUpload("slow.png", 10))

	// Act
	m.Close()
	m.Close()

	// Assert
	_, err := wait(t, task)
	if !errors.Is(err, ErrClosed) && !errors.Is(err, ErrReadFailed) {
		t.Errorf("pending Add() error = %v, want closed or read failure", err)
	}
	if err := m.Next(); !errors.Is(err, ErrClosed) {
		t.Errorf("Next() after Close error = %v, want %v", err, ErrClosed)
	}
	if _, err := wait(t, m.Add(context.Background(), admin, imageUpload("late.png", 10))); !errors.Is(err, ErrClosed) {
		t.Errorf("Add() after Close error = %v, want %v", err, ErrClosed)
	}
	if f.clock.Active() != 0 {
		t.Errorf("pending timers = %d, want 0", f.clock.Active())
	}
}

func TestManager_Add_CanceledContext(t *testing.T) {
	// Arrange
	f := newFixture()
	m := f.initManager(t, threeSlides)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := wait(t, m.Add(ctx, admin, imageUpload("a.png", 10)))

	// Assert
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Add() error = %v, want %v", err, context.Canceled)
	}
	if len(f.notifier.All()) != 0 {
		t.Errorf("notifications = %+v, want none", f.notifier.All())
	}
}
