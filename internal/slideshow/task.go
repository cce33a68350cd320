package slideshow

import (
	"context"
	"sync"

	"github.com/vyrodovalexey/sitecms/internal/model"
)

// Task is the pending result of an asynchronous Add.
type Task struct {
	done chan struct{}
	once sync.Once
	item model.SlideItem
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// finish records the outcome. Only the first call has an effect.
func (t *Task) finish(item model.SlideItem, err error) {
	t.once.Do(func() {
		t.item = item
		t.err = err
		close(t.done)
	})
}

func failedTask(err error) *Task {
	t := newTask()
	t.finish(model.SlideItem{}, err)
	return t
}

// Done is closed once the task has completed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is done. Giving up on the wait
// does not cancel the upload; its effect still lands when the read finishes.
func (t *Task) Wait(ctx context.Context) (model.SlideItem, error) {
	select {
	case <-t.done:
		return t.item, t.err
	case <-ctx.Done():
		return model.SlideItem{}, ctx.Err()
	}
}
