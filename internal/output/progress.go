package output

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/reconthing/reconthing/internal/task"
)

// Progress shows the progress of one task as a bar, together with the
// number of results reported so far.
type Progress struct {
	p       *mpb.Progress
	bar     *mpb.Bar
	results atomic.Int64
}

func NewProgress(w io.Writer, label string) *Progress {
	pr := &Progress{
		p: mpb.New(mpb.WithOutput(w), mpb.WithWidth(48)),
	}
	pr.bar = pr.p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(label, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Any(func(decor.Statistics) string {
				return fmt.Sprintf("%d results", pr.results.Load())
			}, decor.WCSyncSpace),
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace), "done"),
		),
	)
	return pr
}

// Update moves the bar to the task progress.
func (pr *Progress) Update(t task.Task) {
	pr.results.Store(int64(Count(t)))
	pr.bar.SetCurrent(int64(min(t.Progress, 99)))
}

// Done completes the bar for a completed task, aborts it otherwise, and
// waits for the last render.
func (pr *Progress) Done(t task.Task) {
	pr.results.Store(int64(Count(t)))
	if t.Status == task.StatusCompleted {
		pr.bar.SetCurrent(100)
	} else {
		pr.bar.Abort(false)
	}
	pr.p.Wait()
}

// Count is the number of results carried by t.
func Count(t task.Task) int {
	switch t.Kind {
	case task.KindEnumerate:
		return len(t.Subdomains)
	case task.KindResolve:
		return len(t.Resolutions)
	case task.KindProbe:
		return len(t.Probes)
	case task.KindBasicRecon:
		if t.Result != nil {
			return t.Result.SubdomainsAdded + t.Result.DNSResultsAdded + t.Result.HTTPResultsAdded
		}
	}
	return 0
}
