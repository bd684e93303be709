package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"igfetch/pkg/storage"
)

// NewProgress returns a storage.ProgressFunc that draws one byte progress
// bar per download on w. A size of -1 renders a spinner instead.
func NewProgress(w io.Writer) storage.ProgressFunc {
	return func(name string, total int64) io.Writer {
		return newBar(w, name, total)
	}
}

func newBar(w io.Writer, name string, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(10),
		progressbar.OptionFullWidth(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}
