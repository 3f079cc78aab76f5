package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/downdetector/internal/domain"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi sends to every member and returns all failures combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

const (
	TitleDown = "🔴 Network Down"
	TitleUp   = "🟢 Network Up"
)

// DownMessage renders the alert for an opened downtime interval.
func DownMessage(since time.Time) (title, text string) {
	return TitleDown, fmt.Sprintf("Network is down as of %s", since.Format(time.RFC3339))
}

// UpMessage renders the alert for a closed downtime interval.
func UpMessage(ev domain.DowntimeEvent) (title, text string) {
	secs := int(ev.Duration / time.Second)
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return TitleUp, fmt.Sprintf("Network is back up as of %s\nDown since: %s\nDuration: %d %s",
		ev.End.Format(time.RFC3339), ev.Start.Format(time.RFC3339), secs, unit)
}
