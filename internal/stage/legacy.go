package stage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/progression"
)

// Announcer delivers plain text to wherever the audience reads it.
type Announcer interface {
	Announce(ctx context.Context, msg string) error
}

// LogAnnouncer writes announcements to the log.
type LogAnnouncer struct {
	Log logrus.FieldLogger
}

func (a LogAnnouncer) Announce(_ context.Context, msg string) error {
	a.Log.WithField("announce", true).Info(msg)
	return nil
}

// WriterAnnouncer writes each announcement followed by a blank line.
type WriterAnnouncer struct {
	W io.Writer
}

func (a WriterAnnouncer) Announce(_ context.Context, msg string) error {
	_, err := fmt.Fprintf(a.W, "%s\n\n", msg)
	return err
}

// Legacy reports pulls as text when the stage cannot show them.
type Legacy struct {
	announcer Announcer
	log       logrus.FieldLogger
}

func NewLegacy(announcer Announcer, log logrus.FieldLogger) *Legacy {
	if announcer == nil {
		announcer = LogAnnouncer{Log: log}
	}
	return &Legacy{announcer: announcer, log: log}
}

// Report sends outcomes in messages of cfg.LegacyGroup lines, waiting cfg.LegacyDelay between
// messages. offset is the roll-order index of the first outcome. Messages are still sent
// after ctx is cancelled, just without the delay.
func (l *Legacy) Report(ctx context.Context, cfg Config, who string, outcomes []progression.PullOutcome, offset int) error {
	size := cfg.LegacyGroup
	if size <= 0 {
		size = 5
	}
	send := context.WithoutCancel(ctx)
	var firstErr error
	for start := 0; start < len(outcomes); start += size {
		if start > 0 {
			_ = sleep(ctx, cfg.LegacyDelay)
		}
		end := min(start+size, len(outcomes))
		var b strings.Builder
		fmt.Fprintf(&b, "%s pulled:", who)
		for i, o := range outcomes[start:end] {
			b.WriteString("\n")
			b.WriteString(FormatLine(offset+start+i+1, o))
		}
		if err := l.announcer.Announce(send, b.String()); err != nil {
			l.log.WithError(err).Warn("announce failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// FormatLine renders one pull as "idx. name [RARITY] Lv.level", starred when shiny.
func FormatLine(idx int, o progression.PullOutcome) string {
	line := fmt.Sprintf("%d. %s [%s] Lv.%d", idx, o.Name, o.Rarity, o.Level)
	if o.Shiny {
		line += " ★"
	}
	return line
}
