package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/vidlingo/dub-orchestrator/entity"
)

// buildWebVTT renders speech segments as a WebVTT document. Segments with no
// text are skipped.
func buildWebVTT(segments []entity.SpeechSegment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")

	cue := 0
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cue++
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d\n", cue)
		fmt.Fprintf(&b, "%s --> %s\n", vttTimestamp(seg.StartSec), vttTimestamp(seg.EndSec))
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String()
}

func vttTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
