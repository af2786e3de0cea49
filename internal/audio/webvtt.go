package audio

import (
	"fmt"
	"strconv"
	"strings"
)

// Word is a single transcribed word, attributed to a speaker, relative to
// the merged timeline's t=0.
type Word struct {
	Text    string
	Start   float64 // seconds
	End     float64 // seconds
	Speaker int
}

// cueGapThreshold is the silence gap that forces a new cue even when the
// speaker doesn't change.
const cueGapThreshold = 1.5

// Cue is one WebVTT subtitle segment.
type Cue struct {
	Start   float64
	End     float64
	Speaker int
	Text    string
}

// GenerateWebVTT renders words into bit-exact WebVTT: a `WEBVTT` header,
// then one cue per consecutive same-speaker run, split additionally
// whenever the gap to the next word exceeds 1.5s.
func GenerateWebVTT(words []Word) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, cue := range cuesFromWords(words) {
		b.WriteString(formatTimestamp(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(cue.End))
		b.WriteString("\n")
		fmt.Fprintf(&b, "<v Speaker%d>%s\n\n", cue.Speaker, cue.Text)
	}
	return b.String()
}

// cuesFromWords groups consecutive words into cues: a new cue starts when
// the speaker changes or the gap since the previous word exceeds 1.5s.
func cuesFromWords(words []Word) []Cue {
	if len(words) == 0 {
		return nil
	}

	var cues []Cue
	cur := Cue{Start: words[0].Start, End: words[0].End, Speaker: words[0].Speaker, Text: words[0].Text}
	for _, w := range words[1:] {
		gap := w.Start - cur.End
		if w.Speaker != cur.Speaker || gap > cueGapThreshold {
			cues = append(cues, cur)
			cur = Cue{Start: w.Start, End: w.End, Speaker: w.Speaker, Text: w.Text}
			continue
		}
		cur.End = w.End
		cur.Text += " " + w.Text
	}
	cues = append(cues, cur)
	return cues
}

func formatTimestamp(seconds float64) string {
	totalMs := int64(seconds*1000 + 0.5)
	h := totalMs / 3600000
	m := (totalMs % 3600000) / 60000
	s := (totalMs % 60000) / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// ParseWebVTT parses WebVTT text generated by GenerateWebVTT back into
// cues, used by the generate-then-parse round-trip test.
func ParseWebVTT(vtt string) ([]Cue, error) {
	lines := strings.Split(strings.ReplaceAll(vtt, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "WEBVTT" {
		return nil, fmt.Errorf("webvtt: missing WEBVTT header")
	}

	var cues []Cue
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		start, end, err := parseTimestampLine(line)
		if err != nil {
			return nil, err
		}
		i++
		if i >= len(lines) {
			return nil, fmt.Errorf("webvtt: missing payload line after %q", line)
		}
		speaker, text, err := parsePayloadLine(lines[i])
		if err != nil {
			return nil, err
		}
		cues = append(cues, Cue{Start: start, End: end, Speaker: speaker, Text: text})
	}
	return cues, nil
}

func parseTimestampLine(line string) (start, end float64, err error) {
	parts := strings.SplitN(line, " --> ", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("webvtt: malformed timestamp line %q", line)
	}
	start, err = parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err = parseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseTimestamp(s string) (float64, error) {
	var h, m, sec, ms int
	if _, err := fmt.Sscanf(s, "%02d:%02d:%02d.%03d", &h, &m, &sec, &ms); err != nil {
		return 0, fmt.Errorf("webvtt: bad timestamp %q: %w", s, err)
	}
	return float64(h)*3600 + float64(m)*60 + float64(sec) + float64(ms)/1000, nil
}

func parsePayloadLine(line string) (speaker int, text string, err error) {
	if !strings.HasPrefix(line, "<v Speaker") {
		return 0, "", fmt.Errorf("webvtt: malformed payload line %q", line)
	}
	rest := line[len("<v Speaker"):]
	idx := strings.Index(rest, ">")
	if idx < 0 {
		return 0, "", fmt.Errorf("webvtt: malformed payload line %q", line)
	}
	speaker, err = strconv.Atoi(rest[:idx])
	if err != nil {
		return 0, "", fmt.Errorf("webvtt: bad speaker index in %q: %w", line, err)
	}
	return speaker, rest[idx+1:], nil
}
