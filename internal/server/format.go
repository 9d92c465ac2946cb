package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"sona/internal/whisper"
)

// Response formats accepted by the transcription endpoint.
const (
	formatJSON        = "json"
	formatText        = "text"
	formatSRT         = "srt"
	formatVTT         = "vtt"
	formatVerboseJSON = "verbose_json"
)

func validFormat(f string) bool {
	_, ok := contentTypes[f]
	return ok
}

var contentTypes = map[string]string{
	formatJSON:        "application/json",
	formatText:        "text/plain; charset=utf-8",
	formatSRT:         "application/x-subrip; charset=utf-8",
	formatVTT:         "text/vtt; charset=utf-8",
	formatVerboseJSON: "application/json",
}

// Render encodes res in one of the response formats and returns the body
// with its content type. Empty format means json.
func Render(format string, res whisper.TranscribeResult, language string, duration float64) (body, contentType string, err error) {
	if format == "" {
		format = formatJSON
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return "", "", fmt.Errorf("unsupported response_format: %s", format)
	}
	switch format {
	case formatText:
		return res.Text(), contentType, nil
	case formatSRT:
		return renderSRT(res.Segments), contentType, nil
	case formatVTT:
		return renderVTT(res.Segments), contentType, nil
	case formatVerboseJSON:
		return encodeJSON(buildVerboseJSON(res, language, duration), contentType)
	default:
		return encodeJSON(map[string]string{"text": res.Text()}, contentType)
	}
}

func encodeJSON(v any, contentType string) (string, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", "", err
	}
	return string(data) + "\n", contentType, nil
}

// csToSeconds converts whisper centiseconds (10ms units) to seconds.
func csToSeconds(cs int64) float64 {
	return float64(cs) / 100.0
}

// clock splits centiseconds into h, m, s, ms.
func clock(cs int64) (h, m, s, ms int64) {
	ms = cs * 10
	s, ms = ms/1000, ms%1000
	m, s = s/60, s%60
	h, m = m/60, m%60
	return h, m, s, ms
}

// csToSRTTime formats centiseconds as HH:MM:SS,mmm.
func csToSRTTime(cs int64) string {
	h, m, s, ms := clock(cs)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// csToVTTTime formats centiseconds as HH:MM:SS.mmm.
func csToVTTTime(cs int64) string {
	h, m, s, ms := clock(cs)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func renderSRT(segments []whisper.Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n",
			i+1, csToSRTTime(seg.Start), csToSRTTime(seg.End), strings.TrimSpace(seg.Text))
	}
	return sb.String()
}

func renderVTT(segments []whisper.Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s --> %s\n%s\n",
			csToVTTTime(seg.Start), csToVTTTime(seg.End), strings.TrimSpace(seg.Text))
	}
	return sb.String()
}

type verboseSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type verboseJSON struct {
	Text     string           `json:"text"`
	Language string           `json:"language,omitempty"`
	Duration float64          `json:"duration"`
	Segments []verboseSegment `json:"segments"`
}

func buildVerboseJSON(res whisper.TranscribeResult, language string, duration float64) verboseJSON {
	segs := make([]verboseSegment, len(res.Segments))
	for i, seg := range res.Segments {
		segs[i] = verboseSegment{
			ID:    i,
			Start: csToSeconds(seg.Start),
			End:   csToSeconds(seg.End),
			Text:  seg.Text,
		}
	}
	return verboseJSON{
		Text:     res.Text(),
		Language: language,
		Duration: duration,
		Segments: segs,
	}
}
