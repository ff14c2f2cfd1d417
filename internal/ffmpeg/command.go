// Package ffmpeg builds the external relay invocations and interprets
// its textual output. The relay binary is consumed as-is; nothing in
// this package touches media data.
package ffmpeg

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
)

// Binary is the relay executable resolved via PATH.
const Binary = "ffmpeg"

// TestDurationSeconds is the bounded capture length used in probe mode.
const TestDurationSeconds = 5

// StreamURL builds the RTMP URL for one variant of a camera. The path
// shape (bcs/channel0_<variant>.bcs) and query parameters are the
// camera firmware's contract.
func StreamURL(cam *camera.Camera, v camera.Variant) string {
	return fmt.Sprintf("rtmp://%s/bcs/channel0_%s.bcs?channel=0&stream=%d&user=%s&password=%s",
		cam.Address, v.Name, v.StreamNum,
		url.QueryEscape(cam.Username), url.QueryEscape(cam.Password))
}

// BuildProbeCommand builds a bounded test invocation: read the stream in
// real time for a few seconds and discard the output. Exit code 0 means
// the stream is usable; quality metrics are scraped from stderr.
func BuildProbeCommand(streamURL string) string {
	var cmd strings.Builder
	cmd.WriteString(Binary)
	cmd.WriteString(" -re")
	cmd.WriteString(" -rtmp_live live")
	cmd.WriteString(" -i \"" + streamURL + "\"")
	cmd.WriteString(fmt.Sprintf(" -t %d", TestDurationSeconds))
	cmd.WriteString(" -f null -")
	return cmd.String()
}

// BuildRelayCommand builds the persistent invocation that feeds a camera
// stream into a capture device. The fps filter pins the output rate to
// the probed source rate so the loopback device is not overrun.
func BuildRelayCommand(streamURL string, fps float64, devicePath string) string {
	rate := FormatFPS(fps)

	var cmd strings.Builder
	cmd.WriteString(Binary)
	cmd.WriteString(" -re")
	cmd.WriteString(" -rtmp_live live")
	cmd.WriteString(" -i \"" + streamURL + "\"")
	cmd.WriteString(" -vf fps=fps=" + rate)
	cmd.WriteString(" -vsync 1")
	cmd.WriteString(" -r " + rate)
	cmd.WriteString(" -f v4l2 " + devicePath)
	return cmd.String()
}

// FormatFPS renders a frame rate the way ffmpeg filter arguments expect,
// without a trailing ".0" for integral rates.
func FormatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

// ParseCommand splits a command string into arguments, handling quoted
// strings and basic escaping.
func ParseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
