package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxSSELineSize caps a single SSE line (32 MiB). Gemini sends generated
// images and code execution plots as base64 on one "data:" line, so the cap
// sits well above typical image sizes. A longer line drops only its own frame.
const maxSSELineSize = 32 * 1024 * 1024

// oversizedHeadLen is how much of a dropped line is kept for reporting.
const oversizedHeadLen = 64

// doneSentinel terminates OpenAI-compatible and backend streams.
const doneSentinel = "[DONE]"

// ErrFrameTooLarge is returned by Next for a frame holding a line above the
// size cap. The frame is discarded and the scanner stays usable.
var ErrFrameTooLarge = errors.New("SSE frame exceeds size limit")

// SSEScanner groups raw transport lines into logical Server-Sent Events frames.
//
// A frame is the concatenation of consecutive "data:" payloads joined with
// "\n". Payloads are kept verbatim: escaped sequences such as a literal
// backslash-n inside a JSON string are never unescaped. Comment lines
// (":heartbeat") are dropped, "event:" names are remembered but otherwise
// informational, and a frame equal to [DONE] (any case) ends the stream.
//
// Some providers emit bare NDJSON instead of strict SSE. A line that is not
// SSE-shaped but starts with '{' or '[' is treated as a complete frame.
type SSEScanner struct {
	reader    *bufio.Reader
	source    io.Reader
	maxLine   int
	done      bool
	skipping  bool
	pending   string
	lastEvent string
}

// NewSSEScanner creates an SSEScanner that reads SSE events from the given reader.
// Lines up to maxSSELineSize are accepted; a frame with a longer line makes
// Next return ErrFrameTooLarge and reading continues with the following frame.
// When the [DONE] sentinel is read and the reader is an io.Closer, it is closed.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	return newSSEScanner(reader, maxSSELineSize)
}

func newSSEScanner(reader io.Reader, maxLine int) *SSEScanner {
	return &SSEScanner{
		reader:  bufio.NewReaderSize(reader, 64*1024),
		source:  reader,
		maxLine: maxLine,
	}
}

// oversizedLineError describes a discarded line by its first bytes.
type oversizedLineError struct {
	head string
}

func (e *oversizedLineError) Error() string {
	return fmt.Sprintf("line starting %q is too long", e.head)
}

// readLine returns the next line without its terminator. A line longer than
// maxLine is consumed up to its newline and reported as *oversizedLineError.
func (sseScanner *SSEScanner) readLine() (string, error) {
	var line []byte
	var head []byte
	oversized := false
	for {
		chunk, err := sseScanner.reader.ReadSlice('\n')
		if !oversized && len(line)+len(chunk) > sseScanner.maxLine+2 {
			oversized = true
			head = append(line, chunk...)
			if len(head) > oversizedHeadLen {
				head = head[:oversizedHeadLen]
			}
			head = append([]byte(nil), head...)
			line = nil
		}
		if !oversized {
			line = append(line, chunk...)
		}

		if err == bufio.ErrBufferFull {
			continue
		}
		if oversized {
			if err != nil && err != io.EOF {
				return "", err
			}
			return "", &oversizedLineError{head: string(head)}
		}
		if err == io.EOF && len(line) > 0 {
			return trimLineEnding(line), nil
		}
		if err != nil {
			return "", err
		}
		return trimLineEnding(line), nil
	}
}

func trimLineEnding(line []byte) string {
	text := strings.TrimSuffix(string(line), "\n")
	return strings.TrimSuffix(text, "\r")
}

// LastEventName returns the value of the most recent "event:" field.
func (sseScanner *SSEScanner) LastEventName() string {
	return sseScanner.lastEvent
}

// Next returns the next frame payload.
// Returns io.EOF when the source is exhausted or the [DONE] sentinel is seen;
// any partially accumulated frame is returned before io.EOF.
func (sseScanner *SSEScanner) Next() (string, error) {
	if sseScanner.done {
		return "", io.EOF
	}

	if sseScanner.pending != "" {
		frame := sseScanner.pending
		sseScanner.pending = ""
		return sseScanner.emit(frame)
	}

	var dataLines []string

	for {
		line, err := sseScanner.readLine()
		if err == io.EOF {
			break
		}
		var oversized *oversizedLineError
		if errors.As(err, &oversized) {
			// An oversized data line poisons its whole frame; an oversized
			// raw line leaves the frame before it intact
			if strings.HasPrefix(oversized.head, "data:") {
				sseScanner.skipping = true
			} else if len(dataLines) > 0 {
				sseScanner.pending = strings.Join(dataLines, "\n")
			}
			return "", fmt.Errorf("%w: %w", ErrFrameTooLarge, err)
		}
		if err != nil {
			sseScanner.done = true
			return "", fmt.Errorf("SSE read error: %w", err)
		}

		// Empty line signals end of an event; flush accumulated data lines
		if strings.TrimSpace(line) == "" {
			if sseScanner.skipping {
				sseScanner.skipping = false
				dataLines = nil
				continue
			}
			if len(dataLines) > 0 {
				return sseScanner.emit(strings.Join(dataLines, "\n"))
			}
			continue
		}

		// Skip SSE comments and heartbeats
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			if sseScanner.skipping {
				continue
			}
			data := strings.TrimPrefix(line, "data:")
			data = strings.TrimPrefix(data, " ")

			// A lone [DONE] needs no blank-line terminator
			if len(dataLines) == 0 && isDoneSentinel(data) {
				return sseScanner.emit(data)
			}

			dataLines = append(dataLines, data)
			continue
		}

		if strings.HasPrefix(line, "event:") {
			sseScanner.lastEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}

		if strings.HasPrefix(line, "id:") || strings.HasPrefix(line, "retry:") {
			continue
		}

		// NDJSON fallback
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			sseScanner.skipping = false
			if len(dataLines) > 0 {
				sseScanner.pending = trimmed
				return sseScanner.emit(strings.Join(dataLines, "\n"))
			}
			return sseScanner.emit(trimmed)
		}

		slog.Debug("ignoring non-SSE line", "line", TruncateString(line, 120))
	}

	// Flush the residual buffer when the stream ends without a blank line
	if len(dataLines) > 0 {
		frame, err := sseScanner.emit(strings.Join(dataLines, "\n"))
		sseScanner.done = true
		return frame, err
	}

	sseScanner.done = true
	return "", io.EOF
}

// emit returns frame unless it is the [DONE] sentinel, which terminates the
// scanner and closes the source.
func (sseScanner *SSEScanner) emit(frame string) (string, error) {
	if !isDoneSentinel(frame) {
		return frame, nil
	}

	sseScanner.done = true
	sseScanner.pending = ""
	if closer, ok := sseScanner.source.(io.Closer); ok {
		CloseWithLog(closer)
	}
	return "", io.EOF
}

func isDoneSentinel(frame string) bool {
	return strings.EqualFold(strings.TrimSpace(frame), doneSentinel)
}
