// Package parser decodes the host's JSON-lines event stream into match starts, frames
// and match ends.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/pable/go-hax-metrics/internal/model"
)

const maxLineBytes = 8 << 20

// Line kinds in the host stream.
const (
	typeStart   = "start"
	typeTick    = "tick"
	typeKick    = "kick"
	typeGoal    = "goal"
	typeVictory = "victory"
	typeStop    = "stop"
	typeStadium = "stadium"
)

var ErrMalformed = errors.New("malformed line")

// Start is a decoded match start with the identity of the line it came from.
type Start struct {
	model.MatchStart
	Line int
	Hash string // sha256 of the raw start line
}

// Handler receives decoded notifications in stream order. A handler error is reported
// through Options.OnError and does not stop the stream.
type Handler interface {
	OnStart(s Start) error
	OnFrame(f model.Frame) error
	OnEnd(e model.MatchEnd) error
}

// Options tunes Parse.
type Options struct {
	// Source is copied into every MatchStart.
	Source string
	// OnError is called for every skipped line and every handler error. For handler
	// errors line is the input line that triggered the call.
	OnError func(line int, err error)
}

// Stats counts what Parse consumed.
type Stats struct {
	Lines   int
	Frames  int
	Matches int
	Skipped int
}

// LineError wraps a failure with its 1-based input line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

type stream struct {
	h       Handler
	opts    Options
	stats   Stats
	stadium string
	frame   *model.Frame
	line    int
}

// Parse reads r to the end, grouping each tick with the kick and goal lines that follow
// it into one frame. Malformed lines are reported and skipped. Parse stops early only
// when ctx is cancelled or r fails.
func Parse(ctx context.Context, r io.Reader, h Handler, opts Options) (Stats, error) {
	s := &stream{h: h, opts: opts}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return s.stats, err
		}
		s.line++
		s.stats.Lines++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if err := s.handle(raw); err != nil {
			s.stats.Skipped++
			s.report(s.line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return s.stats, fmt.Errorf("read stream: %w", err)
	}
	s.flush()
	return s.stats, nil
}

func (s *stream) report(line int, err error) {
	if s.opts.OnError != nil {
		s.opts.OnError(line, &LineError{Line: line, Err: err})
	}
}

func (s *stream) handle(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	ev := gjson.ParseBytes(raw)
	typ := ev.Get("type")
	if !typ.Exists() {
		return fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch typ.String() {
	case typeStadium:
		s.stadium = ev.Get("name").String()
		return nil
	case typeStart:
		return s.start(ev, raw)
	case typeTick:
		t, err := decodeTick(ev)
		if err != nil {
			return err
		}
		s.flush()
		s.frame = &model.Frame{Tick: t}
		return nil
	case typeKick:
		if s.frame == nil {
			return fmt.Errorf("%w: kick outside a frame", ErrMalformed)
		}
		k, err := decodeKick(ev)
		if err != nil {
			return err
		}
		s.frame.Kicks = append(s.frame.Kicks, k)
		return nil
	case typeGoal:
		if s.frame == nil {
			return fmt.Errorf("%w: goal outside a frame", ErrMalformed)
		}
		if s.frame.Goal != nil {
			return fmt.Errorf("%w: second goal in one frame", ErrMalformed)
		}
		g, err := decodeGoal(ev)
		if err != nil {
			return err
		}
		s.frame.Goal = &g
		return nil
	case typeVictory, typeStop:
		s.flush()
		end := decodeEnd(ev, typ.String())
		if err := s.h.OnEnd(end); err != nil {
			s.report(s.line, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformed, typ.String())
	}
}

func (s *stream) start(ev gjson.Result, raw []byte) error {
	ms, err := decodeStart(ev)
	if err != nil {
		return err
	}
	s.flush()
	if ms.Stadium == "" {
		ms.Stadium = s.stadium
	}
	ms.Source = s.opts.Source
	s.stats.Matches++
	st := Start{
		MatchStart: ms,
		Line:       s.line,
		Hash:       fmt.Sprintf("%x", sha256.Sum256(raw)),
	}
	if err := s.h.OnStart(st); err != nil {
		s.report(s.line, err)
	}
	return nil
}

// flush hands the open frame to the handler.
func (s *stream) flush() {
	if s.frame == nil {
		return
	}
	f := *s.frame
	s.frame = nil
	s.stats.Frames++
	if err := s.h.OnFrame(f); err != nil {
		s.report(s.line, err)
	}
}
