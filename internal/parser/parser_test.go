package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pable/go-hax-metrics/internal/model"
)

type captured struct {
	starts []Start
	frames []model.Frame
	ends   []model.MatchEnd
	order  []string

	frameErr error
}

func (c *captured) OnStart(s Start) error {
	c.starts = append(c.starts, s)
	c.order = append(c.order, "start")
	return nil
}

func (c *captured) OnFrame(f model.Frame) error {
	c.frames = append(c.frames, f)
	c.order = append(c.order, "frame")
	return c.frameErr
}

func (c *captured) OnEnd(e model.MatchEnd) error {
	c.ends = append(c.ends, e)
	c.order = append(c.order, "end")
	return nil
}

const sampleStream = `{"type":"stadium","name":"Big"}
{"type":"start","time":0,"timeLimit":3,"scoreLimit":3,"discs":[{"x":0,"y":0,"radius":10,"cGroup":193},{"x":-370,"y":64,"radius":8,"cGroup":8}]}
{"type":"tick","time":0,"ball":{"x":0,"y":0},"score":{"red":0,"blue":0,"time":0,"timeLimit":3,"scoreLimit":3},"players":[{"id":1,"name":"ana","team":1,"position":{"x":-10,"y":0}},{"id":2,"name":"sam","team":0,"position":null}]}
{"type":"kick","time":0,"player":1}
{"type":"tick","time":0.016,"ball":{"x":5,"y":0},"score":{"red":0,"blue":0},"players":[{"id":1,"name":"ana","team":"red","position":{"x":-9,"y":0}}]}

{"type":"goal","time":0.016,"team":1,"ball":{"x":380,"y":2},"score":{"red":1,"blue":0,"time":0.016}}
{"type":"victory","time":0.02,"score":{"red":1,"blue":0,"time":0.02}}
`

func TestParseGroupsFrames(t *testing.T) {
	h := &captured{}
	stats, err := Parse(context.Background(), strings.NewReader(sampleStream), h, Options{Source: "room.jsonl"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stats.Matches != 1 || stats.Frames != 2 || stats.Skipped != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	wantOrder := []string{"start", "frame", "frame", "end"}
	if strings.Join(h.order, ",") != strings.Join(wantOrder, ",") {
		t.Errorf("order: want %v, got %v", wantOrder, h.order)
	}

	st := h.starts[0]
	if st.Stadium != "Big" || st.Source != "room.jsonl" || st.TimeLimit != 3 || st.Line != 2 {
		t.Errorf("unexpected start: %+v", st)
	}
	if len(st.Hash) != 64 {
		t.Errorf("want sha256 hex hash, got %q", st.Hash)
	}
	if len(st.Discs) != 2 || st.Discs[0].CollisionGroup != 193 || st.Discs[1].Position.X != -370 {
		t.Errorf("unexpected discs: %+v", st.Discs)
	}

	f0 := h.frames[0]
	if len(f0.Kicks) != 1 || f0.Kicks[0].PlayerID != 1 || f0.Goal != nil {
		t.Errorf("frame 0: %+v", f0)
	}
	if len(f0.Tick.Players) != 2 || f0.Tick.Players[1].Position != nil || f0.Tick.Players[0].Team != model.TeamRed {
		t.Errorf("frame 0 players: %+v", f0.Tick.Players)
	}

	f1 := h.frames[1]
	if f1.Goal == nil || f1.Goal.Team != model.TeamRed || f1.Goal.Score.Red != 1 || f1.Goal.Ball.X != 380 {
		t.Errorf("frame 1 goal: %+v", f1.Goal)
	}
	if f1.Tick.Score.Time != 0.016 {
		t.Errorf("score clock should default to event time, got %v", f1.Tick.Score.Time)
	}
	if f1.Tick.Players[0].Team != model.TeamRed {
		t.Errorf("team name not parsed: %+v", f1.Tick.Players[0])
	}

	if h.ends[0].Reason != model.EndVictory || h.ends[0].Score.Red != 1 {
		t.Errorf("unexpected end: %+v", h.ends[0])
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"start","time":0}`,
		`{"type":"kick","time":0,"player":1}`,
		`not json`,
		`{"time":1}`,
		`{"type":"tick","time":"soon","ball":{"x":0,"y":0}}`,
		`{"type":"tick","time":1,"ball":{"x":0,"y":0},"players":[]}`,
		`{"type":"goal","time":1,"team":0}`,
		`{"type":"goal","time":1,"team":2}`,
		`{"type":"goal","time":1,"team":2}`,
		`{"type":"warp","time":1}`,
		`{"type":"stop","time":2}`,
	}, "\n")

	var lines []int
	h := &captured{}
	stats, err := Parse(context.Background(), strings.NewReader(input), h, Options{
		OnError: func(line int, err error) {
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("line %d: want ErrMalformed, got %v", line, err)
			}
			var le *LineError
			if !errors.As(err, &le) || le.Line != line {
				t.Errorf("line %d: want LineError, got %v", line, err)
			}
			lines = append(lines, line)
		},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []int{2, 3, 4, 5, 7, 9, 10}
	if len(lines) != len(want) {
		t.Fatalf("reported lines %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("reported lines %v, want %v", lines, want)
			break
		}
	}
	if stats.Skipped != len(want) {
		t.Errorf("skipped: want %d, got %d", len(want), stats.Skipped)
	}
	if len(h.frames) != 1 || h.frames[0].Goal == nil || h.frames[0].Goal.Team != model.TeamBlue {
		t.Errorf("want one frame with blue goal, got %+v", h.frames)
	}
	if len(h.ends) != 1 || h.ends[0].Reason != model.EndStop {
		t.Errorf("want stop, got %+v", h.ends)
	}
}

func TestParseFlushesAtEOF(t *testing.T) {
	input := `{"type":"tick","time":1,"ball":{"x":0,"y":0}}` + "\n" + `{"type":"kick","time":1,"player":4}`
	h := &captured{}
	if _, err := Parse(context.Background(), strings.NewReader(input), h, Options{}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(h.frames) != 1 || len(h.frames[0].Kicks) != 1 {
		t.Errorf("trailing frame not flushed: %+v", h.frames)
	}
}

func TestParseReportsHandlerErrors(t *testing.T) {
	boom := errors.New("engine rejected frame")
	h := &captured{frameErr: boom}
	var got []error
	input := `{"type":"tick","time":1,"ball":{"x":0,"y":0}}` + "\n" + `{"type":"stop","time":2}`
	stats, err := Parse(context.Background(), strings.NewReader(input), h, Options{
		OnError: func(_ int, err error) { got = append(got, err) },
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 1 || !errors.Is(got[0], boom) {
		t.Errorf("want handler error reported, got %v", got)
	}
	if stats.Skipped != 0 {
		t.Errorf("handler errors are not skipped lines, got %d", stats.Skipped)
	}
	if len(h.ends) != 1 {
		t.Error("stream should continue after a handler error")
	}
}

func TestParseHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader(sampleStream), &captured{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
