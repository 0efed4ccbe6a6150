package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/pable/go-hax-metrics/internal/engine"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/internal/parser"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

const startLine = `{"type":"start","time":0,"stadium":"Classic","timeLimit":3,"scoreLimit":3,"discs":[` +
	`{"x":0,"y":0,"radius":10,"cGroup":1},` +
	`{"x":-370,"y":64,"radius":8,"cGroup":8},{"x":-370,"y":-64,"radius":8,"cGroup":8},` +
	`{"x":370,"y":64,"radius":8,"cGroup":16},{"x":370,"y":-64,"radius":8,"cGroup":16}]}`

// ana kicks to ben, ben carries it in.
const passAndScore = startLine + `
{"type":"tick","time":0,"ball":{"x":0,"y":0},"score":{"red":0,"blue":0},"players":[{"id":1,"name":"ana","team":1,"position":{"x":-10,"y":0}},{"id":2,"name":"ben","team":1,"position":{"x":200,"y":0}},{"id":3,"name":"cleo","team":2,"position":{"x":300,"y":100}}]}
{"type":"kick","time":0,"player":1}
{"type":"tick","time":1,"ball":{"x":100,"y":0},"score":{"red":0,"blue":0},"players":[{"id":1,"name":"ana","team":1,"position":{"x":-50,"y":0}},{"id":2,"name":"ben","team":1,"position":{"x":110,"y":0}},{"id":3,"name":"cleo","team":2,"position":{"x":300,"y":100}}]}
{"type":"tick","time":3,"ball":{"x":380,"y":0},"score":{"red":0,"blue":0},"players":[{"id":1,"name":"ana","team":1,"position":{"x":-50,"y":0}},{"id":2,"name":"ben","team":1,"position":{"x":300,"y":0}},{"id":3,"name":"cleo","team":2,"position":{"x":300,"y":100}}]}
{"type":"goal","time":3,"team":1,"ball":{"x":380,"y":0},"score":{"red":1,"blue":0}}
{"type":"victory","time":4,"score":{"red":1,"blue":0}}
`

type fakeStore struct{ exists map[string]bool }

func (f *fakeStore) MatchExists(id string) (bool, error) { return f.exists[id], nil }

type fakeSaver struct {
	accept bool
	recs   []*model.MatchRecord
	stats  [][]model.PlayerMatchStats
}

func (f *fakeSaver) Submit(rec *model.MatchRecord, stats []model.PlayerMatchStats) bool {
	f.recs = append(f.recs, rec)
	f.stats = append(f.stats, stats)
	return f.accept
}

func newRunner(opts ...Option) (*Runner, *[]Outcome) {
	var outs []Outcome
	eng := engine.New(engine.WithLogger(logger.Discard()))
	opts = append(opts,
		WithLogger(logger.Discard()),
		WithMatchHandler(func(o Outcome) { outs = append(outs, o) }))
	return New(eng, opts...), &outs
}

func run(t *testing.T, r *Runner, stream string) parser.Stats {
	t.Helper()
	var lineErrs []error
	stats, err := r.Run(context.Background(), strings.NewReader(stream), parser.Options{
		Source:  "room.jsonl",
		OnError: func(_ int, err error) { lineErrs = append(lineErrs, err) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lineErrs) > 0 {
		t.Fatalf("unexpected line errors: %v", lineErrs)
	}
	return stats
}

func TestRunnerRecordsMatch(t *testing.T) {
	saver := &fakeSaver{accept: true}
	r, outs := newRunner(WithSaver(saver))
	run(t, r, passAndScore)

	if len(*outs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(*outs))
	}
	out := (*outs)[0]
	rec := out.Record
	if !out.Queued || len(saver.recs) != 1 || saver.recs[0] != rec {
		t.Fatalf("match not handed to the saver: queued=%v saved=%d", out.Queued, len(saver.recs))
	}
	if rec.ID != MatchID("room.jsonl", sha256Hex(startLine), 1) {
		t.Errorf("match id %s not derived from the start line", rec.ID)
	}
	if rec.Summary.Source != "room.jsonl" || rec.Summary.ScoreRed != 1 || rec.Summary.EndReason != model.EndVictory {
		t.Errorf("summary: %+v", rec.Summary)
	}

	if len(rec.Kicks) != 2 || rec.Kicks[0].Type != model.KickPass || rec.Kicks[1].Type != model.KickGoal {
		t.Fatalf("kicks: %+v", rec.Kicks)
	}
	g := rec.Goals[0]
	if g.Scorer == nil || g.Scorer.Name != "ben" || g.Assist == nil || g.Assist.Name != "ana" {
		t.Errorf("goal attribution: %+v", g)
	}

	byName := map[string]model.PlayerMatchStats{}
	for _, s := range out.Stats {
		byName[s.Name] = s
	}
	if byName["ana"].PassesCompleted != 1 || byName["ana"].Assists != 1 {
		t.Errorf("ana: %+v", byName["ana"])
	}
	if byName["ben"].Goals != 1 || byName["ben"].PassesReceived != 1 {
		t.Errorf("ben: %+v", byName["ben"])
	}
	if len(out.Possession) != 2 || out.Possession[0].Team != model.TeamRed || out.Possession[0].Pct != 100 {
		t.Errorf("possession: %+v", out.Possession)
	}
}

func TestRunnerSkipsStoredMatches(t *testing.T) {
	id := MatchID("room.jsonl", sha256Hex(startLine), 1)
	saver := &fakeSaver{accept: true}
	var skipped []string
	r, outs := newRunner(
		WithStore(&fakeStore{exists: map[string]bool{id: true}}),
		WithSaver(saver),
		WithSkipHandler(func(id string) { skipped = append(skipped, id) }))

	stats := run(t, r, passAndScore)
	if stats.Matches != 1 {
		t.Errorf("parser should still see the match: %+v", stats)
	}
	if len(*outs) != 0 || len(saver.recs) != 0 {
		t.Errorf("stored match was replayed: outcomes=%d saved=%d", len(*outs), len(saver.recs))
	}
	if len(skipped) != 1 || skipped[0] != id {
		t.Errorf("skipped: %v", skipped)
	}
}

func TestRunnerStopsDanglingMatch(t *testing.T) {
	stream := strings.Join(strings.Split(passAndScore, "\n")[:4], "\n") + "\n"
	r, outs := newRunner()
	run(t, r, stream)

	if len(*outs) != 1 {
		t.Fatalf("expected the open match to be closed, got %d", len(*outs))
	}
	rec := (*outs)[0].Record
	if rec.Summary.EndReason != model.EndStop || rec.Summary.Duration != 1 {
		t.Errorf("summary: %+v", rec.Summary)
	}
	if len(rec.Kicks) != 1 || rec.Kicks[0].Type != model.KickPass {
		t.Errorf("kicks: %+v", rec.Kicks)
	}
}

func TestRunnerRestartsOnSecondStart(t *testing.T) {
	// Two starts without an end in between: the first match is stopped, not lost.
	stream := strings.Join(strings.Split(passAndScore, "\n")[:3], "\n") + "\n" + passAndScore
	r, outs := newRunner()
	run(t, r, stream)

	if len(*outs) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(*outs))
	}
	first, second := (*outs)[0].Record, (*outs)[1].Record
	if first.Summary.EndReason != model.EndStop || second.Summary.EndReason != model.EndVictory {
		t.Errorf("end reasons: %s, %s", first.Summary.EndReason, second.Summary.EndReason)
	}
	if first.ID == second.ID {
		t.Error("identical start lines must still get distinct ids")
	}
}

func TestRunnerReportsUnqueuedMatch(t *testing.T) {
	saver := &fakeSaver{accept: false}
	r, outs := newRunner(WithSaver(saver))
	run(t, r, passAndScore)

	if len(*outs) != 1 || (*outs)[0].Queued {
		t.Errorf("expected an unqueued outcome: %+v", *outs)
	}
}

func TestMatchIDIsStable(t *testing.T) {
	a := MatchID("room.jsonl", "abc", 1)
	if a != MatchID("room.jsonl", "abc", 1) {
		t.Error("same inputs must give the same id")
	}
	for _, other := range []string{
		MatchID("room.jsonl", "abc", 2),
		MatchID("other.jsonl", "abc", 1),
		MatchID("room.jsonl", "abd", 1),
	} {
		if other == a {
			t.Errorf("collision: %s", other)
		}
	}
}

func TestPaceHonoursContext(t *testing.T) {
	r, _ := newRunner(WithSpeed(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	r.ctx = ctx
	if err := r.pace(0); err != nil {
		t.Fatalf("first pace: %v", err)
	}
	cancel()
	if err := r.pace(10); err == nil {
		t.Error("expected context error while sleeping")
	}
}

func TestRunnerIgnoresStopAfterVictory(t *testing.T) {
	saver := &fakeSaver{accept: true}
	r, outs := newRunner(WithSaver(saver))
	run(t, r, passAndScore+`{"type":"stop","time":4}`+"\n")

	if len(*outs) != 1 || len(saver.recs) != 1 {
		t.Fatalf("expected one finished match, got %d (%d submitted)", len(*outs), len(saver.recs))
	}
	if reason := (*outs)[0].Record.Summary.EndReason; reason != model.EndVictory {
		t.Errorf("end reason: want victory, got %s", reason)
	}
}
