package observability

import "testing"

func TestTurnStageWindowSnapshotStats(t *testing.T) {
	w := newTurnStageWindow(8)
	for _, ms := range []float64{100, 200, 300, 400} {
		w.Observe("llm", ms)
	}

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("Stages = %d, want 1", len(snap.Stages))
	}

	s := snap.Stages[0]
	if s.Stage != "llm" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "llm")
	}
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want 4", s.Samples)
	}
	if s.LastMS != 400 {
		t.Fatalf("LastMS = %v, want 400", s.LastMS)
	}
	if s.AvgMS != 250 {
		t.Fatalf("AvgMS = %v, want 250", s.AvgMS)
	}
	if s.P50MS != 250 {
		t.Fatalf("P50MS = %v, want 250", s.P50MS)
	}
	if s.TargetP95MS != 3000 {
		t.Fatalf("TargetP95MS = %v, want 3000", s.TargetP95MS)
	}
}

func TestTurnStageWindowWrapsRing(t *testing.T) {
	w := newTurnStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("stt", float64(i*100))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("Stages = %d, want 1", len(snap.Stages))
	}
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("Samples = %d, want window cap 4", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 900 {
		t.Fatalf("LastMS = %v, want 900", snap.Stages[0].LastMS)
	}
}

func TestTurnStageWindowIgnoresInvalidObservations(t *testing.T) {
	w := newTurnStageWindow(4)
	w.Observe("", 100)
	w.Observe("tts", -5)

	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("Stages = %d after invalid observations, want 0", got)
	}
}

func TestTurnStageWindowIndicators(t *testing.T) {
	w := newTurnStageWindow(4)
	w.ObserveIndicator("tts_fallback")
	w.ObserveIndicator("tts_fallback")
	w.ObserveIndicator("  ")

	snap := w.Snapshot()
	if len(snap.Indicators) != 1 {
		t.Fatalf("Indicators = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "tts_fallback" || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicator = %+v, want tts_fallback x2", snap.Indicators[0])
	}
}
