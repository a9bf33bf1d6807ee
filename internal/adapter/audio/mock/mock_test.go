package mock

import (
	"errors"
	"testing"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// TestAnalyserQueuedFrames tests that queued frames are returned in order.
func TestAnalyserQueuedFrames(t *testing.T) {
	a := NewAnalyser()
	if err := a.SetFFTSize(8); err == nil {
		t.Fatal("Expected size below the floor to be rejected")
	}
	if err := a.SetFFTSize(64); err != nil {
		t.Fatalf("SetFFTSize failed: %v", err)
	}

	a.PushFrame([]byte{1, 2, 3})
	a.PushFrame([]byte{9})

	dst := make([]byte, 32)
	if n := a.ByteFrequencyData(dst); n != 32 {
		t.Fatalf("Expected 32 values, got %d", n)
	}
	if dst[0] != 1 || dst[2] != 3 || dst[3] != 0 {
		t.Errorf("Unexpected first frame %v", dst[:4])
	}

	a.ByteFrequencyData(dst)
	if dst[0] != 9 || dst[1] != 0 {
		t.Errorf("Unexpected second frame %v", dst[:2])
	}

	// Queue exhausted: last frame repeats.
	a.ByteFrequencyData(dst)
	if dst[0] != 9 {
		t.Errorf("Expected last frame to repeat, got %v", dst[:2])
	}
	if a.Reads() != 3 {
		t.Errorf("Expected 3 reads, got %d", a.Reads())
	}
}

// TestAnalyserSuspendHoldsFrame tests that suspension freezes output.
func TestAnalyserSuspendHoldsFrame(t *testing.T) {
	a := NewAnalyser()
	a.PushFrame([]byte{5})
	a.PushFrame([]byte{6})

	dst := make([]byte, 4)
	a.ByteFrequencyData(dst)

	a.Suspend()
	a.ByteFrequencyData(dst)
	if dst[0] != 5 {
		t.Errorf("Expected held frame while suspended, got %d", dst[0])
	}

	a.Resume()
	a.ByteFrequencyData(dst)
	if dst[0] != 6 {
		t.Errorf("Expected queued frame after resume, got %d", dst[0])
	}
}

// TestAnalyserSource tests generated frames.
func TestAnalyserSource(t *testing.T) {
	a := NewAnalyser()
	if err := a.SetFFTSize(256); err != nil {
		t.Fatal(err)
	}
	a.SetSource(WaveSource())

	first := make([]byte, 128)
	second := make([]byte, 128)
	a.ByteFrequencyData(first)
	a.ByteFrequencyData(second)

	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected the wave to move between frames")
	}
}

// TestAnalyserFailSetFFTSize tests the failure switch.
func TestAnalyserFailSetFFTSize(t *testing.T) {
	a := NewAnalyser()
	a.SetFailSetFFTSize(true)

	var verr *domain.ValidationError
	if err := a.SetFFTSize(1024); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
	if a.SizeChanges() != 0 {
		t.Error("Failed change must not be counted")
	}
}

func collect(bus *eventbus.SyncEventBus) *[]domain.MediaEvent {
	var got []domain.MediaEvent
	bus.Subscribe(domain.AnySource, func(e domain.Event) {
		got = append(got, e.(domain.MediaEvent))
	}, domain.MediaEventTypes...)
	return &got
}

// TestMediaLifecycleEvents tests that play, pause and close publish events.
func TestMediaLifecycleEvents(t *testing.T) {
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()
	got := collect(bus)

	m := NewMedia("m1", bus)
	if !m.Paused() {
		t.Fatal("New media should be paused")
	}

	if err := m.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	_ = m.Play() // no-op while playing
	m.Advance(2 * time.Second)
	if err := m.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := []domain.EventType{domain.EventMediaPlay, domain.EventMediaPause, domain.EventMediaEmptied}
	if len(*got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(*got))
	}
	for i, e := range *got {
		if e.Kind != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], e.Kind)
		}
		if e.MediaID != "m1" {
			t.Errorf("Event %d: expected media id m1, got %s", i, e.MediaID)
		}
	}
	if (*got)[1].Position != 2*time.Second {
		t.Errorf("Expected pause at 2s, got %v", (*got)[1].Position)
	}

	if err := m.Play(); err == nil {
		t.Error("Expected Play after Close to fail")
	}
}

// TestMediaFailPlayPublishesError tests the failure switch.
func TestMediaFailPlayPublishesError(t *testing.T) {
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()
	got := collect(bus)

	m := NewMedia("m2", bus)
	m.SetFailPlay(true)

	err := m.Play()
	var merr *domain.MediaError
	if !errors.As(err, &merr) {
		t.Fatalf("Expected MediaError, got %v", err)
	}
	if len(*got) != 1 || (*got)[0].Kind != domain.EventMediaError || (*got)[0].Err == nil {
		t.Errorf("Expected one error event, got %+v", *got)
	}
}

// TestMediaEmit tests scripted events.
func TestMediaEmit(t *testing.T) {
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()
	got := collect(bus)

	m := NewMedia("m3", bus)
	m.Emit(domain.EventMediaPlay)
	if m.Paused() {
		t.Error("Expected playing after play event")
	}
	m.Emit(domain.EventMediaStalled)
	if m.Paused() {
		t.Error("Stalled must not pause the element")
	}
	m.Emit(domain.EventMediaEnded)
	if !m.Paused() {
		t.Error("Expected paused after ended")
	}
	if len(*got) != 3 {
		t.Errorf("Expected 3 events, got %d", len(*got))
	}
}
