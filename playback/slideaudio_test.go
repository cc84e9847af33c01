package playback_test

import (
	"testing"
	"time"

	"github.com/alphapresenter/alphapresenter/playback"
	"github.com/alphapresenter/alphapresenter/playback/engine"
)

type slideAudioFixture struct {
	lib    *fakeLibrary
	engine *engine.Mock
	player *playback.SlideAudioPlayer
}

func newSlideAudioFixture(t *testing.T) *slideAudioFixture {
	t.Helper()
	f := &slideAudioFixture{
		lib:    newFakeLibrary(),
		engine: engine.NewMock(true),
	}
	t.Cleanup(f.engine.Close)
	program := playback.NewProgramPlayer(f.engine, f.lib, testLogger())
	f.player = playback.NewSlideAudioPlayer(program, testLogger())

	f.lib.addTrack("pad", 20)
	f.engine.SetDuration(mediaPath("pad"), 20)
	f.lib.programs["ambient"] = &playback.Program{
		ProgramName: "ambient",
		Tracks:      []playback.ProgramTrackEntry{{TrackName: "pad", PlayOrder: 1}},
	}
	return f
}

func TestSlideAudioNoProgramStaysInactive(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{})
	if f.player.IsAudioActive() {
		t.Error("audio active with no program configured")
	}
}

func TestSlideAudioMissingProgramDegrades(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:   "nope",
		AudioProgramVolume: 0.5,
	})
	if f.player.IsAudioActive() {
		t.Error("audio active after failed program load")
	}
}

func TestSlideAudioIntroDelay(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		AudioIntroDelayMs:  40,
		AudioProgramVolume: 0.5,
	})

	// During the intro the slide counts as audio-active but the engine
	// has not been told to play yet.
	if !f.player.IsAudioActive() {
		t.Fatal("audio inactive during intro wait")
	}
	for _, call := range f.engine.Calls() {
		if call == "play" {
			t.Fatal("engine played before the intro delay elapsed")
		}
	}

	if !waitFor(time.Second, func() {
		for _, call := range f.engine.Calls() {
			if call == "play" {
				return true
			}
		}
		return false
	}) {
		t.Fatal("engine never played after intro delay")
	}
}

func TestSlideAudioVolumeAppliedBeforePlay(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		AudioProgramVolume: 0.3,
	})
	if v := f.engine.Volume(); v != 0.3 {
		t.Errorf("engine volume = %v, want 0.3", v)
	}
	f.player.Stop()
}

func TestSlideAudioOutroKeepsSlideActive(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:     "ambient",
		AudioOutroDurationMs: 120,
		AudioProgramVolume:   0.5,
	})

	// The 20ms program ends quickly; the outro must hold the active
	// state for a while after.
	time.Sleep(70 * time.Millisecond)
	if !f.player.IsAudioActive() {
		t.Fatal("audio inactive during outro wait")
	}

	if !waitFor(time.Second, func() { return !f.player.IsAudioActive() }) {
		t.Error("audio still active long after outro")
	}
}

func TestSlideAudioCompletesWithoutOutro(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		AudioProgramVolume: 0.5,
	})
	if !waitFor(time.Second, func() { return !f.player.IsAudioActive() }) {
		t.Error("audio never went inactive after program end")
	}
}

func TestSlideAudioLoopRepeatsCycle(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		LoopAudioProgram:   true,
		AudioProgramVolume: 0.5,
	})

	// Through several 20ms program passes the looping cycle never goes
	// inactive.
	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		if !f.player.IsAudioActive() {
			t.Fatal("looping slide audio went inactive")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.player.Stop()
	if f.player.IsAudioActive() {
		t.Error("audio active after Stop")
	}
}

func TestSlideAudioStopResetsVolumeAndIsIdempotent(t *testing.T) {
	f := newSlideAudioFixture(t)
	f.player.LoadAndPlay(playback.SlideAudioSettings{
		AudioProgramName:   "ambient",
		AudioIntroDelayMs:  500,
		AudioProgramVolume: 0.2,
	})
	f.player.Stop()
	f.player.Stop()
	f.engine.Sync()

	if f.player.IsAudioActive() {
		t.Error("audio active after Stop")
	}
	if v := f.engine.Volume(); v != playback.DefaultProgramVolume {
		t.Errorf("volume after Stop = %v, want default %v", v, playback.DefaultProgramVolume)
	}

	// The canceled intro timer must not start playback later.
	time.Sleep(50 * time.Millisecond)
	if f.player.IsAudioActive() {
		t.Error("stale intro timer restarted audio")
	}
}
