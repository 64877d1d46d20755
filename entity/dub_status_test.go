package entity

import "testing"

func TestDubProgressCheckpointsAreMonotonic(t *testing.T) {
	order := []DubStatus{
		DubStatusQueued,
		DubStatusDownloading,
		DubStatusExtractingAudio,
		DubStatusSeparatingAudio,
		DubStatusTranscribing,
		DubStatusTranslating,
		DubStatusGeneratingVoice,
		DubStatusMixingAudio,
		DubStatusEncodingVideo,
		DubStatusGeneratingHLS,
		DubStatusUploading,
		DubStatusCompleted,
	}

	prev := -1
	for _, status := range order {
		p := status.Progress()
		if p <= prev {
			t.Fatalf("progress for %s is %d, expected greater than %d", status, p, prev)
		}
		prev = p
	}

	if DubStatusCompleted.Progress() != 100 {
		t.Fatalf("completed progress = %d, want 100", DubStatusCompleted.Progress())
	}
	if DubStatusQueued.Progress() != 0 {
		t.Fatalf("queued progress = %d, want 0", DubStatusQueued.Progress())
	}
}

func TestDubStatusTerminal(t *testing.T) {
	terminal := []DubStatus{DubStatusCompleted, DubStatusFailed, DubStatusCancelled}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
		if status.IsActive() {
			t.Errorf("%s should not be active", status)
		}
	}

	active := []DubStatus{
		DubStatusQueued, DubStatusDownloading, DubStatusExtractingAudio,
		DubStatusSeparatingAudio, DubStatusTranscribing, DubStatusTranslating,
		DubStatusGeneratingVoice, DubStatusMixingAudio, DubStatusEncodingVideo,
		DubStatusGeneratingHLS, DubStatusUploading,
	}
	for _, status := range active {
		if status.IsTerminal() {
			t.Errorf("%s should not be terminal", status)
		}
		if !status.IsActive() {
			t.Errorf("%s should be active", status)
		}
	}

	if DubStatus("").IsActive() {
		t.Error("empty status should not be active")
	}
}

func TestDubStatusIsValid(t *testing.T) {
	if !DubStatusMixingAudio.IsValid() {
		t.Error("mixing_audio should be valid")
	}
	if DubStatus("rendering").IsValid() {
		t.Error("unknown status should not be valid")
	}
	if DubStatus("").IsValid() {
		t.Error("empty status should not be valid")
	}
}
