package entity

type DubStatus string

const (
	DubStatusQueued          DubStatus = "queued"
	DubStatusDownloading     DubStatus = "downloading"
	DubStatusExtractingAudio DubStatus = "extracting_audio"
	DubStatusSeparatingAudio DubStatus = "separating_audio"
	DubStatusTranscribing    DubStatus = "transcribing"
	DubStatusTranslating     DubStatus = "translating"
	DubStatusGeneratingVoice DubStatus = "generating_voice"
	DubStatusMixingAudio     DubStatus = "mixing_audio"
	DubStatusEncodingVideo   DubStatus = "encoding_video"
	DubStatusGeneratingHLS   DubStatus = "generating_hls"
	DubStatusUploading       DubStatus = "uploading"
	DubStatusCompleted       DubStatus = "completed"
	DubStatusFailed          DubStatus = "failed"
	DubStatusCancelled       DubStatus = "cancelled"
)

// Fixed checkpoint per stage. Progress is never interpolated inside a stage.
var dubProgress = map[DubStatus]int{
	DubStatusQueued:          0,
	DubStatusDownloading:     10,
	DubStatusExtractingAudio: 20,
	DubStatusSeparatingAudio: 25,
	DubStatusTranscribing:    30,
	DubStatusTranslating:     50,
	DubStatusGeneratingVoice: 60,
	DubStatusMixingAudio:     70,
	DubStatusEncodingVideo:   80,
	DubStatusGeneratingHLS:   85,
	DubStatusUploading:       90,
	DubStatusCompleted:       100,
}

func (s DubStatus) Progress() int {
	return dubProgress[s]
}

func (s DubStatus) IsTerminal() bool {
	switch s {
	case DubStatusCompleted, DubStatusFailed, DubStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status counts against the
// one-active-job-per-video admission check.
func (s DubStatus) IsActive() bool {
	return s != "" && !s.IsTerminal()
}

func (s DubStatus) IsValid() bool {
	switch s {
	case DubStatusQueued, DubStatusDownloading, DubStatusExtractingAudio,
		DubStatusSeparatingAudio, DubStatusTranscribing, DubStatusTranslating,
		DubStatusGeneratingVoice, DubStatusMixingAudio, DubStatusEncodingVideo,
		DubStatusGeneratingHLS, DubStatusUploading, DubStatusCompleted,
		DubStatusFailed, DubStatusCancelled:
		return true
	}
	return false
}
