package extractor

import (
	"strings"
	"testing"
)

func TestBuildProbeResult(t *testing.T) {
	m := &metadata{
		Title:    "A title",
		Uploader: "someone",
		Duration: 61.7,
	}
	m.Formats = []struct {
		FormatID       string  `json:"format_id"`
		Ext            string  `json:"ext"`
		Vcodec         string  `json:"vcodec"`
		Acodec         string  `json:"acodec"`
		Height         int     `json:"height"`
		Filesize       int64   `json:"filesize"`
		FilesizeApprox float64 `json:"filesize_approx"`
	}{
		{FormatID: "140", Vcodec: "none", Acodec: "mp4a.40.2"},
		{FormatID: "160", Vcodec: "avc1", Acodec: "none", Height: 144, Filesize: 100},
		{FormatID: "134", Vcodec: "avc1", Acodec: "none", Height: 360, Filesize: 900},
		{FormatID: "18", Vcodec: "avc1", Acodec: "mp4a.40.2", Height: 360, Filesize: 1200},
		{FormatID: "137", Vcodec: "avc1", Acodec: "none", Height: 1080, FilesizeApprox: 5000},
		// below the floor, must be dropped
		{FormatID: "sb0", Vcodec: "avc1", Acodec: "none", Height: 90},
	}

	res := buildProbeResult(m)
	if res.Title != "A title" || res.Duration != 61 {
		t.Errorf("Unexpected metadata %q/%d", res.Title, res.Duration)
	}

	var ids []string
	for _, f := range res.Formats {
		ids = append(ids, f.ID)
	}
	want := []string{"audio_mp3", "video_1080p", "video_360p", "video_144p"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected formats %v, got %v", want, ids)
	}

	if res.Formats[0].Container != "mp3" || !res.Formats[0].HasAudio || res.Formats[0].HasVideo {
		t.Errorf("Unexpected audio option %+v", res.Formats[0])
	}
	for _, f := range res.Formats[1:] {
		if f.Container != "mp4" || !f.HasVideo || !f.HasAudio {
			t.Errorf("Unexpected video option %+v", f)
		}
	}

	// The largest reported size per height wins.
	if res.Formats[2].ApproxSizeBytes != 1200 {
		t.Errorf("Expected 360p size 1200, got %d", res.Formats[2].ApproxSizeBytes)
	}
	if res.Formats[1].ApproxSizeBytes != 5000 {
		t.Errorf("Expected 1080p size 5000, got %d", res.Formats[1].ApproxSizeBytes)
	}
}

func TestBuildProbeResultNoHeights(t *testing.T) {
	res := buildProbeResult(&metadata{Title: "live thing"})
	if len(res.Formats) != 2 {
		t.Fatalf("Expected audio plus a fallback video option, got %d", len(res.Formats))
	}
	if res.Formats[1].ID != "video_best" {
		t.Errorf("Expected video_best fallback, got %q", res.Formats[1].ID)
	}
}

func TestQualityLabel(t *testing.T) {
	tc := map[int]string{
		2160: "Video 2160p (4K) MP4",
		1440: "Video 1440p (2K) MP4",
		1080: "Video 1080p (Full HD) MP4",
		720:  "Video 720p (HD) MP4",
		360:  "Video 360p MP4",
	}
	for h, want := range tc {
		if got := qualityLabel(h); got != want {
			t.Errorf("qualityLabel(%d) = %q, want %q", h, got, want)
		}
	}
}

func TestFormatSelector(t *testing.T) {
	sel, twoStage, merge := formatSelector("audio_mp3")
	if sel != "bestaudio/best" || twoStage || merge {
		t.Errorf("Unexpected audio selector %q (twoStage=%v merge=%v)", sel, twoStage, merge)
	}

	sel, twoStage, merge = formatSelector("video_720p")
	if !strings.Contains(sel, "height<=720") || !twoStage || !merge {
		t.Errorf("Unexpected height selector %q (twoStage=%v merge=%v)", sel, twoStage, merge)
	}

	sel, twoStage, merge = formatSelector("video_best")
	if !strings.HasPrefix(sel, "bestvideo[ext=mp4]") || !twoStage || !merge {
		t.Errorf("Unexpected default selector %q (twoStage=%v merge=%v)", sel, twoStage, merge)
	}

	// A malformed height token degrades to the default selector.
	sel, _, _ = formatSelector("video_oddp")
	if strings.Contains(sel, "height<=") {
		t.Errorf("Expected no height constraint for a bad token, got %q", sel)
	}
}
