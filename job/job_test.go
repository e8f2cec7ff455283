package job

import (
	"fmt"
	"testing"
)

func TestUnmarshalJSON(t *testing.T) {
	tc := map[string]bool{
		``:              true,
		`{"foo"}`:       true,
		`{"foo":"bar"}`: true,

		// invalid url
		`{"url":"foo"}`:                  true,
		`{"url":""}`:                     true,
		`{"url":"ftp://foo.bar/x"}`:      true,
		`{"url":42}`:                     true,
		`{"format_id":"video_720p"}`:     true,

		// invalid format token
		`{"url":"https://youtube.com/watch?v=x","format_id":"best"}`: true,
		`{"url":"https://youtube.com/watch?v=x","format_id":7}`:      true,

		// callback pair must come together
		`{"url":"https://youtube.com/watch?v=x","callback_type":"http"}`:                                  true,
		`{"url":"https://youtube.com/watch?v=x","callback_dst":"http://foo.bar"}`:                         true,
		`{"url":"https://youtube.com/watch?v=x","callback_type":"http","callback_dst":"fijfij"}`:          true,
		`{"url":"https://youtube.com/watch?v=x","callback_type":"carrier-pigeon","callback_dst":"roof"}`:  true,

		// s3 pair must come together
		`{"url":"https://youtube.com/watch?v=x","s3_bucket":"artifacts"}`:   true,
		`{"url":"https://youtube.com/watch?v=x","s3_region":"eu-west-1"}`:   true,

		`{"url":"https://youtube.com/watch?v=x"}`:                                                              false,
		`{"url":"http://youtube.com/watch?v=x"}`:                                                               false,
		`{"url":"https://youtube.com/watch?v=x","format_id":""}`:                                               false,
		`{"url":"https://youtube.com/watch?v=x","format_id":"video_720p"}`:                                     false,
		`{"url":"https://youtube.com/watch?v=x","format_id":"audio_mp3"}`:                                      false,
		`{"url":"https://youtube.com/watch?v=x","callback_type":"http","callback_dst":"http://foo.bar"}`:       false,
		`{"url":"https://youtube.com/watch?v=x","callback_type":"kafka","callback_dst":"events"}`:              false,
		`{"url":"https://youtube.com/watch?v=x","callback_type":"sqs","callback_dst":"https://sqs.aws/q"}`:     false,
		`{"url":"https://youtube.com/watch?v=x","s3_bucket":"artifacts","s3_region":"eu-west-1"}`:              false,
	}

	for data, expectErr := range tc {
		j := new(Job)
		err := j.UnmarshalJSON([]byte(data))
		receivedErr := (err != nil)
		if receivedErr != expectErr {
			if err != nil {
				fmt.Println(err)
			}
			t.Errorf("Expected receivedErr to be %v for '%s'", expectErr, data)
		}
	}
}

func TestPath(t *testing.T) {
	j := Job{ID: "abcdef-123"}
	if got, want := j.Path("mp4"), "abc/abcdef-123.mp4"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestAudioOnly(t *testing.T) {
	tc := map[string]bool{
		"audio_mp3":  true,
		"video_720p": false,
		"video_best": false,
		"":           false,
	}
	for format, want := range tc {
		j := Job{RequestedFormat: format}
		if j.AudioOnly() != want {
			t.Errorf("Expected AudioOnly to be %v for %q", want, format)
		}
	}
}

func TestStateTransitionsHelpers(t *testing.T) {
	active := []State{StateQueued, StateProbing, StateDownloading, StateProcessing}
	for _, s := range active {
		if !s.Active() || s.Terminal() {
			t.Errorf("Expected %s to be active and non-terminal", s)
		}
	}

	if StateReady.Active() || StateReady.Terminal() {
		t.Error("Expected Ready to be neither active nor terminal")
	}
	for _, s := range []State{StateFailed, StateExpired} {
		if s.Active() || !s.Terminal() {
			t.Errorf("Expected %s to be terminal and inactive", s)
		}
	}
}

func TestEvent(t *testing.T) {
	j := Job{ID: "ev-1", URL: "https://youtube.com/watch?v=x", State: StateDownloading}
	if _, err := j.Event(""); err == nil {
		t.Error("Expected an error building an event for an active job")
	}

	j.State = StateReady
	e, err := j.Event("/api/result/ev-1")
	if err != nil {
		t.Fatal(err)
	}
	if !e.Success || e.ArtifactURL != "/api/result/ev-1" || e.JobID != "ev-1" {
		t.Errorf("Unexpected event %+v", e)
	}

	j.State = StateFailed
	j.ErrorKind = ErrContentUnavailable
	j.ErrorDetail = "gone"
	e, err = j.Event("")
	if err != nil {
		t.Fatal(err)
	}
	if e.Success || e.ErrorKind != ErrContentUnavailable || e.Error != "gone" {
		t.Errorf("Unexpected event %+v", e)
	}
}
