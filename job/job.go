package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mediagrab/mediagrab/platform"
)

// State represents the lifecycle state of a download job.
// For valid values see constants below.
type State string

// The available states of a Job. Failed and Expired are terminal;
// Ready is the only state from which an artifact may be served.
const (
	StateQueued      State = "Queued"
	StateProbing     State = "Probing"
	StateDownloading State = "Downloading"
	StateProcessing  State = "Processing"
	StateReady       State = "Ready"
	StateFailed      State = "Failed"
	StateExpired     State = "Expired"
)

// Terminal returns true if no further transitions may leave s.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateExpired
}

// Active returns true if a background execution unit may still be
// working on a job in state s.
func (s State) Active() bool {
	switch s {
	case StateQueued, StateProbing, StateDownloading, StateProcessing:
		return true
	}
	return false
}

// ErrorKind classifies a job or request failure. The values double as
// the machine-readable error codes exposed over the API.
type ErrorKind string

const (
	ErrUnsupportedPlatform ErrorKind = "UnsupportedPlatform"
	ErrMalformedURL        ErrorKind = "MalformedUrl"
	ErrContentUnavailable  ErrorKind = "ContentUnavailable"
	ErrBlockedByPlatform   ErrorKind = "BlockedByPlatform"
	ErrNetwork             ErrorKind = "NetworkError"
	ErrProcessing          ErrorKind = "ProcessingError"
	ErrTimeout             ErrorKind = "Timeout"
	ErrCancelled           ErrorKind = "Cancelled"
	ErrToolInvocation      ErrorKind = "ToolInvocationError"
	ErrNotFound            ErrorKind = "NotFound"
	ErrInvalidState        ErrorKind = "InvalidState"
)

// Job represents a user request for fetching a media resource.
//
// It is the core entity of mediagrab and holds all info and state of
// the download. All mutable fields are owned by the processor and
// mutated only through the job store's per-job read-modify-write.
type Job struct {
	// Auto-generated
	ID string `json:"id"`

	// The URL pointing to the media to be fetched
	URL string `json:"url"`

	// Platform resolved from URL at creation time. A job is never
	// created without exactly one resolved platform.
	Platform platform.Platform `json:"platform"`

	// RequestedFormat is the format token chosen by the caller
	// (eg. "video_720p", "audio_mp3"). Empty means the processor
	// probes first and falls back to "video_best". Immutable once
	// the job enters Downloading.
	RequestedFormat string `json:"format_id"`

	State State `json:"state"`

	// Progress in percent. Monotonically non-decreasing while the
	// job is active, exactly 100 at Ready, frozen at terminal states.
	Progress int `json:"progress"`

	// ArtifactPath is set only when State is Ready. Once set, the
	// artifact manager owns the file's lifetime.
	ArtifactPath string `json:"-"`

	// ErrorKind and ErrorDetail are set only when State is Failed.
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error,omitempty"`

	// Optional completion notification (see notifier). CallbackType
	// selects a backend ("http", "kafka", "sqs") and CallbackDst is
	// backend specific (URL, topic, queue URL).
	CallbackType string `json:"callback_type,omitempty"`
	CallbackDst  string `json:"callback_dst,omitempty"`

	// Optional caller-owned S3 destination. When set, the finished
	// artifact is uploaded there instead of being one-time served.
	S3Bucket string `json:"s3_bucket,omitempty"`
	S3Region string `json:"s3_region,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// MarshalBinary lets a Job be used directly as a log/stats value.
func (s State) MarshalBinary() (data []byte, err error) {
	return []byte(string(s)), nil
}

// Path returns the relative artifact path of j. Sharding by ID prefix
// keeps the artifact directory listable with many concurrent jobs.
func (j *Job) Path(ext string) string {
	return path.Join(j.ID[0:3], j.ID+"."+ext)
}

// AudioOnly reports whether j requests an audio-only format.
func (j *Job) AudioOnly() bool {
	return strings.HasPrefix(j.RequestedFormat, "audio_")
}

// UnmarshalJSON populates and validates a job from an incoming
// download request body.
func (j *Job) UnmarshalJSON(b []byte) error {
	var tmp map[string]interface{}

	err := json.Unmarshal(b, &tmp)
	if err != nil {
		return err
	}

	rawURL, ok := tmp["url"].(string)
	if !ok || rawURL == "" {
		return errors.New("url must be a non-empty string")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return errors.New("Could not parse URL: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL scheme must be http or https")
	}
	j.URL = rawURL

	if f, ok := tmp["format_id"]; ok {
		format, ok := f.(string)
		if !ok {
			return errors.New("format_id must be a string")
		}
		if format != "" && !strings.HasPrefix(format, "video_") && !strings.HasPrefix(format, "audio_") {
			return fmt.Errorf("Unknown format token: %q", format)
		}
		j.RequestedFormat = format
	}

	cbType, _ := tmp["callback_type"].(string)
	cbDst, _ := tmp["callback_dst"].(string)
	if (cbType == "") != (cbDst == "") {
		return errors.New("You need to provide both callback_type and callback_dst")
	}
	if cbType != "" {
		switch cbType {
		case "http":
			_, err = url.ParseRequestURI(cbDst)
			if err != nil {
				return errors.New("Could not parse callback URL: " + err.Error())
			}
		case "kafka", "sqs":
			// destination validity is backend specific
		default:
			return fmt.Errorf("Unknown callback_type: %q", cbType)
		}
		j.CallbackType = cbType
		j.CallbackDst = cbDst
	}

	s3Bucket, _ := tmp["s3_bucket"].(string)
	s3Region, _ := tmp["s3_region"].(string)
	if s3Bucket == "" && s3Region != "" {
		return errors.New("s3_region provided without an s3_bucket")
	} else if s3Region == "" && s3Bucket != "" {
		return errors.New("s3_bucket provided without an s3_region")
	}
	j.S3Bucket = s3Bucket
	j.S3Region = s3Region

	return nil
}

func (j Job) String() string {
	return fmt.Sprintf("Job{ID:%s, Platform:%s, URL:%s, Format:%s, State:%s, Progress:%d}",
		j.ID, j.Platform, j.URL, j.RequestedFormat, j.State, j.Progress)
}
