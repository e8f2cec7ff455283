package job

import (
	"encoding/json"
	"fmt"
)

// Event holds the info posted to the caller-provided callback
// destination when a job reaches a terminal state.
type Event struct {
	// JobID is the unique id of the Job
	JobID string `json:"job_id"`

	// ResourceURL is the originally requested media URL
	ResourceURL string `json:"resource_url"`

	State State `json:"state"`

	// Success refers to whether the media was fetched successfully
	Success bool `json:"success"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`

	// ArtifactURL points at the uploaded artifact when the job used
	// the S3 offload path, empty otherwise.
	ArtifactURL string `json:"artifact_url,omitempty"`

	// Delivered signifies whether the event has been delivered
	Delivered bool `json:"delivered"`

	// DeliveryError contains the error occurred while delivering
	DeliveryError string `json:"delivery_error,omitempty"`
}

// Bytes returns the event encoded as JSON.
func (e *Event) Bytes() ([]byte, error) {
	return json.Marshal(e)
}

// Event builds the completion event for j. It is an error to ask for
// an event of a job whose download outcome is not yet known.
func (j *Job) Event(artifactURL string) (Event, error) {
	if j.State.Active() {
		return Event{}, fmt.Errorf("Invalid job state for event: '%s'", j.State)
	}

	return Event{
		JobID:       j.ID,
		ResourceURL: j.URL,
		State:       j.State,
		Success:     j.State != StateFailed,
		ErrorKind:   j.ErrorKind,
		Error:       j.ErrorDetail,
		ArtifactURL: artifactURL,
		Delivered:   true,
	}, nil
}
