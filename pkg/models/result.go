package models

// Label is one classification label with its probability, as produced by the
// inference stage. Index is the class index in the model's label space.
type Label struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// FrameInference is the inference outcome for a single extracted frame.
// Exactly one of Labels or Error is populated: a frame that could not be
// scored carries the error message in its place and does not fail the job.
type FrameInference struct {
	Frame  string  `json:"frame"`
	Labels []Label `json:"labels,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// ObjectRef locates one uploaded artifact in the object store.
type ObjectRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// FrameUpload is one uploaded frame image from the capped frame subset.
type FrameUpload struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	URL      string `json:"url"`
}

// ObjectOutputs collects the object-store locations of all job artifacts.
type ObjectOutputs struct {
	Transcoded *ObjectRef    `json:"transcoded,omitempty"`
	Thumbnail  *ObjectRef    `json:"thumbnail,omitempty"`
	Frames     []FrameUpload `json:"frames,omitempty"`
}

// JobResult is the terminal result blob written to both persistence stores
// when a job completes.
type JobResult struct {
	Transcoded *string          `json:"transcoded"`
	Thumbnail  *string          `json:"thumbnail"`
	FramesDir  string           `json:"frames_dir"`
	FrameCount int              `json:"frame_count"`
	Inference  []FrameInference `json:"inference"`
	Outputs    ObjectOutputs    `json:"s3_outputs"`
}
