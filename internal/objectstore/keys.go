package objectstore

import "fmt"

// Key layout, all artifacts scoped under the owning job so re-runs overwrite
// rather than accumulate.

func UploadKey(uniqueID, filename string) string {
	return fmt.Sprintf("uploads/%s_%s", uniqueID, filename)
}

func TranscodedKey(jobID, filename string) string {
	return fmt.Sprintf("transcoded/%s/%s", jobID, filename)
}

func ThumbnailKey(jobID, filename string) string {
	return fmt.Sprintf("thumbnails/%s/%s", jobID, filename)
}

func TempKey(jobID, suffix string) string {
	return fmt.Sprintf("temp/%s/%s", jobID, suffix)
}

func FrameKey(jobID, filename string) string {
	return TempKey(jobID, "frames/"+filename)
}

func ResultKey(jobID string) string {
	return TempKey(jobID, "result.json")
}
