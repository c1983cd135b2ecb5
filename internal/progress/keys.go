package progress

import "fmt"

func recordKey(partition, jobID string) string {
	return fmt.Sprintf("progress:%s:%s", partition, jobID)
}

func indexKey(partition string) string {
	return fmt.Sprintf("progress:%s:index", partition)
}
