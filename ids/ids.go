// Package ids mints and parses the identifiers that thread a submission
// through the queue, the key-value store, and the completion connector.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// taskIDPattern extracts the WorkId embedded in a TaskId of the form
// "wf:<WorkId>:task:<unix-millis>-<8-hex>".
var taskIDPattern = regexp.MustCompile(`^wf:([^:]+):task:`)

// NewWorkID returns provided unchanged if non-empty, otherwise mints a new
// WorkId of the form "<unix-millis>-<6-hex>".
func NewWorkID(provided string) string {
	if provided != "" {
		return provided
	}
	return fmt.Sprintf("%d-%s", nowMillis(), randHex(3))
}

// NewTaskID mints a TaskId scoped to workID: "wf:<workID>:task:<unix-millis>-<8-hex>".
// Every TaskId minted for the same batch shares workID, per the invariant that
// all tasks minted during a batch belong to the same Work.
func NewTaskID(workID string) string {
	return fmt.Sprintf("wf:%s:task:%d-%s", workID, nowMillis(), randHex(4))
}

// ExtractWorkID returns the WorkId embedded in taskID, or "" if taskID does
// not match the expected TaskId shape.
func ExtractWorkID(taskID string) string {
	m := taskIDPattern.FindStringSubmatch(taskID)
	if m == nil {
		return ""
	}
	return m[1]
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// randHex returns n random bytes hex-encoded (2n hex characters). Collision
// probability is negligible for the batch sizes this library targets
// (well under 10^6 tasks per work).
func randHex(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read never returns a short read without an error on the
	// platforms Go supports; a failure here means the OS entropy source is
	// broken, which nothing downstream could recover from either.
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("ids: entropy source failed: %v", err))
	}
	return hex.EncodeToString(buf)
}
