package audit

import (
	"hash/crc32"
	"strconv"
)

// checksum covers Type, JobType, and Seq — not Timestamp, which is
// expected to differ if an event is ever re-emitted during testing.
func checksum(eventType EventType, jobType string, seq uint64) uint32 {
	data := string(eventType) + "|" + jobType + "|" + strconv.FormatUint(seq, 10)
	return crc32.ChecksumIEEE([]byte(data))
}

func verifyChecksum(e Event) bool {
	return e.Checksum == checksum(e.Type, e.JobType, e.Seq)
}
