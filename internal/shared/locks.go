package shared

import "hash/fnv"

// SubjectLoadLockKey derives the advisory lock key serialising subject-load
// registrations for one (unit, career, period) triple.
func SubjectLoadLockKey(unitID, careerID, periodID int64) int64 {
	h := fnv.New64a()
	var buf [24]byte
	for i, v := range []int64{unitID, careerID, periodID} {
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(v >> (8 * j))
		}
	}
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}
