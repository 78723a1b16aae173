package postgres

import (
	"encoding/binary"
	"hash/fnv"
)

// Advisory lock classes. Seasons serialize competing bookings; domes
// serialize grid changes against bookings inside the dome.
const (
	seasonLockClass int64 = 7741
	domeLockClass   int64 = 7742
)

// advisoryKey folds a lock class and a row id into the single bigint keyspace
// of pg_advisory_xact_lock. The two-argument form takes int4 pairs and cannot
// carry a bigint id. A hash collision only over-serializes; the unique ticket
// index keeps correctness independent of the locks.
func advisoryKey(class, id int64) int64 {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], uint64(class))
	binary.BigEndian.PutUint64(b[8:], uint64(id))

	h := fnv.New64a()
	h.Write(b[:])
	return int64(h.Sum64())
}
