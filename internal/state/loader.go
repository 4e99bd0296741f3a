package state

// loadSeq hands out a monotonically increasing sequence number per loader.
// A completion is applied only when its number is still the latest issued,
// so a slow response can never overwrite the result of a newer request.
type loadSeq struct {
	latest uint64
}

func (s *loadSeq) issue() uint64 {
	s.latest++
	return s.latest
}

func (s *loadSeq) current(seq uint64) bool {
	return seq == s.latest
}
