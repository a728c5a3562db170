package browser

import "math"

// retireScore is the error score at which a pooled browser is replaced.
const retireScore = 3.0

// health scores a pooled browser. A failure to open a context or page adds
// 1.0; a success takes off 0.5, down to zero.
type health struct {
	errScore float64
	uses     int
}

func (h *health) record(ok bool) {
	h.uses++
	if ok {
		h.errScore = math.Max(0, h.errScore-0.5)
		return
	}
	h.errScore++
}

func (h *health) shouldRetire() bool {
	return h.errScore >= retireScore
}
