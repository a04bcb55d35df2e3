package services

// Pagination bounds the page size requested by clients.
type Pagination struct {
	Default int
	Max     int
}

func (p Pagination) Limit(requested int) int {
	switch {
	case requested <= 0:
		return p.Default
	case requested > p.Max:
		return p.Max
	default:
		return requested
	}
}
