package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Parity distinguishes odd- and even-semester generation runs.
type Parity string

const (
	ParityOdd  Parity = "ODD"
	ParityEven Parity = "EVEN"
)

// Valid reports whether the parity value is one of the two known constants.
func (p Parity) Valid() bool {
	return p == ParityOdd || p == ParityEven
}

// ParityForSemester derives the parity from a semester number.
func ParityForSemester(semester int) Parity {
	if semester%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}
