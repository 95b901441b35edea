package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EnrollmentSeqWidth is the number of digits after the year prefix.
const EnrollmentSeqWidth = 4

// MaxEnrollmentSeq is the largest sequence representable in EnrollmentSeqWidth digits.
const MaxEnrollmentSeq = 9999

// ErrSequenceExhausted is returned when a year has used every sequence number.
var ErrSequenceExhausted = errors.New("enrollment sequence exhausted for year")

// EnrollmentPrefix returns the prefix shared by all enrollment numbers of a year.
func EnrollmentPrefix(year int) string {
	return fmt.Sprintf("%04d", year)
}

// FormatEnrollmentNo builds "<YYYY><NNNN>".
func FormatEnrollmentNo(year, seq int) (string, error) {
	if seq < 1 || seq > MaxEnrollmentSeq {
		return "", fmt.Errorf("%w: %d (sequence %d)", ErrSequenceExhausted, year, seq)
	}
	return fmt.Sprintf("%04d%0*d", year, EnrollmentSeqWidth, seq), nil
}

// EnrollmentSequence parses the numeric suffix of an enrollment number that
// starts with the given year. ok is false for other years or non-numeric suffixes.
func EnrollmentSequence(enrollmentNo string, year int) (seq int, ok bool) {
	prefix := EnrollmentPrefix(year)
	if !strings.HasPrefix(enrollmentNo, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(enrollmentNo[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextEnrollmentNo returns the number following greatest within year.
// An empty or foreign greatest starts the year at sequence 1.
func NextEnrollmentNo(greatest string, year int) (string, error) {
	seq, _ := EnrollmentSequence(greatest, year)
	return FormatEnrollmentNo(year, seq+1)
}
