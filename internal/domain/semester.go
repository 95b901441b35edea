package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SemesterStatus is the completion state of a single semester.
type SemesterStatus string

const (
	SemesterCleared      SemesterStatus = "CLEARED"
	SemesterPending      SemesterStatus = "PENDING"
	SemesterNotAttempted SemesterStatus = "NOT_ATTEMPTED"
)

// MaxSemesterSlots is the number of semester slots stored per student.
// Programs shorter than this leave the trailing slots NOT_ATTEMPTED.
const MaxSemesterSlots = 8

// SemesterStatuses holds one status per semester; index 0 is semester 1.
type SemesterStatuses [MaxSemesterSlots]SemesterStatus

// NewSemesterStatuses returns a map with every semester NOT_ATTEMPTED.
func NewSemesterStatuses() SemesterStatuses {
	var s SemesterStatuses
	for i := range s {
		s[i] = SemesterNotAttempted
	}
	return s
}

// Get returns the status of a 1-based semester. Unknown semesters and unset
// slots read as NOT_ATTEMPTED.
func (s SemesterStatuses) Get(sem int) SemesterStatus {
	if sem < 1 || sem > MaxSemesterSlots || s[sem-1] == "" {
		return SemesterNotAttempted
	}
	return s[sem-1]
}

// Set stores the status of a 1-based semester. Out of range semesters are ignored.
func (s *SemesterStatuses) Set(sem int, status SemesterStatus) {
	if sem < 1 || sem > MaxSemesterSlots {
		return
	}
	s[sem-1] = status
}

// MarshalJSON encodes the statuses as {"sem1": "...", ..., "sem8": "..."}.
func (s SemesterStatuses) MarshalJSON() ([]byte, error) {
	m := make(map[string]SemesterStatus, MaxSemesterSlots)
	for i := 1; i <= MaxSemesterSlots; i++ {
		m["sem"+strconv.Itoa(i)] = s.Get(i)
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the object form produced by MarshalJSON.
func (s *SemesterStatuses) UnmarshalJSON(data []byte) error {
	var m map[string]SemesterStatus
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = NewSemesterStatuses()
	for key, status := range m {
		n, err := strconv.Atoi(strings.TrimPrefix(key, "sem"))
		if err != nil || !strings.HasPrefix(key, "sem") {
			return fmt.Errorf("semester status: unexpected key %q", key)
		}
		s.Set(n, status)
	}
	return nil
}
