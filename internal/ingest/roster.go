package ingest

import "fmt"

// Columns of the student roster extract.
const (
	ColMapNumber  = "map_number"
	ColName       = "Name"
	ColBranchCode = "BR_CODE"
	ColGender     = "Gender"
	ColCategory   = "Category"
	ColMobile     = "Mobile"
	ColEmail      = "Email"
	ColDOB        = "DOB"
	ColIsComplete = "isComplete"
	ColTermClose  = "termClose"
	ColIsCancel   = "isCancel"
	ColIsPassAll  = "isPassAll"
)

// semesterColumn returns the roster column holding semester n's status code.
func semesterColumn(n int) string {
	return fmt.Sprintf("SEM%d", n)
}

// rosterRequired must be present in a roster header.
var rosterRequired = []string{ColMapNumber, ColName, ColBranchCode}

// RosterColumns returns every roster column in template order.
func RosterColumns() []string {
	cols := []string{ColMapNumber, ColName, ColBranchCode}
	for n := 1; n <= 8; n++ {
		cols = append(cols, semesterColumn(n))
	}
	return append(cols,
		ColGender, ColCategory, ColMobile, ColEmail, ColDOB,
		ColIsComplete, ColTermClose, ColIsCancel, ColIsPassAll,
	)
}
