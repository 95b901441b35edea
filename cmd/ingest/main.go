// Command ingest loads student rosters and exam results from CSV or XLSX
// extracts into the academic records store.
package main

func main() {
	Execute()
}
