// Package ingest imports university result and roster extracts into
// normalized academic records.
//
// This package holds the engine independent of any transport. The CLI in
// cmd/ingest drives it, and tests run it against the in-memory store.
//
// # Runs
//
// Every call to [Service.ImportResults], [Service.ImportStudents] or
// [Service.SyncStudentUsers] is one run:
//
//  1. The upload is decoded into rows (see package tabular). A file that
//     cannot be decoded fails the run with a [StructuralError] before any
//     write.
//  2. Each row is normalized into a [RowResult]: either a candidate record
//     or a [RowFailure]. Department codes are resolved through a
//     [DepartmentResolver] created for this run only.
//  3. Candidates are written in sub-batches (default 50). Writes inside a
//     sub-batch run concurrently and are awaited together; sub-batches run
//     one after another. A failed write never cancels its siblings.
//  4. The [Report] lists processed rows, hard errors and soft warnings with
//     1-based row numbers.
//
// # Failure Model
//
// A run never rolls back. Rows written before a failure stay written:
//
//   - Row errors (missing enrollment number, invalid record) skip the row.
//   - Row warnings (unknown department, repeated key in the same file) skip
//     the row without counting as an error.
//   - Duplicate keys during a bulk insert are counted, not reported per row.
//   - An unreachable store ends the run after the current sub-batch with a
//     [PersistenceError]; the partial report is still returned.
//   - A cancelled context lets in-flight writes finish but starts no further
//     sub-batch.
//
// # Batches
//
// Each result import stamps its records with a fresh batch ID. Batches can be
// listed with [Service.ListBatches] and removed with [Service.DeleteBatch].
//
// # Error Codes
//
// Row and run failures carry a short code (ROW001, DB001, FILE002, ...)
// for support reference. See error_messages.go for the full table.
package ingest
