// Package domain defines the normalized academic records produced by the
// ingestion engine and the external entities it references.
//
// # Records
//
//   - [Student]: one per enrollment number, keyed by EnrollmentNo.
//   - [ExamResult]: one per (EnrollmentNo, ExamID), carrying an ordered list
//     of [Subject] entries and the upload batch that last wrote it.
//
// # References
//
// [Department] and [User] are owned by other parts of the platform. The
// engine looks them up but never creates or mutates them.
//
// # Validation
//
// Struct tags are checked with go-playground/validator through
// [ValidateStudent] and [ValidateResult] before a record is handed to a store.
package domain
