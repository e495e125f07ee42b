package engine

import "github.com/forgedb/forgedb/internal/storage"

// failResult builds a failed QueryResult from a kinded storage error,
// per spec §6.3 ("Failures return ok = false with a human-readable
// message and no rows").
func failResult(kind storage.ErrKind, format string, args ...any) *QueryResult {
	return &QueryResult{Message: storage.NewError(kind, format, args...).Error(), Ok: false}
}

// QueryResult is the uniform outcome of executing one statement, per
// spec §6.3: either a row set (Headers/Rows populated) or a status
// message (Message populated), never both.
type QueryResult struct {
	Headers []string
	Rows    [][]storage.Value
	Message string
	Ok      bool
}

func statusResult(msg string) *QueryResult {
	return &QueryResult{Message: msg, Ok: true}
}

func rowsResult(headers []string, rows [][]storage.Value) *QueryResult {
	return &QueryResult{Headers: headers, Rows: rows, Ok: true}
}
