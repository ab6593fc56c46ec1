package kv

import "fmt"

// ErrUnknownTable reports that a caller named a table the store does not
// recognize — a corrupted-table class error per spec.md §4.1's failure
// semantics ("(a) corrupted table").
func ErrUnknownTable(table string) error {
	return fmt.Errorf("kv: unknown table %q", table)
}
