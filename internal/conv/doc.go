// Package conv narrows integers read from index files or passed as
// capacities without silent truncation.
package conv
