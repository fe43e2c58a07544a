// Package staging owns the scratch area downloads land in before placement.
// Every job gets its own directory under the staging root, keyed by the job
// ID, so concurrent runs never collide and a failed job leaves its partial
// output behind for inspection.
package staging
