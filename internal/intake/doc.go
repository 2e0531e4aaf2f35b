// Package intake validates raw file submissions and converts them into
// tracked queue jobs.
//
// A submission is accepted or rejected as a whole: one file violating the
// accepted kinds, size ceiling, or cardinality limits rejects the entire
// batch with a ValidationError naming the offending file and constraint, and
// no job is created. Accepted files are staged into the staging directory,
// given a source preview handle immediately, and appended to the queue in
// submission order as pending jobs.
package intake
