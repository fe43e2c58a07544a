// Package queue implements the directory-backed job queue.
//
// A job descriptor is a small JSON file; its state is encoded entirely by the
// directory it sits in: incoming (pending), processing (claimed), done, or
// error. Every transition is a single os.Rename, which is the queue's only
// concurrency mechanism: when overlapping runs race on the same descriptor,
// exactly one rename succeeds and the losers observe a missing source and move
// on. Descriptors are never rewritten after creation; failures attach a
// separate diagnostic file alongside the descriptor in error/.
//
// Claimed descriptors that never reached a terminal directory (crash mid-job)
// stay in processing/ for operator inspection; Reap is the explicit manual
// remedy and nothing in this package resumes them automatically.
package queue
