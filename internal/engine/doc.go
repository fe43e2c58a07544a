// Package engine drives the job pipeline: scan the incoming directory, claim
// descriptors one at a time, and run each through stage, preview, place, and
// notify. Claiming is a single atomic rename; the loser of a claim race skips
// the job and moves on. Preview and notification failures are observational,
// everything else routes the descriptor to the error directory with a
// diagnostic alongside it.
package engine
