// Package placer moves staged media into its final library location. The
// destination directory is a pure function of the job's category and the
// media's channel, so repeated runs of the same job land in the same place.
// When the primary library root is unreachable (network mount down) the
// placer retries into the local fallback root; every other failure class
// fails the job.
package placer
