// Package match resolves one extracted track against a committed index.
//
// Match unions the whole-file tier and the pattern tier and tags every
// candidate with the tiers that produced it. SampleReuse looks up each
// sample payload digest independently of the track tiers and reports which
// other tracks carry an identical payload.
package match
