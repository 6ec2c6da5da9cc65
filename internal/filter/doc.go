// Package filter applies structural and content predicates to a group of
// candidate records.
//
// Structural predicates (path prefixes and extensions) drop individual
// members. The filename and sample-text gates then judge the group as a
// whole: a group without any interesting member is discarded entirely.
package filter
