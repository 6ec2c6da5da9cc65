// Package dupes groups every indexed track by one identity tier and reports
// the clusters that survive the filter pipeline. Output order depends only on
// the index contents, so repeated runs over an unchanged index are identical.
package dupes
