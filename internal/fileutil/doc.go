// Package fileutil holds the atomic file replacement helpers used when
// installing a freshly built index or a downloaded snapshot.
package fileutil
