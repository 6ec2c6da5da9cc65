// Package testsupport holds fixtures shared by package tests: temp configs,
// module file writers and helpers that build and open throwaway indexes.
package testsupport
