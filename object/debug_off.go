//go:build !objrtdebug

package object

const checkPointers = false
