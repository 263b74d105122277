//go:build objrtdebug

package object

const checkPointers = true
