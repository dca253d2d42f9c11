// Package utils holds small conversion helpers shared by the merge and reconcile code.
package utils
