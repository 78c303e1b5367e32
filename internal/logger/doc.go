// Package logger provides a types.Logger that writes through testing.T.
package logger
