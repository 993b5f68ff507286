// Package errors provides the classified error primitives used across assetbuilder.
//
// Every failure that reaches the CLI carries a category (config, task, not_found, ...),
// a severity and optional context. The CLI adapter maps categories to process exit codes.
//
// Example usage:
//
//	err := errors.TaskError("sass compilation failed").
//		WithCause(cmdErr).
//		WithContext("task", "sass").
//		WithContext("target", "dist").
//		Build()
package errors
