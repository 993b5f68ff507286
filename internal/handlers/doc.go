// Package handlers implements the built-in task capabilities: sass, postcss,
// coffee and uglify. Compilers are external binaries invoked through a
// CommandRunner; minification runs in-process.
package handlers
