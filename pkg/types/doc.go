// Package types defines the shared vocabulary of larder: backend
// configuration, storage contexts, canonical column descriptors, permission
// flags, and the standard error values every other package returns.
package types
