// Package cryptoutil holds the content digests used for HTTP entity tags
// and exported object metadata.
package cryptoutil
