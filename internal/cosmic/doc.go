// Package cosmic is a small client for the Cosmic bucket objects API.
//
// One Client is built at startup from Config and passed to whatever needs
// it; there is no package-level instance. The client never retries or
// caches. A non-2xx response surfaces as *APIError and IsNotFound reports
// the store's "nothing matched" answer, which callers usually treat as an
// empty result rather than a failure.
package cosmic
