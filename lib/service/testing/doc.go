// Package testing provides a conformance suite for service.IService
// implementations. Every implementation (local, replicated and the rpc
// client) runs the same suite, so they are interchangeable for callers.
package testing
