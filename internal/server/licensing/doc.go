// Package licensing implements the license validation protocol: key
// generation, the status_id token codec, the validator that answers client
// validation calls and activation slot accounting.
//
// The package holds no connections or global state. Stores and clocks are
// passed in by the caller.
package licensing
