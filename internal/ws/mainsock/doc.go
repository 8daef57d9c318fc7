// Package mainsock holds WS's single connection to H's main socket: every
// incoming HTTP request that needs a proof generated drives the same
// *wire.Conn, serialized by holding its write lock for the full
// send-then-receive RPC.
//
// This is the primary throughput bottleneck in the WS process: two
// concurrent POST /v1/proof requests cannot have their generate_proof calls
// in flight on the wire at the same time, even though H itself could in
// principle interleave them. Splitting this into a connection pool would
// remove the bottleneck but was left out of scope — H's own zkVM execution
// is typically the slower step per request anyway, so the lock rarely
// becomes the binding constraint in practice.
package mainsock
