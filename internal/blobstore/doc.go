// Package blobstore archives encoded values in SQLite.
//
// Blobs are content addressed: the digest is a domain-separated BLAKE3 hash
// of the type expression and the wire encoding, so storing the same
// encoding twice is a no-op. Payloads are compressed with zstd or LZ4 when
// that makes them smaller. The tag of the algorithm actually used is
// recorded per row, so blobs written under different settings stay
// readable.
//
// The database uses WAL mode and tracks its layout in PRAGMA user_version,
// migrating older files forward on Open.
package blobstore
