// Package inkwell is the Inkwell community API: novels with episodes, gallery
// posts with comments, and the like/dislike ledger shared by all of them.
//
// Binaries live under cmd:
//
//   - cmd/server: the HTTP API
//   - cmd/votectl: counter inspection, drift repair and development tokens
//   - cmd/seed: fake development data
//
// Packages of note:
//
//   - internal/vote: the vote ledger, generic over votable kinds
//   - internal/cache: Redis backed voter sets
//   - internal/repository: GORM repositories, including the vote counters
//   - internal/teardown: entity deletion across database, Redis and S3
//   - internal/handlers, internal/server: the gin API
package inkwell
