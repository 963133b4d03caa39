// Package filestorage provides a small multi-tenant file storage backend.
//
// Users register with a username and password, authenticate to obtain a
// long-lived bearer token, and then upload, list and download files that are
// namespaced by their username. File bytes live in an object storage backend
// while users, tokens and file records live in a relational database.
//
// # Key Components
//
//   - AuthService: registration, authentication and bearer token checks
//   - FileService: storage path derivation and upload/list/download orchestration
//   - HealthService: round-trip latency probes for the database and object storage
//   - UserRepo, TokenRepo, FileRepo: metadata persistence (PostgreSQL, SQLite)
//   - ObjectStorage: blob persistence (S3-compatible, local filesystem)
//
// # Storage Paths
//
// Every stored object key is prefixed with the owner's username, so two users
// uploading the same relative path never collide even though file paths are
// unique across the whole index:
//
//	DerivePath("alice", "", "report.txt")       // alice/report.txt
//	DerivePath("alice", "notes/", "report.txt") // alice/notes/report.txt
//	DerivePath("alice", "docs/a.txt", "x.txt")  // alice/docs/a.txt
//
// # Example Usage
//
//	auth := filestorage.NewAuthService(db.Users(), db.Tokens(), filestorage.AuthConfig{})
//	files := filestorage.NewFileService(db.Files(), storage, filestorage.ServiceConfig{})
//
//	if err := auth.Register(ctx, "alice", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//	token, err := auth.Authenticate(ctx, "alice", "secret")
//
//	record, err := files.Upload(ctx, token.Username, "", "report.txt", reader)
//
// See the http package for the REST API and the database package for the
// metadata backends.
package filestorage
