// Package storage persists crawl results.
//
// The primary artifact is a JSON object mapping each resolved node key to
// its dependency keys, written with 4-space indentation:
//
//	{
//	    "core@3f2a9c1e...": [
//	        "sdk@9b1d77e0...",
//	        "lodash@^4.17.21"
//	    ],
//	    "sdk@9b1d77e0...": []
//	}
//
// # Sinks
//
// [FileSink] writes the artifact atomically, creating parent directories.
// A partial snapshot, saved after a fatal crawl failure, goes to
// [PartialPath] instead and never replaces a complete artifact.
//
// [MongoSink] stores each run as a document with its run ID, organization,
// timestamp and crawl statistics. [MultiSink] combines both.
//
// Both sinks also implement [Source], which the HTTP server uses to load
// the latest snapshot.
package storage
