// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/train/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	sel, err := diverset.New(fingerprint.NewSimHash(), diverset.WithStore(store))
//
// # Features
//
//   - Stat via HeadObject (size + LastModified as the staleness key)
//   - Streaming uploads for large cache snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//
// CommitStore layers DynamoDB conditional writes on top for atomic snapshot
// publication when multiple publishers share one prefix.
package s3
