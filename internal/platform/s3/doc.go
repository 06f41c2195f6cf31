// Package s3 stores paginator cursors in an S3-compatible bucket, so a long
// listing can resume from another machine.
package s3
