package checks

import (
	"context"
	"fmt"
	"strings"

	"character-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// ArchiveReport describes the version archive bucket.
type ArchiveReport struct {
	Bucket        string `json:"bucket"`
	Exists        bool   `json:"exists"`
	ArchivedCount int    `json:"archived_count"`
}

// CheckArchive reports whether the archive bucket exists and how many
// versions are stored under prefix.
func CheckArchive(ctx context.Context, client storage.Client, bucket, prefix string) (*ArchiveReport, error) {
	report := &ArchiveReport{Bucket: bucket}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return report, nil
	}
	report.Exists = true

	opts := minio.ListObjectsOptions{
		Prefix:    strings.TrimSuffix(prefix, "/") + "/",
		Recursive: true,
	}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list archived versions: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			report.ArchivedCount++
		}
	}
	return report, nil
}

// FixArchive creates the archive bucket when it is missing.
func FixArchive(ctx context.Context, client storage.Client, bucket, region string) error {
	return storage.EnsureBucket(ctx, client, bucket, region)
}
