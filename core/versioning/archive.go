package versioning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"character-sync/core/storage"
	"character-sync/core/syncerr"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// Archiver receives versions evicted from the retention window.
type Archiver interface {
	Archive(ctx context.Context, versions []StateVersion) error
}

// ObjectArchiver writes evicted versions to object storage as
// <prefix>/<entity id>/<version>.json.
type ObjectArchiver struct {
	client storage.Client
	bucket string
	prefix string
}

// NewObjectArchiver creates an archiver for bucket. prefix may be empty.
func NewObjectArchiver(client storage.Client, bucket, prefix string) *ObjectArchiver {
	return &ObjectArchiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Archive uploads every version. All uploads are attempted; the errors of
// the failed ones are joined.
func (a *ObjectArchiver) Archive(ctx context.Context, versions []StateVersion) error {
	var errs []error
	for _, v := range versions {
		body, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to encode version %d of %s: %w", v.Version, v.EntityID, err))
			continue
		}
		_, err = a.client.PutObject(ctx, a.bucket, a.objectName(v.EntityID, v.Version),
			bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to archive version %d of %s: %w", v.Version, v.EntityID, err))
		}
	}
	return errors.Join(errs...)
}

// Versions lists the archived version numbers of an entity in ascending order.
func (a *ObjectArchiver) Versions(ctx context.Context, id uuid.UUID) ([]int, error) {
	prefix := a.entityPrefix(id)
	var versions []int
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list archive of %s: %w", id, obj.Err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), ".json")
		n, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		versions = append(versions, n)
	}
	sort.Ints(versions)
	return versions, nil
}

// Fetch reads one archived version.
func (a *ObjectArchiver) Fetch(ctx context.Context, id uuid.UUID, version int) (StateVersion, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, a.objectName(id, version), minio.GetObjectOptions{})
	if err != nil {
		return StateVersion{}, fmt.Errorf("failed to open archived version %d of %s: %w", version, id, err)
	}
	defer obj.Close()

	var v StateVersion
	if err := json.NewDecoder(obj).Decode(&v); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return StateVersion{}, syncerr.StateConflict(id.String(), "version %d is not archived", version)
		}
		return StateVersion{}, fmt.Errorf("failed to decode archived version %d of %s: %w", version, id, err)
	}
	return v, nil
}

func (a *ObjectArchiver) entityPrefix(id uuid.UUID) string {
	return path.Join(a.prefix, id.String()) + "/"
}

func (a *ObjectArchiver) objectName(id uuid.UUID, version int) string {
	return a.entityPrefix(id) + strconv.Itoa(version) + ".json"
}
