package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"campusdesk/api/internal/config"
	"campusdesk/api/internal/models"
)

// ArchiveSource reads closed audit batches out of the primary sink.
type ArchiveSource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]models.AuditEntry, error)
}

// Archiver ships each closed day of audit entries to object storage as a
// JSON-lines object. The table stays the system of record; the archive is
// for long-horizon retention handled outside the application.
type Archiver struct {
	client *minio.Client
	bucket string
	region string
	source ArchiveSource
	log    zerolog.Logger
}

func NewArchiver(cfg config.StorageConfig, source ArchiveSource, log zerolog.Logger) (*Archiver, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		source: source,
		log:    log,
	}, nil
}

func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// ArchiveDay uploads every entry created on the given UTC day. Re-running
// a day overwrites the same object, so the job is safe to retry.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) error {
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	entries, err := a.source.ListRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list audit range: %w", err)
	}
	if len(entries) == 0 {
		a.log.Debug().Time("day", from).Msg("no audit entries to archive")
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
	}

	objectName := fmt.Sprintf("audit/%s.jsonl", from.Format("2006/01/02"))
	_, err = a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "application/x-ndjson"})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}

	a.log.Info().
		Time("day", from).
		Int("entries", len(entries)).
		Str("object", objectName).
		Msg("audit batch archived")
	return nil
}
