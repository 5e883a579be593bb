// Package export publishes global statistics snapshots to S3.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/utils"
)

// PutObjectAPI is the part of *s3.Client the exporter uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshot is the JSON document written for one GlobalStats version.
type Snapshot struct {
	ID                     string  `json:"id"`
	Version                int     `json:"version"`
	LitresPerPersonPerWeek float64 `json:"litres_per_person_per_week"`
	PeriodCount            int     `json:"period_count"`
	CalculatedAt           string  `json:"calculated_at"`
}

// SnapshotExporter writes every GlobalStats version as its own object and
// overwrites a "latest.json" pointer next to them.
type SnapshotExporter struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

func NewSnapshotExporter(client PutObjectAPI, bucket, prefix string, logger *slog.Logger) *SnapshotExporter {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &SnapshotExporter{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Key returns the object key of a stats version, e.g.
// "stats/global/2026-10-19/01J9...-v000003.json".
func (e *SnapshotExporter) Key(g *domain.GlobalStats) string {
	return fmt.Sprintf("%sglobal/%s/%s-v%06d.json", e.prefix, utils.FormatDay(g.CalculatedAt), g.ID, g.Version)
}

// Export uploads the snapshot and returns its versioned key.
func (e *SnapshotExporter) Export(ctx context.Context, g *domain.GlobalStats) (string, error) {
	if g == nil || g.Version == 0 {
		return "", fmt.Errorf("refusing to export global stats that were never calculated")
	}

	body, err := json.Marshal(Snapshot{
		ID:                     g.ID,
		Version:                g.Version,
		LitresPerPersonPerWeek: g.LitresPerPersonPerWeek,
		PeriodCount:            g.PeriodCount,
		CalculatedAt:           g.CalculatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := e.Key(g)
	for _, k := range []string{key, e.prefix + "global/latest.json"} {
		_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(e.bucket),
			Key:         aws.String(k),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload snapshot to s3://%s/%s: %w", e.bucket, k, err)
		}
	}

	e.logger.Info("exported global stats snapshot",
		"bucket", e.bucket,
		"key", key,
		"version", g.Version,
	)
	return key, nil
}
