package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nholding/trashinator/internal/tracking/domain"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*s3.PutObjectOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func calculated() *domain.GlobalStats {
	return &domain.GlobalStats{
		ID:                     "01J9ZZZ",
		Version:                3,
		LitresPerPersonPerWeek: 10.5,
		PeriodCount:            4,
		CalculatedAt:           time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC),
	}
}

func TestSnapshotExporter_Export(t *testing.T) {
	client := new(mockS3)
	var bodies []Snapshot

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "trash-stats"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		raw, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		var snap Snapshot
		require.NoError(t, json.Unmarshal(raw, &snap))
		bodies = append(bodies, snap)
	}).Return(&s3.PutObjectOutput{}, nil).Twice()

	e := NewSnapshotExporter(client, "trash-stats", "stats", nil)
	key, err := e.Export(context.Background(), calculated())
	require.NoError(t, err)

	assert.Equal(t, "stats/global/2026-10-19/01J9ZZZ-v000003.json", key)
	require.Len(t, bodies, 2)
	assert.Equal(t, 10.5, bodies[0].LitresPerPersonPerWeek)
	assert.Equal(t, "2026-10-19T06:00:00Z", bodies[0].CalculatedAt)
	assert.Equal(t, bodies[0], bodies[1])
	client.AssertExpectations(t)
}

func TestSnapshotExporter_UploadFailure(t *testing.T) {
	client := new(mockS3)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	e := NewSnapshotExporter(client, "trash-stats", "stats/", nil)
	_, err := e.Export(context.Background(), calculated())

	assert.ErrorContains(t, err, "access denied")
	client.AssertExpectations(t)
}

func TestSnapshotExporter_RejectsUncalculated(t *testing.T) {
	client := new(mockS3)
	e := NewSnapshotExporter(client, "trash-stats", "", nil)

	_, err := e.Export(context.Background(), domain.NewGlobalStats())
	assert.Error(t, err)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}
