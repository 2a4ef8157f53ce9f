package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/stretchr/testify/require"
)

type fakeAgentAPI struct {
	listOut     *bedrockagent.ListDataSourcesOutput
	listErr     error
	startOut    *bedrockagent.StartIngestionJobOutput
	startErr    error
	lastListIn  *bedrockagent.ListDataSourcesInput
	lastStartIn *bedrockagent.StartIngestionJobInput
}

func (f *fakeAgentAPI) ListDataSources(_ context.Context, in *bedrockagent.ListDataSourcesInput, _ ...func(*bedrockagent.Options)) (*bedrockagent.ListDataSourcesOutput, error) {
	f.lastListIn = in
	return f.listOut, f.listErr
}

func (f *fakeAgentAPI) StartIngestionJob(_ context.Context, in *bedrockagent.StartIngestionJobInput, _ ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error) {
	f.lastStartIn = in
	return f.startOut, f.startErr
}

func TestStartSync_HappyPath(t *testing.T) {
	api := &fakeAgentAPI{
		listOut: &bedrockagent.ListDataSourcesOutput{
			DataSourceSummaries: []types.DataSourceSummary{{DataSourceId: aws.String("ds-1")}},
		},
		startOut: &bedrockagent.StartIngestionJobOutput{
			IngestionJob: &types.IngestionJob{
				IngestionJobId: aws.String("job-42"),
				Status:         types.IngestionJobStatusStarting,
			},
		},
	}
	a, err := NewAdmin(api, "kb-123")
	require.NoError(t, err)

	job, err := a.StartSync(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-42", job.ID)
	require.Equal(t, "STARTING", job.Status)

	require.Equal(t, "kb-123", *api.lastListIn.KnowledgeBaseId)
	require.Equal(t, int32(1), *api.lastListIn.MaxResults)
	require.Equal(t, "ds-1", *api.lastStartIn.DataSourceId)
}

func TestStartSync_NoDataSource(t *testing.T) {
	api := &fakeAgentAPI{listOut: &bedrockagent.ListDataSourcesOutput{}}
	a, err := NewAdmin(api, "kb-123")
	require.NoError(t, err)

	_, err = a.StartSync(context.Background())
	require.ErrorIs(t, err, ErrNoDataSource)
	require.Nil(t, api.lastStartIn)
}

func TestStartSync_Errors(t *testing.T) {
	a, err := NewAdmin(&fakeAgentAPI{listErr: errors.New("denied")}, "kb-123")
	require.NoError(t, err)
	_, err = a.StartSync(context.Background())
	require.ErrorContains(t, err, "list data sources")

	a, err = NewAdmin(&fakeAgentAPI{
		listOut: &bedrockagent.ListDataSourcesOutput{
			DataSourceSummaries: []types.DataSourceSummary{{DataSourceId: aws.String("ds-1")}},
		},
		startErr: errors.New("conflict"),
	}, "kb-123")
	require.NoError(t, err)
	_, err = a.StartSync(context.Background())
	require.ErrorContains(t, err, "start ingestion job")
}
