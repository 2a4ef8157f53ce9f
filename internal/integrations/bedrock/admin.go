package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
)

// ErrNoDataSource reports a knowledge base with no configured data source.
var ErrNoDataSource = errors.New("bedrock: no data source found")

// agentAPI is the minimal bedrock-agent interface required by Admin.
// *bedrockagent.Client satisfies it.
type agentAPI interface {
	ListDataSources(ctx context.Context, in *bedrockagent.ListDataSourcesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListDataSourcesOutput, error)
	StartIngestionJob(ctx context.Context, in *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
}

// IngestionJob identifies a started ingestion job and its initial status.
type IngestionJob struct {
	ID     string
	Status string
}

// Admin drives knowledge-base ingestion through the bedrock-agent API.
type Admin struct {
	api             agentAPI
	knowledgeBaseID string
}

// NewAdmin creates an Admin bound to one knowledge base.
func NewAdmin(api agentAPI, knowledgeBaseID string) (*Admin, error) {
	if api == nil {
		return nil, errors.New("bedrock: agent api must not be nil")
	}
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return nil, errors.New("bedrock: knowledge base id must not be empty")
	}
	return &Admin{api: api, knowledgeBaseID: knowledgeBaseID}, nil
}

// StartSync starts an ingestion job on the knowledge base's first data
// source. Returns ErrNoDataSource when the knowledge base has none.
func (a *Admin) StartSync(ctx context.Context) (IngestionJob, error) {
	ds, err := a.api.ListDataSources(ctx, &bedrockagent.ListDataSourcesInput{
		KnowledgeBaseId: aws.String(a.knowledgeBaseID),
		MaxResults:      aws.Int32(1),
	})
	if err != nil {
		return IngestionJob{}, fmt.Errorf("bedrock: list data sources: %w", err)
	}
	if len(ds.DataSourceSummaries) == 0 {
		return IngestionJob{}, ErrNoDataSource
	}

	out, err := a.api.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(a.knowledgeBaseID),
		DataSourceId:    ds.DataSourceSummaries[0].DataSourceId,
	})
	if err != nil {
		return IngestionJob{}, fmt.Errorf("bedrock: start ingestion job: %w", err)
	}

	var job IngestionJob
	if out.IngestionJob != nil {
		if out.IngestionJob.IngestionJobId != nil {
			job.ID = *out.IngestionJob.IngestionJobId
		}
		job.Status = string(out.IngestionJob.Status)
	}
	return job, nil
}
