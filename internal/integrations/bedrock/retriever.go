package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"genapp-chat/internal/domain"
)

const defaultResultCount = 3

// retrieveAPI is the minimal bedrock-agent-runtime interface required by
// Retriever. *bedrockagentruntime.Client satisfies it.
type retrieveAPI interface {
	Retrieve(ctx context.Context, in *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// Retriever queries a Bedrock knowledge base for passages relevant to a
// free-text query.
type Retriever struct {
	api             retrieveAPI
	knowledgeBaseID string
	resultCount     int32
}

// NewRetriever creates a Retriever bound to one knowledge base.
func NewRetriever(api retrieveAPI, knowledgeBaseID string) (*Retriever, error) {
	if api == nil {
		return nil, errors.New("bedrock: retrieve api must not be nil")
	}
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return nil, errors.New("bedrock: knowledge base id must not be empty")
	}
	return &Retriever{api: api, knowledgeBaseID: knowledgeBaseID, resultCount: defaultResultCount}, nil
}

// Retrieve returns up to three scored passages for the query. Results with
// missing content or location fields map to zero values rather than errors;
// relevance filtering is the caller's concern.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.RetrievalResult, error) {
	out, err := r.api.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(r.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(r.resultCount),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: retrieve: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(out.RetrievalResults))
	for _, rr := range out.RetrievalResults {
		var res domain.RetrievalResult
		if rr.Content != nil && rr.Content.Text != nil {
			res.Text = *rr.Content.Text
		}
		if rr.Score != nil {
			res.Score = *rr.Score
		}
		if rr.Location != nil && rr.Location.S3Location != nil && rr.Location.S3Location.Uri != nil {
			res.SourceURI = *rr.Location.S3Location.Uri
		}
		results = append(results, res)
	}
	return results, nil
}
