package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/require"
)

type fakeRetrieveAPI struct {
	out    *bedrockagentruntime.RetrieveOutput
	err    error
	lastIn *bedrockagentruntime.RetrieveInput
}

func (f *fakeRetrieveAPI) Retrieve(_ context.Context, in *bedrockagentruntime.RetrieveInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error) {
	f.lastIn = in
	return f.out, f.err
}

func retrievalResult(text string, score float64, uri string) types.KnowledgeBaseRetrievalResult {
	return types.KnowledgeBaseRetrievalResult{
		Content: &types.RetrievalResultContent{Text: aws.String(text)},
		Score:   aws.Float64(score),
		Location: &types.RetrievalResultLocation{
			S3Location: &types.RetrievalResultS3Location{Uri: aws.String(uri)},
		},
	}
}

func TestNewRetriever_Validation(t *testing.T) {
	_, err := NewRetriever(nil, "kb")
	require.Error(t, err)
	_, err = NewRetriever(&fakeRetrieveAPI{}, " ")
	require.Error(t, err)
}

func TestRetrieve_MapsResultsAndRequestsThree(t *testing.T) {
	api := &fakeRetrieveAPI{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []types.KnowledgeBaseRetrievalResult{
			retrievalResult("Refunds within 30 days", 0.8, "s3://kb-docs/policies/policy.pdf"),
			retrievalResult("Shipping takes 5 days", 0.2, "s3://kb-docs/shipping.pdf"),
		},
	}}
	r, err := NewRetriever(api, "kb-123")
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "What is the refund policy?")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Refunds within 30 days", results[0].Text)
	require.Equal(t, 0.8, results[0].Score)
	require.Equal(t, "s3://kb-docs/policies/policy.pdf", results[0].SourceURI)

	in := api.lastIn
	require.Equal(t, "kb-123", *in.KnowledgeBaseId)
	require.Equal(t, "What is the refund policy?", *in.RetrievalQuery.Text)
	require.Equal(t, int32(3), *in.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults)
}

func TestRetrieve_ToleratesSparseResults(t *testing.T) {
	api := &fakeRetrieveAPI{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []types.KnowledgeBaseRetrievalResult{{}},
	}}
	r, err := NewRetriever(api, "kb-123")
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Text)
	require.Zero(t, results[0].Score)
	require.Empty(t, results[0].SourceURI)
}

func TestRetrieve_Error(t *testing.T) {
	api := &fakeRetrieveAPI{err: errors.New("access denied")}
	r, err := NewRetriever(api, "kb-123")
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), "q")
	require.ErrorContains(t, err, "bedrock: retrieve")
}
