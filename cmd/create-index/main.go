// Command create-index provisions the vector index backing the knowledge
// base on an OpenSearch Serverless collection. The call is idempotent: an
// index that already exists is left untouched.
//
// Usage: create-index <collection-endpoint> <index-name> <region>
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// indexBody is the fixed schema expected by the knowledge base: a
// 1536-dimension vector field using an HNSW graph, plus the chunk text and
// metadata fields the ingestion pipeline writes.
const indexBody = `{
  "settings": {
    "index.knn": true
  },
  "mappings": {
    "properties": {
      "bedrock-knowledge-base-default-vector": {
        "type": "knn_vector",
        "dimension": 1536,
        "method": {
          "name": "hnsw",
          "engine": "faiss",
          "parameters": {"ef_construction": 512, "m": 16}
        }
      },
      "AMAZON_BEDROCK_TEXT_CHUNK": {"type": "text"},
      "AMAZON_BEDROCK_METADATA": {"type": "text"}
    }
  }
}`

const signingService = "aoss"

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: create-index <collection-endpoint> <index-name> <region>")
		os.Exit(2)
	}
	endpoint, indexName, region := os.Args[1], os.Args[2], os.Args[3]

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	created, err := ensureIndex(ctx, cfg, endpoint, indexName, region)
	if err != nil {
		slog.Error("failed to ensure index", "index", indexName, "err", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Index %s created\n", indexName)
	} else {
		fmt.Printf("Index %s already exists\n", indexName)
	}
}

// ensureIndex creates the index unless it already exists. Returns whether a
// create happened.
func ensureIndex(ctx context.Context, cfg aws.Config, endpoint, indexName, region string) (bool, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	url := "https://" + strings.TrimPrefix(endpoint, "https://") + "/" + indexName

	status, _, err := signedDo(ctx, client, cfg, http.MethodHead, url, nil, region)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	switch status {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
		// Fall through to create.
	default:
		return false, fmt.Errorf("check index: unexpected status %d", status)
	}

	status, body, err := signedDo(ctx, client, cfg, http.MethodPut, url, []byte(indexBody), region)
	if err != nil {
		return false, fmt.Errorf("create index: %w", err)
	}
	if status < 200 || status >= 300 {
		return false, fmt.Errorf("create index: unexpected status %d: %s", status, body)
	}
	return true, nil
}

// signedDo issues one SigV4-signed request against the collection.
func signedDo(ctx context.Context, client *http.Client, cfg aws.Config, method, url string, body []byte, region string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	signer := v4.NewSigner()
	if err := signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), signingService, region, time.Now()); err != nil {
		return 0, "", fmt.Errorf("sign request: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = res.Body.Close() }()

	buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return res.StatusCode, string(buf), nil
}
