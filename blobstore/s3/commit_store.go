package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/diverset/blobstore"
)

// CommitStore implements blobstore.Store backed by S3 with DynamoDB for
// atomic snapshot publication. This enables safe concurrent snapshot
// publishers on storage that lacks compare-and-swap.
//
// Every Put writes the payload to a fresh versioned S3 key and then commits
// the version with a DynamoDB conditional write; a lost race surfaces as
// ErrConcurrentModification instead of a silently overwritten snapshot.
// Open and Stat resolve the latest committed version.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 prefix/path plus blob name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name diverset-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
//
// Note: CAS applies to snapshot publication only; it does not make one cache
// safe for concurrent mutation.
type CommitStore struct {
	inner     *Store
	ddbClient DDBClient
	tableName string
	baseURI   string // S3 bucket/prefix used as partition key namespace
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ErrConcurrentModification is returned when a concurrent publisher won the
// commit race.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// Compile time check to ensure CommitStore satisfies the blobstore.Store interface.
var _ blobstore.Store = (*CommitStore)(nil)

// NewCommitStore creates a new S3+DynamoDB commit store.
// The baseURI should be "s3://bucket/prefix" format; it namespaces the
// partition keys.
func NewCommitStore(inner *Store, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		inner:     inner,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func (s *CommitStore) partitionKey(name string) string {
	return s.baseURI + "/" + name
}

func versionedKey(name string, version uint64) string {
	return fmt.Sprintf("%s.v%06d", name, version)
}

// Open opens the latest committed version of a blob.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	version, err := s.latestVersion(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return s.inner.Open(ctx, versionedKey(name, version))
}

// Stat returns the info of the latest committed version.
func (s *CommitStore) Stat(ctx context.Context, name string) (blobstore.Info, error) {
	version, err := s.latestVersion(ctx, name)
	if err != nil {
		return blobstore.Info{}, err
	}
	if version == 0 {
		return blobstore.Info{}, blobstore.ErrNotFound
	}
	return s.inner.Stat(ctx, versionedKey(name, version))
}

// Put writes the payload to a fresh versioned key and atomically commits the
// version via a DynamoDB conditional write.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	currentVersion, err := s.latestVersion(ctx, name)
	if err != nil {
		return err
	}
	newVersion := currentVersion + 1

	if err := s.inner.Put(ctx, versionedKey(name, newVersion), data); err != nil {
		return err
	}

	// Conditional put: only succeed if this version doesn't exist yet
	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri": &ddbtypes.AttributeValueMemberS{Value: s.partitionKey(name)},
			"version":  &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			"blob_key": &ddbtypes.AttributeValueMemberS{Value: versionedKey(name, newVersion)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// Orphaned payload is cleaned up best effort; the commit itself
			// must stay atomic.
			_ = s.inner.Delete(ctx, versionedKey(name, newVersion))
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}

	return nil
}

// Delete removes all committed versions of a blob and their commit records.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	for {
		version, err := s.latestVersion(ctx, name)
		if err != nil {
			return err
		}
		if version == 0 {
			return nil
		}
		if err := s.inner.Delete(ctx, versionedKey(name, version)); err != nil {
			return err
		}
		_, err = s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]ddbtypes.AttributeValue{
				"base_uri": &ddbtypes.AttributeValueMemberS{Value: s.partitionKey(name)},
				"version":  &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
			},
		})
		if err != nil {
			return err
		}
	}
}

// List lists blobs with prefix. Versioned payload keys are listed as stored.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// latestVersion queries DynamoDB for the latest committed version of name.
// Returns 0 when nothing has been committed yet.
func (s *CommitStore) latestVersion(ctx context.Context, name string) (uint64, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.partitionKey(name)},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, nil
	}

	versionAttr, ok := resp.Items[0]["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("invalid version attribute in DynamoDB")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, fmt.Errorf("failed to parse version: %w", err)
	}

	return version, nil
}
