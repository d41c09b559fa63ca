package services

import (
	"context"
	"strconv"

	"venting/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// DynamoDBAPI is the subset of *dynamodb.Client the archive uses.
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBArchive mirrors exported transcripts into a table keyed by
// SessionID (hash) and Order (range). One session id per process.
type DynamoDBArchive struct {
	db        DynamoDBAPI
	table     string
	sessionID string
}

func NewDynamoDBArchive(db DynamoDBAPI, table string) *DynamoDBArchive {
	return &DynamoDBArchive{db: db, table: table, sessionID: uuid.New().String()}
}

// NewDynamoDBClient builds a client for region. A non-empty endpoint points
// it at a local DynamoDB with static dummy credentials.
func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts,
			config.WithEndpointResolverWithOptions(resolver),
			config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
				},
			}),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func (a *DynamoDBArchive) SessionID() string {
	return a.sessionID
}

// EnsureTable creates the table. An existing table is not an error.
func (a *DynamoDBArchive) EnsureTable(ctx context.Context) error {
	_, err := a.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(a.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("SessionID"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("Order"), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("SessionID"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("Order"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return errors.Wrapf(err, "creating table %s", a.table)
	}
	if inUse != nil {
		log.Debug("Transcript table already exists", "table", a.table)
	}
	return nil
}

// Archive writes one item per row. Re-exporting overwrites earlier rows with
// the same order.
func (a *DynamoDBArchive) Archive(ctx context.Context, file string, rows []models.ExportRow) error {
	for _, row := range rows {
		_, err := a.db.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(a.table),
			Item: map[string]types.AttributeValue{
				"SessionID": &types.AttributeValueMemberS{Value: a.sessionID},
				"Order":     &types.AttributeValueMemberN{Value: strconv.Itoa(row.Order)},
				"Pair":      &types.AttributeValueMemberN{Value: strconv.Itoa(row.Pair)},
				"Role":      &types.AttributeValueMemberS{Value: string(row.Role)},
				"Message":   &types.AttributeValueMemberS{Value: row.Message},
				"Timestamp": &types.AttributeValueMemberS{Value: row.Timestamp.Format(exportTimestampLayout)},
				"File":      &types.AttributeValueMemberS{Value: file},
			},
		})
		if err != nil {
			return errors.Wrapf(err, "archiving row %d", row.Order)
		}
	}
	return nil
}
