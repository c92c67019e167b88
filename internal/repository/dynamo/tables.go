package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EnsureTables creates missing tables (hash key "id", on-demand billing) and
// waits until they are active. Existing tables are left untouched.
// It returns the names of the tables it created.
func (db *DB) EnsureTables(ctx context.Context, wait time.Duration) ([]string, error) {
	var created []string
	for _, name := range []string{db.tables.Items, db.tables.Users} {
		_, err := db.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err == nil {
			continue
		}
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return created, fmt.Errorf("describe table %s: %w", name, err)
		}

		_, err = db.api.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			return created, fmt.Errorf("create table %s: %w", name, err)
		}
		created = append(created, name)
	}

	for _, name := range created {
		waiter := dynamodb.NewTableExistsWaiter(db.api)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, wait); err != nil {
			return created, fmt.Errorf("wait for table %s: %w", name, err)
		}
	}
	return created, nil
}
