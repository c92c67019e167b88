package dynamo

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type doc = map[string]types.AttributeValue

// fakeAPI is an in-memory DynamoDB that understands the few condition
// expressions the repositories issue.
type fakeAPI struct {
	mu     sync.Mutex
	tables map[string]map[string]doc

	transactCalls int
	transactErr   error
	scanErr       error
	unprocessed   int // BatchGetItem returns this many keys as unprocessed once
	batchCalls    int
}

var _ API = (*fakeAPI)(nil)

func newFakeAPI(tables ...string) *fakeAPI {
	f := &fakeAPI{tables: map[string]map[string]doc{}}
	for _, t := range tables {
		f.tables[t] = map[string]doc{}
	}
	return f
}

func idOf(d doc) string {
	if s, ok := d["id"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func clone(d doc) doc {
	out := make(doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (f *fakeAPI) table(name *string) map[string]doc {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		panic("fake: unknown table " + aws.ToString(name))
	}
	return t
}

// condOK evaluates the conditions the repositories issue: any AND of
// attribute_exists(id), attribute_not_exists(id) and "#name = :value".
func condOK(expr *string, names map[string]string, values map[string]types.AttributeValue, cur doc, exists bool) bool {
	raw := strings.TrimSpace(aws.ToString(expr))
	if raw == "" {
		return true
	}
	for _, term := range strings.Split(raw, " AND ") {
		term = strings.TrimSpace(term)
		switch {
		case term == "attribute_exists(id)":
			if !exists {
				return false
			}
		case term == "attribute_not_exists(id)":
			if exists {
				return false
			}
		case strings.Contains(term, " = "):
			lhs, rhs, _ := strings.Cut(term, " = ")
			attr, ok := names[lhs]
			if !ok {
				panic("fake: unbound name " + lhs)
			}
			want, ok := values[rhs]
			if !ok {
				panic("fake: unbound value " + rhs)
			}
			if !exists || !sameScalar(cur[attr], want) {
				return false
			}
		default:
			panic("fake: unsupported condition " + term)
		}
	}
	return true
}

func sameScalar(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	}
	return false
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.table(in.TableName)[idOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(d)}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(in.TableName)
	cur, exists := t[idOf(in.Item)]
	if !condOK(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, cur, exists) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	t[idOf(in.Item)] = clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem applies "SET #a = :a, ..." where every name placeholder has a
// matching value placeholder.
func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(in.TableName)
	d, exists := t[idOf(in.Key)]
	if !condOK(in.ConditionExpression, nil, nil, d, exists) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	if !exists {
		d = clone(in.Key)
	}
	d = clone(d)
	for ph, attr := range in.ExpressionAttributeNames {
		d[attr] = in.ExpressionAttributeValues[":"+strings.TrimPrefix(ph, "#")]
	}
	t[idOf(in.Key)] = d
	return &dynamodb.UpdateItemOutput{Attributes: clone(d)}, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var items []doc
	for _, d := range f.table(in.TableName) {
		items = append(items, clone(d))
	}
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *fakeAPI) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	out := &dynamodb.BatchGetItemOutput{
		Responses:       map[string][]doc{},
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}
	for name, ka := range in.RequestItems {
		t := f.table(aws.String(name))
		keys := ka.Keys
		if f.unprocessed > 0 && len(keys) > f.unprocessed {
			out.UnprocessedKeys[name] = types.KeysAndAttributes{Keys: keys[len(keys)-f.unprocessed:]}
			keys = keys[:len(keys)-f.unprocessed]
			f.unprocessed = 0
		}
		for _, k := range keys {
			if d, ok := t[idOf(k)]; ok {
				out.Responses[name] = append(out.Responses[name], clone(d))
			}
		}
	}
	return out, nil
}

// TransactWriteItems checks every condition before applying any write.
func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactCalls++
	if f.transactErr != nil {
		return nil, f.transactErr
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, w := range in.TransactItems {
		var (
			tbl    *string
			id     string
			cond   *string
			names  map[string]string
			values map[string]types.AttributeValue
		)
		switch {
		case w.Put != nil:
			tbl, id, cond = w.Put.TableName, idOf(w.Put.Item), w.Put.ConditionExpression
			names, values = w.Put.ExpressionAttributeNames, w.Put.ExpressionAttributeValues
		case w.Delete != nil:
			tbl, id, cond = w.Delete.TableName, idOf(w.Delete.Key), w.Delete.ConditionExpression
			names, values = w.Delete.ExpressionAttributeNames, w.Delete.ExpressionAttributeValues
		default:
			panic("fake: unsupported transact write")
		}
		cur, exists := f.table(tbl)[id]
		if condOK(cond, names, values, cur, exists) {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
			continue
		}
		reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
		failed = true
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, w := range in.TransactItems {
		switch {
		case w.Put != nil:
			f.table(w.Put.TableName)[idOf(w.Put.Item)] = clone(w.Put.Item)
		case w.Delete != nil:
			delete(f.table(w.Delete.TableName), idOf(w.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no such table")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[aws.ToString(in.TableName)] = map[string]doc{}
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeAPI) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}
