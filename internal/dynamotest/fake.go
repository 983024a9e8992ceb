// Package dynamotest provides an in-memory DynamoDB fake for store tests.
// It understands the narrow expression grammar the stores use: SET
// assignments with optional +/- arithmetic, and AND-joined conditions of the
// forms attribute_exists, attribute_not_exists, equality and >= comparison.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type tableDef struct {
	pk    string
	sk    string // empty when the table has a simple key
	items map[string]map[string]types.AttributeValue
}

// Fake is a threadsafe in-memory stand-in for the DynamoDB client.
type Fake struct {
	mu     sync.Mutex
	tables map[string]*tableDef

	// FailPutTable makes PutItem (and transactional Puts) against the named
	// table fail with FailErr. Used to exercise rollback paths.
	FailPutTable string
	FailErr      error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{tables: map[string]*tableDef{}}
}

// CreateTable registers a table with the given key schema. sk may be "".
func (f *Fake) CreateTable(name, pk, sk string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &tableDef{pk: pk, sk: sk, items: map[string]map[string]types.AttributeValue{}}
}

// Seed writes an item directly, bypassing conditions.
func (f *Fake) Seed(table string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[table]
	t.items[t.keyOfItem(item)] = cloneItem(item)
}

// Item returns a stored item by its raw key values (pk, then sk if any).
func (f *Fake) Item(table string, keyParts ...string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[table]
	it, ok := t.items[strings.Join(keyParts, "\x00")]
	if !ok {
		return nil
	}
	return cloneItem(it)
}

// Len reports the number of items in a table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table].items)
}

func (t *tableDef) keyOfItem(item map[string]types.AttributeValue) string {
	parts := []string{scalarString(item[t.pk])}
	if t.sk != "" {
		parts = append(parts, scalarString(item[t.sk]))
	}
	return strings.Join(parts, "\x00")
}

func scalarString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return ""
	}
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *Fake) table(name *string) (*tableDef, error) {
	if name == nil {
		return nil, errors.New("dynamotest: nil table name")
	}
	t, ok := f.tables[*name]
	if !ok {
		return nil, fmt.Errorf("dynamotest: unknown table %q", *name)
	}
	return t, nil
}

// --- expression evaluation ---

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if real, ok := names[name]; ok {
			return real
		}
	}
	return name
}

func numOf(av types.AttributeValue) (int64, bool) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func avEqual(a, b types.AttributeValue) bool {
	if an, ok := numOf(a); ok {
		bn, bok := numOf(b)
		return bok && an == bn
	}
	if as, ok := a.(*types.AttributeValueMemberS); ok {
		bs, bok := b.(*types.AttributeValueMemberS)
		return bok && as.Value == bs.Value
	}
	if ab, ok := a.(*types.AttributeValueMemberBOOL); ok {
		bb, bok := b.(*types.AttributeValueMemberBOOL)
		return bok && ab.Value == bb.Value
	}
	return false
}

// checkCondition evaluates an AND-joined condition against item (nil means
// the item does not exist).
func checkCondition(expr string, item map[string]types.AttributeValue,
	names map[string]string, values map[string]types.AttributeValue) (bool, error) {

	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
			if item != nil {
				if _, ok := item[attr]; ok {
					return false, nil
				}
			}
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
			if item == nil {
				return false, nil
			}
			if _, ok := item[attr]; !ok {
				return false, nil
			}
		case strings.Contains(clause, ">="):
			parts := strings.SplitN(clause, ">=", 2)
			attr := resolveName(strings.TrimSpace(parts[0]), names)
			val, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("dynamotest: unbound value in %q", clause)
			}
			if item == nil {
				return false, nil
			}
			cur, okc := numOf(item[attr])
			want, okw := numOf(val)
			if !okc || !okw || cur < want {
				return false, nil
			}
		case strings.Contains(clause, "="):
			parts := strings.SplitN(clause, "=", 2)
			attr := resolveName(strings.TrimSpace(parts[0]), names)
			val, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("dynamotest: unbound value in %q", clause)
			}
			if item == nil {
				return false, nil
			}
			cur, okc := item[attr]
			if !okc || !avEqual(cur, val) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("dynamotest: unsupported condition clause %q", clause)
		}
	}
	return true, nil
}

// applyUpdate evaluates a SET update expression in place.
func applyUpdate(expr string, item map[string]types.AttributeValue,
	names map[string]string, values map[string]types.AttributeValue) error {

	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}
	for _, assign := range strings.Split(expr[len("SET "):], ",") {
		parts := strings.SplitN(assign, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("dynamotest: bad assignment %q", assign)
		}
		target := resolveName(strings.TrimSpace(parts[0]), names)
		rhs := strings.TrimSpace(parts[1])

		var op string
		switch {
		case strings.Contains(rhs, " + "):
			op = " + "
		case strings.Contains(rhs, " - "):
			op = " - "
		}
		if op == "" {
			val, ok := values[rhs]
			if !ok {
				return fmt.Errorf("dynamotest: unbound value %q", rhs)
			}
			item[target] = val
			continue
		}

		ops := strings.SplitN(rhs, op, 2)
		src := resolveName(strings.TrimSpace(ops[0]), names)
		val, ok := values[strings.TrimSpace(ops[1])]
		if !ok {
			return fmt.Errorf("dynamotest: unbound value in %q", rhs)
		}
		cur, okc := numOf(item[src])
		delta, okd := numOf(val)
		if !okc || !okd {
			return fmt.Errorf("dynamotest: non-numeric arithmetic in %q", rhs)
		}
		if op == " - " {
			delta = -delta
		}
		item[target] = &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+delta, 10)}
	}
	return nil
}

// --- DynamoDBAPI implementation ---

func (f *Fake) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[t.keyOfItem(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: cloneItem(item)}, nil
}

func (f *Fake) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	if f.FailPutTable != "" && *params.TableName == f.FailPutTable {
		return nil, f.failErr()
	}
	key := t.keyOfItem(params.Item)
	existing := t.items[key]
	if params.ConditionExpression != nil {
		ok, cerr := checkCondition(*params.ConditionExpression, existing,
			params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if cerr != nil {
			return nil, cerr
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
		}
	}
	t.items[key] = cloneItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOfItem(params.Key)
	existing, ok := t.items[key]
	if params.ConditionExpression != nil {
		var condItem map[string]types.AttributeValue
		if ok {
			condItem = existing
		}
		pass, cerr := checkCondition(*params.ConditionExpression, condItem,
			params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if cerr != nil {
			return nil, cerr
		}
		if !pass {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
		}
	}
	if !ok {
		// DynamoDB upserts on update; the stores never rely on that for
		// missing rows, but mirror it anyway.
		existing = cloneItem(params.Key)
		t.items[key] = existing
	}
	if params.UpdateExpression != nil {
		if uerr := applyUpdate(*params.UpdateExpression, existing,
			params.ExpressionAttributeNames, params.ExpressionAttributeValues); uerr != nil {
			return nil, uerr
		}
	}
	return &dynamodb.UpdateItemOutput{Attributes: cloneItem(existing)}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOfItem(params.Key)
	existing, ok := t.items[key]
	if params.ConditionExpression != nil {
		var condItem map[string]types.AttributeValue
		if ok {
			condItem = existing
		}
		pass, cerr := checkCondition(*params.ConditionExpression, condItem,
			params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if cerr != nil {
			return nil, cerr
		}
		if !pass {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
		}
	}
	delete(t.items, key)
	out := &dynamodb.DeleteItemOutput{}
	if ok && params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = cloneItem(existing)
	}
	return out, nil
}

// Query supports a single equality key condition, optionally against a GSI
// attribute (IndexName is accepted but indexes are not modeled; the named
// attribute is filtered directly).
func (f *Fake) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	if params.KeyConditionExpression == nil {
		return nil, errors.New("dynamotest: query requires a key condition")
	}
	parts := strings.SplitN(*params.KeyConditionExpression, "=", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("dynamotest: unsupported key condition %q", *params.KeyConditionExpression)
	}
	attr := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
	want, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
	if !ok {
		return nil, errors.New("dynamotest: unbound key condition value")
	}
	var out []map[string]types.AttributeValue
	for _, item := range t.items {
		if cur, ok := item[attr]; ok && avEqual(cur, want) {
			out = append(out, cloneItem(item))
		}
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

// Scan supports at most one equality filter clause.
func (f *Fake) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	var out []map[string]types.AttributeValue
	for _, item := range t.items {
		if params.FilterExpression != nil {
			pass, cerr := checkCondition(*params.FilterExpression, item,
				params.ExpressionAttributeNames, params.ExpressionAttributeValues)
			if cerr != nil {
				return nil, cerr
			}
			if !pass {
				continue
			}
		}
		out = append(out, cloneItem(item))
	}
	return &dynamodb.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *Fake) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := map[string][]map[string]types.AttributeValue{}
	for name, req := range params.RequestItems {
		t, ok := f.tables[name]
		if !ok {
			return nil, fmt.Errorf("dynamotest: unknown table %q", name)
		}
		for _, key := range req.Keys {
			if item, ok := t.items[t.keyOfItem(key)]; ok {
				responses[name] = append(responses[name], cloneItem(item))
			}
		}
	}
	return &dynamodb.BatchGetItemOutput{Responses: responses}, nil
}

func (f *Fake) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, reqs := range params.RequestItems {
		t, ok := f.tables[name]
		if !ok {
			return nil, fmt.Errorf("dynamotest: unknown table %q", name)
		}
		for _, wr := range reqs {
			if wr.PutRequest != nil {
				t.items[t.keyOfItem(wr.PutRequest.Item)] = cloneItem(wr.PutRequest.Item)
			}
			if wr.DeleteRequest != nil {
				delete(t.items, t.keyOfItem(wr.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

// TransactWriteItems checks every condition first and applies all writes only
// when the whole batch passes, mirroring DynamoDB's all-or-nothing contract.
// A failed condition surfaces as TransactionCanceledException with per-item
// cancellation reasons.
func (f *Fake) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: strPtr("None")}
		switch {
		case it.Put != nil:
			t, err := f.table(it.Put.TableName)
			if err != nil {
				return nil, err
			}
			if f.FailPutTable != "" && *it.Put.TableName == f.FailPutTable {
				return nil, f.failErr()
			}
			if it.Put.ConditionExpression == nil {
				continue
			}
			existing := t.items[t.keyOfItem(it.Put.Item)]
			pass, cerr := checkCondition(*it.Put.ConditionExpression, existing,
				it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues)
			if cerr != nil {
				return nil, cerr
			}
			if !pass {
				reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed")}
				failed = true
			}
		case it.Update != nil:
			t, err := f.table(it.Update.TableName)
			if err != nil {
				return nil, err
			}
			existing, ok := t.items[t.keyOfItem(it.Update.Key)]
			if it.Update.ConditionExpression != nil {
				var condItem map[string]types.AttributeValue
				if ok {
					condItem = existing
				}
				pass, cerr := checkCondition(*it.Update.ConditionExpression, condItem,
					it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues)
				if cerr != nil {
					return nil, cerr
				}
				if !pass {
					reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed")}
					failed = true
				}
			}
		default:
			return nil, errors.New("dynamotest: unsupported transact item")
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             strPtr("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			t, _ := f.table(it.Put.TableName)
			t.items[t.keyOfItem(it.Put.Item)] = cloneItem(it.Put.Item)
		case it.Update != nil:
			t, _ := f.table(it.Update.TableName)
			key := t.keyOfItem(it.Update.Key)
			existing, ok := t.items[key]
			if !ok {
				existing = cloneItem(it.Update.Key)
				t.items[key] = existing
			}
			if it.Update.UpdateExpression != nil {
				if err := applyUpdate(*it.Update.UpdateExpression, existing,
					it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues); err != nil {
					return nil, err
				}
			}
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *Fake) failErr() error {
	if f.FailErr != nil {
		return f.FailErr
	}
	return errors.New("dynamotest: injected failure")
}

func strPtr(s string) *string { return &s }
