// Package awstest provides in-memory fakes of the AWS client interfaces for
// package tests. The DynamoDB fake implements just enough of the expression
// grammar the stores use: SET with if_not_exists and list_append, ADD on
// numbers, attribute_not_exists puts and #s = :expected conditions.
package awstest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is a thread-safe in-memory DynamoDB lookalike. Register each
// table's key attributes before use.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string][]string // table -> key attribute names, in order
	tables map[string]map[string]map[string]types.AttributeValue

	// FailTransacts makes TransactWriteItems fail unconditionally, for
	// atomicity tests.
	FailTransacts bool
}

// NewDynamo builds a fake with the given table key schemas.
func NewDynamo(tableKeys map[string][]string) *Dynamo {
	tables := make(map[string]map[string]map[string]types.AttributeValue, len(tableKeys))
	for t := range tableKeys {
		tables[t] = map[string]map[string]types.AttributeValue{}
	}
	return &Dynamo{keys: tableKeys, tables: tables}
}

// Seed inserts an item directly, bypassing conditions.
func (m *Dynamo) Seed(table string, item map[string]types.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table][m.keyOf(table, item)] = item
}

// Item returns a stored item (nil if absent), for assertions.
func (m *Dynamo) Item(table string, keyParts ...string) map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table][strings.Join(keyParts, "|")]
}

// Len returns the number of items in a table.
func (m *Dynamo) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *Dynamo) keyOf(table string, attrs map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(m.keys[table]))
	for _, k := range m.keys[table] {
		if v, ok := attrs[k].(*types.AttributeValueMemberS); ok {
			parts = append(parts, v.Value)
		}
	}
	return strings.Join(parts, "|")
}

func (m *Dynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	item, ok := m.tables[table][m.keyOf(table, params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *Dynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	pk := m.keyOf(table, params.Item)
	if err := m.checkPutCondition(table, pk, params.ConditionExpression); err != nil {
		return nil, err
	}
	m.tables[table][pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *Dynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	pk := m.keyOf(table, params.Key)

	item, exists := m.tables[table][pk]
	if !exists {
		item = map[string]types.AttributeValue{}
		for k, v := range params.Key {
			item[k] = v
		}
	}

	if params.ConditionExpression != nil {
		if err := checkCondition(item, *params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}

	applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	m.tables[table][pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *Dynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName

	// supports: "tenant_id = :t AND begins_with(sk, :prefix)"
	tenant := stringValue(params.ExpressionAttributeValues[":t"])
	prefix := stringValue(params.ExpressionAttributeValues[":prefix"])

	var items []map[string]types.AttributeValue
	for _, item := range m.tables[table] {
		if stringValue(item["tenant_id"]) != tenant {
			continue
		}
		if prefix != "" && !strings.HasPrefix(stringValue(item["sk"]), prefix) {
			continue
		}
		items = append(items, item)
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (m *Dynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailTransacts {
		return nil, &types.TransactionCanceledException{}
	}

	// first pass: verify all conditions; nothing is written on failure
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			table := *p.TableName
			pk := m.keyOf(table, p.Item)
			if err := m.checkPutCondition(table, pk, p.ConditionExpression); err != nil {
				return nil, &types.TransactionCanceledException{}
			}
		}
		if u := it.Update; u != nil && u.ConditionExpression != nil {
			table := *u.TableName
			item := m.tables[table][m.keyOf(table, u.Key)]
			if err := checkCondition(item, *u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues); err != nil {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}

	// second pass: apply everything
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			table := *p.TableName
			m.tables[table][m.keyOf(table, p.Item)] = p.Item
		}
		if u := it.Update; u != nil {
			table := *u.TableName
			pk := m.keyOf(table, u.Key)
			item, exists := m.tables[table][pk]
			if !exists {
				item = map[string]types.AttributeValue{}
				for k, v := range u.Key {
					item[k] = v
				}
			}
			applyUpdate(item, *u.UpdateExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			m.tables[table][pk] = item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (m *Dynamo) checkPutCondition(table, pk string, cond *string) error {
	if cond == nil {
		return nil
	}
	if strings.HasPrefix(*cond, "attribute_not_exists(") {
		if _, exists := m.tables[table][pk]; exists {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	}
	return errors.New("unsupported put condition: " + *cond)
}

// checkCondition supports the one conditional form the stores use: "#s = :expected".
func checkCondition(item map[string]types.AttributeValue, cond string, names map[string]string, values map[string]types.AttributeValue) error {
	parts := strings.SplitN(cond, " = ", 2)
	if len(parts) != 2 {
		return errors.New("unsupported condition: " + cond)
	}
	attr := resolveName(strings.TrimSpace(parts[0]), names)
	expected := stringValue(values[strings.TrimSpace(parts[1])])
	if item == nil || stringValue(item[attr]) != expected {
		return &types.ConditionalCheckFailedException{}
	}
	return nil
}

// applyUpdate interprets "SET a = :v, b = if_not_exists(b, :v) ADD c :n" shapes.
func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) {
	setPart, addPart := splitSections(expr)

	for _, clause := range splitClauses(setPart) {
		eq := strings.SplitN(clause, " = ", 2)
		if len(eq) != 2 {
			continue
		}
		attr := resolveName(strings.TrimSpace(eq[0]), names)
		rhs := strings.TrimSpace(eq[1])
		switch {
		case strings.HasPrefix(rhs, "if_not_exists("):
			ref := placeholderIn(rhs)
			if _, exists := item[attr]; !exists {
				item[attr] = values[ref]
			}
		case strings.HasPrefix(rhs, "list_append("):
			ref := placeholderIn(rhs)
			appended, _ := values[ref].(*types.AttributeValueMemberL)
			existing, _ := item[attr].(*types.AttributeValueMemberL)
			merged := &types.AttributeValueMemberL{}
			if existing != nil {
				merged.Value = append(merged.Value, existing.Value...)
			}
			if appended != nil {
				merged.Value = append(merged.Value, appended.Value...)
			}
			item[attr] = merged
		default:
			item[attr] = values[rhs]
		}
	}

	for _, clause := range splitClauses(addPart) {
		fields := strings.Fields(clause)
		if len(fields) != 2 {
			continue
		}
		attr := resolveName(fields[0], names)
		delta := numberValue(values[fields[1]])
		current := 0.0
		if n, ok := item[attr].(*types.AttributeValueMemberN); ok {
			current, _ = strconv.ParseFloat(n.Value, 64)
		}
		item[attr] = &types.AttributeValueMemberN{
			Value: strconv.FormatFloat(current+delta, 'f', -1, 64),
		}
	}
}

func splitSections(expr string) (setPart, addPart string) {
	if i := strings.Index(expr, " ADD "); i >= 0 {
		setPart, addPart = expr[:i], expr[i+len(" ADD "):]
	} else if strings.HasPrefix(expr, "ADD ") {
		addPart = expr[len("ADD "):]
	} else {
		setPart = expr
	}
	setPart = strings.TrimPrefix(setPart, "SET ")
	return setPart, addPart
}

// splitClauses splits on commas outside parentheses.
func splitClauses(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// placeholderIn pulls the :placeholder out of a function-call rhs.
func placeholderIn(rhs string) string {
	i := strings.Index(rhs, ":")
	j := strings.IndexAny(rhs[i:], "),")
	if j < 0 {
		return rhs[i:]
	}
	return rhs[i : i+j]
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if real, ok := names[name]; ok {
			return real
		}
	}
	return name
}

func stringValue(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func numberValue(av types.AttributeValue) float64 {
	if n, ok := av.(*types.AttributeValueMemberN); ok {
		f, _ := strconv.ParseFloat(n.Value, 64)
		return f
	}
	return 0
}
