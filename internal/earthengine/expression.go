package earthengine

import "strconv"

// ValueNode is one node of a platform expression graph. Exactly one field is set.
type ValueNode struct {
	ConstantValue           any                 `json:"constantValue,omitempty"`
	IntegerValue            string              `json:"integerValue,omitempty"`
	ArrayValue              *ArrayValue         `json:"arrayValue,omitempty"`
	DictionaryValue         *DictionaryValue    `json:"dictionaryValue,omitempty"`
	FunctionInvocationValue *FunctionInvocation `json:"functionInvocationValue,omitempty"`
	ValueReference          string              `json:"valueReference,omitempty"`
}

type ArrayValue struct {
	Values []*ValueNode `json:"values"`
}

type DictionaryValue struct {
	Values map[string]*ValueNode `json:"values"`
}

type FunctionInvocation struct {
	FunctionName string                `json:"functionName"`
	Arguments    map[string]*ValueNode `json:"arguments,omitempty"`
}

// Expression is the serialized form sent to the compute endpoints.
type Expression struct {
	Values map[string]*ValueNode `json:"values"`
	Result string                `json:"result"`
}

func Constant(v any) *ValueNode {
	return &ValueNode{ConstantValue: v}
}

func Integer(v int64) *ValueNode {
	return &ValueNode{IntegerValue: strconv.FormatInt(v, 10)}
}

func Array(nodes ...*ValueNode) *ValueNode {
	if nodes == nil {
		nodes = []*ValueNode{}
	}
	return &ValueNode{ArrayValue: &ArrayValue{Values: nodes}}
}

func Dictionary(values map[string]*ValueNode) *ValueNode {
	return &ValueNode{DictionaryValue: &DictionaryValue{Values: values}}
}

func Invoke(functionName string, arguments map[string]*ValueNode) *ValueNode {
	return &ValueNode{FunctionInvocationValue: &FunctionInvocation{
		FunctionName: functionName,
		Arguments:    arguments,
	}}
}

func Reference(id string) *ValueNode {
	return &ValueNode{ValueReference: id}
}

// Builder collects shared sub-graphs so they are serialized once and referenced
// everywhere else.
type Builder struct {
	values map[string]*ValueNode
	ids    map[*ValueNode]string
	next   int
}

func NewBuilder() *Builder {
	return &Builder{
		values: make(map[string]*ValueNode),
		ids:    make(map[*ValueNode]string),
	}
}

// Define registers node under a fresh id (or its existing one) and returns a
// reference to it.
func (b *Builder) Define(node *ValueNode) *ValueNode {
	if node.ValueReference != "" {
		return node
	}
	if id, ok := b.ids[node]; ok {
		return Reference(id)
	}
	id := strconv.Itoa(b.next)
	b.next++
	b.values[id] = node
	b.ids[node] = id
	return Reference(id)
}

// Build returns an expression whose result is node. The builder may keep being
// used afterwards.
func (b *Builder) Build(node *ValueNode) *Expression {
	ref := b.Define(node)

	values := make(map[string]*ValueNode, len(b.values))
	for id, v := range b.values {
		values[id] = v
	}
	return &Expression{Values: values, Result: ref.ValueReference}
}

// Build wraps a single node graph without shared definitions.
func Build(node *ValueNode) *Expression {
	return NewBuilder().Build(node)
}
