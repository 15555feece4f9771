// Package serialization reads and writes element trees in the DASE XML
// dialect.
//
// An element is written as
//
//	<Tag ID="..." Name="..." attr="...">
//	  <Properties>
//	    <XData Name="..." Id="..." Type="...">text</XData>
//	  </Properties>
//	  ...children...
//	</Tag>
//
// Values equal to their property default are omitted. Problems with the
// data are recorded on the operation Context and returned together in the
// Result; only engine failures abort an operation.
package serialization

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dase/internal/element"
	"dase/internal/registry"
)

// CustomSerializer replaces the generic encoding for one tag
type CustomSerializer interface {
	Serialize(e *element.Element, w *Writer) error
	Deserialize(n *Node, r *Reader) (*element.Element, error)
}

// Hook observes the phases of an operation. Any field may be nil. A hook
// error aborts the operation.
type Hook struct {
	Name              string
	BeforeSerialize   func(root *element.Element, ctx *Context) error
	AfterSerialize    func(root *element.Element, ctx *Context) error
	BeforeDeserialize func(src string, ctx *Context) error
	AfterDeserialize  func(root *element.Element, ctx *Context) error
}

// Result is the outcome of an operation
type Result[T any] struct {
	Success            bool
	Data               T
	Errors             []*Error
	ResolvedReferences int
}

// Err aggregates Errors, or nil
func (r Result[T]) Err() error {
	return joinErrors(r.Errors)
}

// ValidationResult is the outcome of ValidateXml
type ValidationResult struct {
	Valid  bool
	Errors []*Error
}

// Engine serializes element trees against a registry
type Engine struct {
	registry    *registry.Registry
	options     Options
	hooks       []Hook
	serializers map[string]CustomSerializer
}

// New creates an engine over reg
func New(reg *registry.Registry, opts ...Option) *Engine {
	return &Engine{
		registry:    reg,
		options:     buildOptions(opts),
		serializers: make(map[string]CustomSerializer),
	}
}

// Options returns the engine options
func (e *Engine) Options() Options {
	return e.options
}

// Registry returns the engine registry
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// AddHook appends a phase hook
func (e *Engine) AddHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// RegisterSerializer installs s for tag, replacing any previous one
func (e *Engine) RegisterSerializer(tag string, s CustomSerializer) {
	e.serializers[tag] = s
}

// Serialize writes root and its subtree as an XML string
func (e *Engine) Serialize(root *element.Element) (res Result[string]) {
	ctx := NewContext(e.options)
	defer recoverInto(&res, ctx)

	if root == nil {
		return abort[string](ctx, errors.New("nil root element"))
	}
	if err := e.enter(ctx, PhaseBeforeSerialize); err != nil {
		return abort[string](ctx, err)
	}
	for _, h := range e.hooks {
		if h.BeforeSerialize != nil {
			if err := h.BeforeSerialize(root, ctx); err != nil {
				return abort[string](ctx, errors.Wrapf(err, "hook %s", h.Name))
			}
		}
	}

	w := NewWriter(e.registry, ctx, e.serializers)
	if e.options.XMLDeclaration {
		w.WriteDeclaration()
	}
	w.WriteElement(root)

	if err := e.enter(ctx, PhaseAfterSerialize); err != nil {
		return abort[string](ctx, err)
	}
	for _, h := range e.hooks {
		if h.AfterSerialize != nil {
			if err := h.AfterSerialize(root, ctx); err != nil {
				return abort[string](ctx, errors.Wrapf(err, "hook %s", h.Name))
			}
		}
	}
	if err := e.enter(ctx, PhaseCompleted); err != nil {
		return abort[string](ctx, err)
	}

	logrus.Debugf("serialized %d elements with %d errors", ctx.ElementCount(), len(ctx.errors))
	return finish(ctx, w.String(), 0)
}

// SerializeToDocument serializes root and parses the output back into a
// node tree
func (e *Engine) SerializeToDocument(root *element.Element) Result[*Node] {
	out := e.Serialize(root)
	if !out.Success && out.Data == "" {
		return Result[*Node]{Errors: out.Errors}
	}
	ctx := NewContext(e.options)
	node := Parse(out.Data, ctx)
	errs := append(out.Errors, ctx.Errors()...)
	return Result[*Node]{Success: len(errs) == 0, Data: node, Errors: errs}
}

// Deserialize parses src into a new element tree. The root is attached to a
// new element.Document so links between its elements can be followed.
func (e *Engine) Deserialize(src string) (res Result[*element.Element]) {
	ctx := NewContext(e.options)
	defer recoverInto(&res, ctx)

	if err := e.enter(ctx, PhaseBeforeDeserialize); err != nil {
		return abort[*element.Element](ctx, err)
	}
	for _, h := range e.hooks {
		if h.BeforeDeserialize != nil {
			if err := h.BeforeDeserialize(src, ctx); err != nil {
				return abort[*element.Element](ctx, errors.Wrapf(err, "hook %s", h.Name))
			}
		}
	}

	var root *element.Element
	if node := Parse(src, ctx); node != nil {
		root = NewReader(e.registry, ctx, e.serializers).ReadElement(node)
		if root == nil && !ctx.HasErrors() {
			ctx.AddError(&Error{
				Kind:        KindUnknownElement,
				ElementName: node.AttrOr("Name", node.Tag),
				Message:     fmt.Sprintf("root <%s> is not a registered element", node.Tag),
			})
		}
	}
	if root != nil {
		doc := element.NewDocument(root.Name)
		if err := doc.AppendChild(root); err != nil {
			ctx.elementError(KindConversion, root, "", "cannot attach root to document", err)
		}
	}

	if err := e.enter(ctx, PhaseAfterDeserialize); err != nil {
		return abort[*element.Element](ctx, err)
	}
	for _, h := range e.hooks {
		if h.AfterDeserialize != nil {
			if err := h.AfterDeserialize(root, ctx); err != nil {
				return abort[*element.Element](ctx, errors.Wrapf(err, "hook %s", h.Name))
			}
		}
	}

	if err := e.enter(ctx, PhaseResolvingReferences); err != nil {
		return abort[*element.Element](ctx, err)
	}
	resolved := ctx.ResolveReferences()
	if err := e.enter(ctx, PhaseCompleted); err != nil {
		return abort[*element.Element](ctx, err)
	}

	logrus.Debugf("deserialized %d elements, resolved %d references, %d pending, %d errors",
		ctx.ElementCount(), resolved, len(ctx.pending), len(ctx.errors))
	return finish(ctx, root, resolved)
}

// ValidateXml parses src and checks that every element tag is registered.
// Nothing is constructed.
func (e *Engine) ValidateXml(src string) ValidationResult {
	ctx := NewContext(e.options)
	root := Parse(src, ctx)
	if root != nil {
		root.Walk(func(n *Node) bool {
			if !IsReservedTag(n.Tag) && !e.registry.IsRegistered(n.Tag) {
				ctx.AddError(&Error{
					Kind:        KindUnknownElement,
					ElementName: n.AttrOr("Name", n.Tag),
					Message:     fmt.Sprintf("unknown element <%s>", n.Tag),
				})
			}
			return true
		})
	}
	return ValidationResult{Valid: !ctx.HasErrors(), Errors: ctx.Errors()}
}

func (e *Engine) enter(ctx *Context, p Phase) error {
	return ctx.SetPhase(p)
}

func finish[T any](ctx *Context, data T, resolved int) Result[T] {
	return Result[T]{
		Success:            !ctx.HasErrors(),
		Data:               data,
		Errors:             ctx.Errors(),
		ResolvedReferences: resolved,
	}
}

// abort produces the single terminal error of a failed operation
func abort[T any](ctx *Context, err error) Result[T] {
	logrus.Debugf("serialization aborted in %s: %v", ctx.Phase(), err)
	return Result[T]{
		Errors: []*Error{{
			Kind:    KindEngine,
			Message: "operation aborted",
			Phase:   ctx.Phase(),
			Inner:   err,
		}},
	}
}

func recoverInto[T any](res *Result[T], ctx *Context) {
	if rec := recover(); rec != nil {
		*res = abort[T](ctx, errors.Errorf("panic: %v", rec))
	}
}
