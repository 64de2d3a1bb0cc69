package ast

// Visitor performs double dispatch over the five node kinds. Visit methods
// mutate the tree in place and write side-table slots.
type Visitor interface {
	VisitGroup(node *GroupNode, ctx *Context) error
	VisitTerm(node *TermNode, ctx *Context) error
	VisitTermRange(node *TermRangeNode, ctx *Context) error
	VisitExists(node *ExistsNode, ctx *Context) error
	VisitMissing(node *MissingNode, ctx *Context) error
}

// ChainableVisitor is a visitor that may replace the root. Accept runs the
// visitor over root and returns the tree the next visitor should see.
type ChainableVisitor interface {
	Visitor
	Accept(root Node, ctx *Context) (Node, error)
}

// BaseVisitor provides no-op leaf visits. Embedders implement VisitGroup,
// usually by calling VisitChildren.
type BaseVisitor struct{}

func (BaseVisitor) VisitTerm(*TermNode, *Context) error           { return nil }
func (BaseVisitor) VisitTermRange(*TermRangeNode, *Context) error { return nil }
func (BaseVisitor) VisitExists(*ExistsNode, *Context) error       { return nil }
func (BaseVisitor) VisitMissing(*MissingNode, *Context) error     { return nil }

// VisitChildren visits the children of node, left then right. The child list
// is captured before visiting, so a child replaced by its own visit is not
// revisited.
func VisitChildren(v Visitor, node *GroupNode, ctx *Context) error {
	for _, child := range node.Children() {
		if err := child.Accept(v, ctx); err != nil {
			return err
		}
	}
	return nil
}

// Accept runs v over root, using v's own Accept when it is chainable.
func Accept(v Visitor, root Node, ctx *Context) (Node, error) {
	if cv, ok := v.(ChainableVisitor); ok {
		return cv.Accept(root, ctx)
	}
	if err := root.Accept(v, ctx); err != nil {
		return nil, err
	}
	return root, nil
}

// Walk calls fn for node and every descendant, parents before children.
// Returning false from fn skips the node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, c := range node.Children() {
		Walk(c, fn)
	}
}
