// Package pipeline runs an ordered list of visitors over one query tree.
//
// A Pipeline is a mutable, priority-sorted visitor list. Callers compose a
// default pipeline and then customize it surgically:
//
//	p := pipeline.New("query")
//	p.Add(visitors.NewAliasVisitor(), 10)
//	p.AddAfter(pipeline.OfType[*visitors.AliasVisitor](), myRewrite)
//	p.Freeze()
//	root, err := p.Run(root, ctx)
//
// Run threads the root returned by each visitor into the next one, so later
// visitors see the rewrites of earlier ones. Pipelines are built once and
// frozen; a frozen pipeline is shared by concurrent compilations.
package pipeline
