package schema

import (
	"fmt"

	"github.com/valyala/fastjson"
)

// FromMapping builds a Static schema from an Elasticsearch mapping document.
//
// Accepted shapes:
//
//	{"properties": {...}}
//	{"mappings": {"properties": {...}}}
//	{"<index>": {"mappings": {"properties": {...}}}}   (GET /<index>/_mapping)
//
// Object and nested properties are flattened into dotted paths, multi-fields
// become "<field>.<sub>" and "alias" fields resolve to their path.
func FromMapping(data []byte) (*Static, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}

	props := findProperties(v)
	if props == nil {
		return nil, fmt.Errorf("parse mapping: no properties found")
	}

	s := NewStatic()
	if err := walkProperties(s, "", props); err != nil {
		return nil, err
	}
	return s, nil
}

func findProperties(v *fastjson.Value) *fastjson.Value {
	if props := v.Get("properties"); props != nil {
		return props
	}
	if props := v.Get("mappings", "properties"); props != nil {
		return props
	}

	// Index-keyed response: take the first index.
	obj, err := v.Object()
	if err != nil {
		return nil
	}
	var found *fastjson.Value
	obj.Visit(func(_ []byte, idx *fastjson.Value) {
		if found == nil {
			found = idx.Get("mappings", "properties")
		}
	})
	return found
}

func walkProperties(s *Static, prefix string, props *fastjson.Value) error {
	obj, err := props.Object()
	if err != nil {
		return fmt.Errorf("parse mapping: properties of %q is not an object", prefix)
	}

	var walkErr error
	obj.Visit(func(key []byte, def *fastjson.Value) {
		if walkErr != nil {
			return
		}
		name := string(key)
		if prefix != "" {
			name = prefix + "." + name
		}

		typ := string(def.GetStringBytes("type"))
		if typ == "alias" {
			s.AddAlias(name, string(def.GetStringBytes("path")))
			return
		}

		children := def.Get("properties")
		ft := ParseFieldType(typ)
		if ft == TypeUnknown && children != nil {
			ft = TypeObject
		}
		s.Add(Field{Name: name, Type: ft})

		if children != nil {
			walkErr = walkProperties(s, name, children)
			if walkErr != nil {
				return
			}
		}

		if multi := def.Get("fields"); multi != nil {
			mobj, err := multi.Object()
			if err != nil {
				walkErr = fmt.Errorf("parse mapping: fields of %q is not an object", name)
				return
			}
			mobj.Visit(func(sub []byte, subDef *fastjson.Value) {
				s.Add(Field{
					Name: name + "." + string(sub),
					Type: ParseFieldType(string(subDef.GetStringBytes("type"))),
				})
			})
		}
	})
	return walkErr
}
