package content

import (
	"encoding/json"
	"fmt"
)

// Object is one of *Post, *Author or *Category.
type Object interface {
	ObjectType() string
	ObjectID() string
	ObjectSlug() string
}

func (p *Post) ObjectType() string     { return TypePosts }
func (p *Post) ObjectID() string       { return p.ID }
func (p *Post) ObjectSlug() string     { return p.Slug }
func (a *Author) ObjectType() string   { return TypeAuthors }
func (a *Author) ObjectID() string     { return a.ID }
func (a *Author) ObjectSlug() string   { return a.Slug }
func (c *Category) ObjectType() string { return TypeCategories }
func (c *Category) ObjectID() string   { return c.ID }
func (c *Category) ObjectSlug() string { return c.Slug }

// DecodeObject picks the concrete type from the object's "type" field.
func DecodeObject(raw json.RawMessage) (Object, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	var obj Object
	switch head.Type {
	case TypePosts:
		obj = &Post{}
	case TypeAuthors:
		obj = &Author{}
	case TypeCategories:
		obj = &Category{}
	case "":
		return nil, fmt.Errorf("decode object: missing type")
	default:
		return nil, fmt.Errorf("decode object: unknown type %q", head.Type)
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return obj, nil
}

// decodeAs decodes raw and asserts the result is a T.
func decodeAs[T Object](raw json.RawMessage) (T, error) {
	var zero T
	obj, err := DecodeObject(raw)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("decode object: got %s, want %s", obj.ObjectType(), zero.ObjectType())
	}
	return v, nil
}

func decodeList[T Object](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := decodeAs[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
