/*
file: lucidkv/internal/command/handler_json.go

JSON.GET/JSON.SET/JSON.DEL, supplementing the teacher (which never
handled JSON) with the restricted JSONPath subset spec.md §4.3 calls
for: `$`, dotted child, bracket child, and array index.
*/
package command

import (
	"strconv"
	"strings"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

type jsonPathSegment struct {
	field string
	index int // >=0 for array index segments, -1 for field segments
}

func parseJSONPath(path string) ([]jsonPathSegment, bool) {
	if !strings.HasPrefix(path, "$") {
		return nil, false
	}
	rest := path[1:]
	var segs []jsonPathSegment
	for len(rest) > 0 {
		switch {
		case rest[0] == '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			if end == 0 {
				return nil, false
			}
			segs = append(segs, jsonPathSegment{field: rest[:end], index: -1})
			rest = rest[end:]
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, false
			}
			token := rest[1:end]
			rest = rest[end+1:]
			if strings.HasPrefix(token, "'") && strings.HasSuffix(token, "'") {
				segs = append(segs, jsonPathSegment{field: token[1 : len(token)-1], index: -1})
				continue
			}
			n, err := strconv.Atoi(token)
			if err != nil {
				return nil, false
			}
			segs = append(segs, jsonPathSegment{index: n})
		default:
			return nil, false
		}
	}
	return segs, true
}

func jsonGetPath(doc interface{}, segs []jsonPathSegment) (interface{}, bool) {
	cur := doc
	for _, seg := range segs {
		if seg.index >= 0 {
			arr, ok := cur.([]interface{})
			if !ok || seg.index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.index]
			continue
		}
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := obj[seg.field]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func jsonSetPath(doc interface{}, segs []jsonPathSegment, value interface{}) (interface{}, bool) {
	if len(segs) == 0 {
		return value, true
	}
	seg := segs[0]
	if seg.index >= 0 {
		arr, ok := doc.([]interface{})
		if !ok || seg.index >= len(arr) {
			return doc, false
		}
		child, ok := jsonSetPath(arr[seg.index], segs[1:], value)
		if !ok {
			return doc, false
		}
		arr[seg.index] = child
		return arr, true
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		obj = map[string]interface{}{}
	}
	child, _ := jsonSetPath(obj[seg.field], segs[1:], value)
	obj[seg.field] = child
	return obj, true
}

func cmdJSONSet(ctx *Context, args [][]byte) resp.Value {
	segs, ok := parseJSONPath(string(args[2]))
	if !ok {
		return resp.Error("ERR invalid JSONPath")
	}
	value, err := decodeJSONArg(args[3])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	_, werr := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var doc interface{}
		if exists {
			if existing.Kind != store.KindJSON {
				return nil, store.ErrWrongType
			}
			doc = existing.JSON
		} else {
			if len(segs) != 0 {
				return nil, errNoSuchKey
			}
			doc = nil
		}
		next, ok := jsonSetPath(doc, segs, value)
		if !ok {
			return nil, errOutOfRange
		}
		return &store.Item{Kind: store.KindJSON, JSON: next}, nil
	})
	switch werr {
	case nil:
		ctx.Store.Notify(ctx.DBIndex(), args[1])
		return okSimple()
	case store.ErrWrongType:
		return wrongTypeErr()
	case errNoSuchKey:
		return resp.Error("ERR new objects must be created at the document root")
	case errOutOfRange:
		return resp.Error("ERR path does not exist")
	default:
		return resp.Errorf("ERR %s", werr)
	}
}

func cmdJSONGet(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindJSON)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.NullBulk()
	}
	path := "$"
	if len(args) > 2 {
		path = string(args[2])
	}
	segs, ok := parseJSONPath(path)
	if !ok {
		return resp.Error("ERR invalid JSONPath")
	}
	v, ok := jsonGetPath(it.JSON, segs)
	if !ok {
		return resp.NullBulk()
	}
	encoded, err := encodeJSONValue(v)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	return resp.Bulk(encoded)
}

func cmdJSONDel(ctx *Context, args [][]byte) resp.Value {
	path := "$"
	if len(args) > 2 {
		path = string(args[2])
	}
	var removed int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return nil, nil
		}
		if existing.Kind != store.KindJSON {
			return nil, store.ErrWrongType
		}
		if path == "$" {
			removed = 1
			return nil, nil
		}
		segs, ok := parseJSONPath(path)
		if !ok || len(segs) == 0 {
			return existing, nil
		}
		parent, ok := jsonGetPath(existing.JSON, segs[:len(segs)-1])
		if !ok {
			return existing, nil
		}
		last := segs[len(segs)-1]
		if last.index >= 0 {
			arr, ok := parent.([]interface{})
			if ok && last.index < len(arr) {
				existing.JSON, _ = jsonSetPath(existing.JSON, segs[:len(segs)-1], append(arr[:last.index], arr[last.index+1:]...))
				removed = 1
			}
		} else if obj, ok := parent.(map[string]interface{}); ok {
			if _, present := obj[last.field]; present {
				delete(obj, last.field)
				removed = 1
			}
		}
		return existing, nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if removed > 0 {
		ctx.Store.Notify(ctx.DBIndex(), args[1])
	}
	return intReply(removed)
}
