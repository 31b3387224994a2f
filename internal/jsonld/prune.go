package jsonld

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Prune 由下而上移除 nil、空陣列與空物件。父節點在子節點移除後變空也一併移除；
// ok 為 false 代表整個值被移除
func Prune(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if pruned, ok := Prune(child); ok {
				out[k] = pruned
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if pruned, ok := Prune(item); ok {
				out = append(out, pruned)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return v, true
	}
}

// toTree 將具型別的節點轉成 map/slice 樹，數字保留原始表示
func toTree(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Marshal 節點 -> 樹 -> Prune -> JSON。map 的 key 排序固定，同樣輸入輸出相同位元組
func Marshal(v any) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, fmt.Errorf("jsonld: encode: %w", err)
	}
	pruned, ok := Prune(tree)
	if !ok {
		pruned = map[string]any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pruned); err != nil {
		return nil, fmt.Errorf("jsonld: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var htmlEscaper = strings.NewReplacer("<", `\u003c`, ">", `\u003e`, "&", `\u0026`)

// Sanitize 嵌入 HTML 前跳脫 < > &
func Sanitize(b []byte) []byte {
	return []byte(htmlEscaper.Replace(string(b)))
}

// ScriptTag 輸出可直接嵌入頁面的 <script type="application/ld+json">
func ScriptTag(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return `<script type="application/ld+json">` + string(Sanitize(b)) + `</script>`, nil
}

// ScriptTags 每份文件各自一個 script 區塊
func ScriptTags(docs []any) (string, error) {
	var sb strings.Builder
	for i, d := range docs {
		tag, err := ScriptTag(d)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(tag)
	}
	return sb.String(), nil
}
