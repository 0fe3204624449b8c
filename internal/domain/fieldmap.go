package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind 是 FieldMap 中值的类型标签。
type Kind uint8

const (
	KindString Kind = iota + 1
	KindList        // 有序字符串序列
	KindMap         // 嵌套命名空间（例如 details / box_office）
	KindTable       // 有序记录序列（例如 cast 的每一行）
)

// Value 是 FieldMap 的值：string | []string | FieldMap | []FieldMap 的 tagged union。
// 零值表示“没有值”，不会被任何 extractor 写入。
type Value struct {
	kind Kind
	s    string
	list []string
	m    FieldMap
	rows []FieldMap
}

func String(s string) Value { return Value{kind: KindString, s: s} }

func List(xs ...string) Value {
	return Value{kind: KindList, list: append([]string(nil), xs...)}
}

func Map(m FieldMap) Value { return Value{kind: KindMap, m: m} }

func Table(rows ...FieldMap) Value {
	return Value{kind: KindTable, rows: append([]FieldMap(nil), rows...)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Strings() ([]string, bool) { return v.list, v.kind == KindList }

func (v Value) Fields() (FieldMap, bool) { return v.m, v.kind == KindMap }

func (v Value) Rows() ([]FieldMap, bool) { return v.rows, v.kind == KindTable }

// Empty 报告该值是否不携带任何信息（空串、空序列、空命名空间）。
func (v Value) Empty() bool {
	switch v.kind {
	case KindString:
		return v.s == ""
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return len(v.m) == 0
	case KindTable:
		return len(v.rows) == 0
	default:
		return true
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		return List(v.list...)
	case KindMap:
		return Map(v.m.Clone())
	case KindTable:
		rows := make([]FieldMap, 0, len(v.rows))
		for _, r := range v.rows {
			rows = append(rows, r.Clone())
		}
		return Value{kind: KindTable, rows: rows}
	default:
		return v
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	case KindTable:
		if v.rows == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.rows)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON 按 JSON 形态还原类型标签：
// string → KindString；字符串数组 → KindList；对象 → KindMap；对象数组 → KindTable。
// 数字/布尔值按原文存为字符串，null 还原为零值。
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = String(s)
	case '{':
		var m FieldMap
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		*v = Map(m)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw[0]), []byte("{")) {
			var rows []FieldMap
			if err := json.Unmarshal(b, &rows); err != nil {
				return err
			}
			*v = Table(rows...)
			return nil
		}
		list := make([]string, 0, len(raw))
		for _, r := range raw {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return fmt.Errorf("list 元素不是字符串：%s", string(r))
			}
			list = append(list, s)
		}
		*v = List(list...)
	default:
		*v = String(string(b))
	}
	return nil
}

// FieldMap 是单个 extractor 的局部结果：字段名 → Value。
// 缺失的字段直接不出现，不使用占位空值。
type FieldMap map[string]Value

// SetString 写入非空字符串；空串被忽略（缺失即不出现）。
func (m FieldMap) SetString(key, s string) {
	if s == "" {
		return
	}
	m[key] = String(s)
}

// SetList 写入非空序列。
func (m FieldMap) SetList(key string, xs []string) {
	if len(xs) == 0 {
		return
	}
	m[key] = List(xs...)
}

// SetMap 写入非空命名空间。
func (m FieldMap) SetMap(key string, sub FieldMap) {
	if len(sub) == 0 {
		return
	}
	m[key] = Map(sub)
}

func (m FieldMap) String(key string) string {
	s, _ := m[key].Str()
	return s
}

func (m FieldMap) Strings(key string) []string {
	xs, _ := m[key].Strings()
	return xs
}

func (m FieldMap) Sub(key string) FieldMap {
	sub, _ := m[key].Fields()
	return sub
}

func (m FieldMap) Rows(key string) []FieldMap {
	rows, _ := m[key].Rows()
	return rows
}

func (m FieldMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys 返回排序后的 key 列表（用于稳定输出与日志）。
func (m FieldMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone 深拷贝。nil 返回 nil。
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return nil
	}
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

// MergeAdditive 把 b 合并进 a 的副本并返回，a/b 本身不被修改。
//
// 规则：
// - b 中 a 没有的 key：加入
// - 同一个 key 两边都是 KindMap：递归合并该命名空间
// - 其它冲突：保留 a（先运行的 extractor 优先，后来者永远不覆盖）
func MergeAdditive(a, b FieldMap) FieldMap {
	out := a.Clone()
	if out == nil {
		out = make(FieldMap, len(b))
	}
	for k, bv := range b {
		av, ok := out[k]
		if !ok {
			out[k] = bv.clone()
			continue
		}
		am, aok := av.Fields()
		bm, bok := bv.Fields()
		if aok && bok {
			out[k] = Map(MergeAdditive(am, bm))
		}
	}
	return out
}
