package autosave

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Snapshot 是一条记录的 JSON 归一化形式：顶层 key 为线上字段名，
// 值只包含 map[string]any / []any / float64 / string / bool / nil。
type Snapshot map[string]any

// Patch 是需要发送给服务端的最小字段集合。
type Patch map[string]any

// SnapshotOf 把任意可 JSON 编码的值归一化为 Snapshot。
func SnapshotOf(v any) (Snapshot, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot must be a json object: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// Normalize 把单个字段值转换为与 Snapshot 一致的表示，便于结构化比较。
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return out, nil
}

// Diff 比较已确认快照 prev 与候选快照 next。
// 按顶层 key 浅比较，值做结构化深比较；任一部分不同则整体放入 patch。
// prev 为 nil 视为首次编辑，返回 next 的完整拷贝。next 中缺失的 key 视为未编辑。
func Diff(prev, next Snapshot) (Patch, bool) {
	if prev == nil {
		patch := make(Patch, len(next))
		for k, v := range next {
			patch[k] = v
		}
		return patch, true
	}

	patch := Patch{}
	for k, v := range next {
		old, ok := prev[k]
		if ok && Equal(old, v) {
			continue
		}
		patch[k] = v
	}
	return patch, len(patch) > 0
}

// Equal 对归一化后的值做结构化比较。
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Keys 返回 patch 中的字段名。
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}
