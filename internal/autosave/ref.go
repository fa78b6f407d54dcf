package autosave

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

const tempIDPrefix = "tmp_"

// Ref 标识列表中的一个条目：尚未落库的 Pending 或已有服务端 id 的 Persisted。
type Ref interface {
	isRef()
	String() string
}

// Pending 只存在于本地状态，TempID 永远不会发送给服务端。
type Pending struct {
	TempID string
}

// Persisted 已经被服务端确认。
type Persisted struct {
	ID uint
}

func (Pending) isRef()   {}
func (Persisted) isRef() {}

func (p Pending) String() string   { return p.TempID }
func (p Persisted) String() string { return fmt.Sprintf("%d", p.ID) }

// NewTempID 生成本地占位 id。
func NewTempID() string {
	return tempIDPrefix + ulid.Make().String()
}

// MatchRef 对两种情况分别处理；ref 为 nil 时 panic。
func MatchRef[R any](ref Ref, pending func(Pending) R, persisted func(Persisted) R) R {
	switch r := ref.(type) {
	case Pending:
		return pending(r)
	case Persisted:
		return persisted(r)
	default:
		panic(fmt.Sprintf("autosave: unexpected ref %T", ref))
	}
}

func sameRef(a, b Ref) bool {
	switch x := a.(type) {
	case Pending:
		y, ok := b.(Pending)
		return ok && x.TempID == y.TempID
	case Persisted:
		y, ok := b.(Persisted)
		return ok && x.ID == y.ID
	}
	return false
}
