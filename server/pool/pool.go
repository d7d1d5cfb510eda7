// Package pool は短命なシミュレーションオブジェクトをアロケーションなしで再利用します。
package pool

// Pool はファクトリ付きの空きインスタンスのフリーリストです。
//
// Pool は並行利用に対応していません。払い出したオブジェクトを所有するゴルーチンが所有してください。
type Pool[T any] struct {
	idle    []T
	factory func() T
}

// New は空のときに factory でインスタンスを生成する Pool を作ります。
func New[T any](factory func() T) *Pool[T] {
	return &Pool[T]{factory: factory}
}

// Acquire は最後に返却されたインスタンスを返します。空なら新しく生成します。失敗しません。
func (p *Pool[T]) Acquire() T {
	n := len(p.idle)
	if n == 0 {
		return p.factory()
	}
	v := p.idle[n-1]
	var zero T
	p.idle[n-1] = zero
	p.idle = p.idle[:n-1]
	return v
}

// Release は v をプールへ返却します。返却後の v は使わないでください。二重返却は呼び出し側の誤りです。
func (p *Pool[T]) Release(v T) {
	p.idle = append(p.idle, v)
}

// Len は空きインスタンスの数を返します。
func (p *Pool[T]) Len() int {
	return len(p.idle)
}
