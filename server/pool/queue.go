package pool

const minQueueSize = 8

// Queue は伸長可能な FIFO リングバッファです。
// バッファは縮まないので、作業サイズに達した後はアロケーションしません。
type Queue[T any] struct {
	buf  []T
	head int
	size int
}

// NewQueue は capacity 個以上を格納できるキューを生成します。
func NewQueue[T any](capacity int) *Queue[T] {
	size := minQueueSize
	for size < capacity {
		size <<= 1
	}
	return &Queue[T]{buf: make([]T, size)}
}

// Push は末尾に v を追加します。
func (q *Queue[T]) Push(v T) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)&(len(q.buf)-1)] = v
	q.size++
}

// Pop は先頭の要素を取り出します。
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) & (len(q.buf) - 1)
	q.size--
	return v, true
}

// Peek は先頭の要素を取り出さずに返します。
func (q *Queue[T]) Peek() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.head], true
}

// Len は格納中の要素数を返します。
func (q *Queue[T]) Len() int {
	return q.size
}

// Each は先頭から末尾の順に全要素で fn を呼びます。
func (q *Queue[T]) Each(fn func(T)) {
	mask := len(q.buf) - 1
	for i := 0; i < q.size; i++ {
		fn(q.buf[(q.head+i)&mask])
	}
}

// Clear はキューを空にし、取り除いた要素を FIFO 順に fn へ渡します。fn は nil でも構いません。
func (q *Queue[T]) Clear(fn func(T)) {
	for q.size > 0 {
		v, _ := q.Pop()
		if fn != nil {
			fn(v)
		}
	}
	q.head = 0
}

func (q *Queue[T]) grow() {
	size := len(q.buf) << 1
	if size == 0 {
		size = minQueueSize
	}
	buf := make([]T, size)
	if q.size > 0 {
		mask := len(q.buf) - 1
		for i := 0; i < q.size; i++ {
			buf[i] = q.buf[(q.head+i)&mask]
		}
	}
	q.buf = buf
	q.head = 0
}
