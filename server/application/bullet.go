package application

import (
	"sync/atomic"

	"shooter/server/pool"
)

var bulletIDs atomic.Uint64

// Bullet は一方向に飛ぶ弾丸です。ID はプールで再利用されても変わりません。
type Bullet struct {
	ID        uint64
	X         float64
	Direction Direction
}

func newBullet() *Bullet {
	return &Bullet{ID: bulletIDs.Add(1), Direction: DirectionLeft}
}

// Reset は再取得した弾丸の位置と向きを設定し直します。
func (b *Bullet) Reset(x float64, dir Direction) *Bullet {
	b.X = x
	b.Direction = dir
	return b
}

// NewBulletPool は弾丸用のプールを生成します。
func NewBulletPool() *pool.Pool[*Bullet] {
	return pool.New(newBullet)
}
