//go:build race

package pool

// race ビルドでは計測用の確保が入るため、アロケーション検査を飛ばします。
const raceEnabled = true
