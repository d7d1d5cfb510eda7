//go:build race

package application

// race ビルドでは計測用の確保が入るため、アロケーション検査を飛ばします。
const raceEnabled = true
