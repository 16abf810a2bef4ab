package services

import "math"

// 比赛制式
const (
	FormatT20 = "T20"
	FormatODI = "ODI"
)

// 胜率启发式参数。追分方所需跑分率超过 feasibleRunRate 视为完全不可行。
const (
	feasibleRunRate = 12.0

	weightPressure  = 0.4
	weightWickets   = 0.3
	weightRunRate   = 0.3

	probFloor   = 5.0
	probCeiling = 95.0
)

// StrikeRate 每 100 球得分率，balls 为 0 时返回 0
func StrikeRate(runs, balls int) float64 {
	if balls == 0 {
		return 0
	}
	return float64(runs) / float64(balls) * 100
}

// BattingAverage 击球平均。未出局（dismissals=0）按惯例返回总得分
func BattingAverage(runs, dismissals int) float64 {
	if dismissals == 0 {
		return float64(runs)
	}
	return float64(runs) / float64(dismissals)
}

// EconomyRate 每轮失分率，overs 为板球记法
func EconomyRate(runsConceded int, overs float64) float64 {
	decimal := oversToDecimal(overs)
	if decimal == 0 {
		return 0
	}
	return float64(runsConceded) / decimal
}

// BowlingAverage 每个三柱门的失分，wickets 为 0 时返回 0
func BowlingAverage(runsConceded, wickets int) float64 {
	if wickets == 0 {
		return 0
	}
	return float64(runsConceded) / float64(wickets)
}

// OversToBalls 板球记法转球数: 12.4 = 12*6+4 = 76 球
func OversToBalls(overs float64) int {
	whole := math.Floor(overs)
	balls := math.Round((overs - whole) * 10)
	return int(whole)*6 + int(balls)
}

// BallsToOvers 球数转板球记法: 76 球 = 12.4
func BallsToOvers(balls int) float64 {
	if balls <= 0 {
		return 0
	}
	return float64(balls/6) + float64(balls%6)/10
}

// oversToDecimal 板球记法转十进制轮数: 12.4 -> 12.6667
func oversToDecimal(overs float64) float64 {
	return float64(OversToBalls(overs)) / 6
}

// NetRunRate 净跑分率 = 得分率 - 失分率，轮数为十进制
func NetRunRate(runsScored int, oversPlayed float64, runsConceded int, oversFaced float64) float64 {
	var scored, conceded float64
	if oversPlayed > 0 {
		scored = float64(runsScored) / oversPlayed
	}
	if oversFaced > 0 {
		conceded = float64(runsConceded) / oversFaced
	}
	return scored - conceded
}

// RequiredRunRate 追分所需跑分率。oversRemaining 为十进制轮数（剩余球数/6），
// 小于等于 0 时返回 0
func RequiredRunRate(target, currentRuns int, oversRemaining float64) float64 {
	if oversRemaining <= 0 {
		return 0
	}
	needed := float64(target - currentRuns)
	if needed <= 0 {
		return 0
	}
	return needed / oversRemaining
}

// CurrentRunRate 当前跑分率，currentOvers 为十进制轮数
func CurrentRunRate(currentRuns int, currentOvers float64) float64 {
	if currentOvers <= 0 {
		return 0
	}
	return float64(currentRuns) / currentOvers
}

// ProjectedScore 按当前跑分率线性外推总分
func ProjectedScore(currentRuns int, currentOvers, totalOvers float64) int {
	if currentOvers <= 0 {
		return 0
	}
	return int(math.Round(float64(currentRuns) / currentOvers * totalOvers))
}

// IsPowerplay 是否处于强制进攻时段: T20 前 6 轮，ODI 前 10 轮
func IsPowerplay(over int, format string) bool {
	switch format {
	case FormatODI:
		return over < 10
	default:
		return over < 6
	}
}

// IsDeathOvers 是否处于死亡轮段: T20 第 16 轮起，ODI 第 40 轮起
func IsDeathOvers(over int, format string) bool {
	switch format {
	case FormatODI:
		return over >= 40
	default:
		return over >= 16
	}
}

// ChaseWinProbability 第二局追分方胜率启发式估计，返回 [5, 95] 内的百分比。
// 三个归一化信号加权:
//
//	pressure    还需得分占目标比例（越小越有利）
//	wickets     剩余三柱门比例
//	feasibility 所需跑分率相对可行上限
func ChaseWinProbability(target, currentRuns, wicketsLost int, oversRemaining float64) float64 {
	if target <= 0 {
		return 50
	}
	if currentRuns >= target {
		return probCeiling
	}
	if wicketsLost >= 10 || oversRemaining <= 0 {
		return probFloor
	}

	pressure := float64(target-currentRuns) / float64(target)
	pressure = clamp01(pressure)

	wickets := float64(10-wicketsLost) / 10

	rrr := RequiredRunRate(target, currentRuns, oversRemaining)
	feasibility := clamp01(1 - rrr/feasibleRunRate)

	prob := (weightPressure*(1-pressure) + weightWickets*wickets + weightRunRate*feasibility) * 100
	return clampProb(prob)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampProb(p float64) float64 {
	if p < probFloor {
		return probFloor
	}
	if p > probCeiling {
		return probCeiling
	}
	return p
}
