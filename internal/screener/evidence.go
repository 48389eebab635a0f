package screener

// Stage 是漏斗状态机的分类结果，严格顺序推进，后一阶段以前一阶段通过为前提。
type Stage int

const (
	StageNotDeclined Stage = iota - 1 // 未出现深跌
	StageDeclined                     // 深跌确认
	StageHibernating                  // 横盘蛰伏确认
	StageLaunched                     // 拉升确认（终态）
)

func (s Stage) String() string {
	switch s {
	case StageNotDeclined:
		return "NOT_DECLINED"
	case StageDeclined:
		return "DECLINED"
	case StageHibernating:
		return "HIBERNATING"
	case StageLaunched:
		return "LAUNCHED"
	}
	return "UNKNOWN"
}

// Path 记录终态是从哪条路径达成的。
type Path string

const (
	PathNone     Path = "NONE"     // 未达终态
	PathWashout  Path = "WASHOUT"  // 挖坑后起涨
	PathPlatform Path = "PLATFORM" // 未挖坑，直接平台突破
)

// 证据记录里出现的阶段名。
const (
	EvidenceDeepDecline     = "deep_decline"
	EvidenceHibernation     = "hibernation"
	EvidenceWashout         = "washout"
	EvidenceLiftoffWashout  = "liftoff_washout"
	EvidenceLiftoffPlatform = "liftoff_platform"
)

// Evidence 是单个阶段检测的产出，创建后只读。
// 检测失败同样产出证据（Passed=false），供漏斗统计与阈值调参使用。
type Evidence struct {
	Stage   string             `json:"stage"`
	Passed  bool               `json:"passed"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Note    string             `json:"note,omitempty"`
}

func failEvidence(stage, note string, metrics map[string]float64) Evidence {
	return Evidence{Stage: stage, Passed: false, Note: note, Metrics: metrics}
}
