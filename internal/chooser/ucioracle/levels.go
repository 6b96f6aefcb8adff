package ucioracle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Level is a difficulty profile: engine options, search limits and how strongly the
// top-ranked candidate is preferred over the runners-up.
type Level struct {
	Name           string
	SkillLevel     int
	Elo            int
	Threads        int
	HashMB         int
	MoveTimeMillis int
	DepthCap       int
	MultiPV        int
	Weights        []float64
}

const defaultThreads = 2

var levels = map[string]Level{
	"level1": {Name: "level1", SkillLevel: 0, Elo: 0, Threads: defaultThreads, HashMB: 16, MoveTimeMillis: 20, DepthCap: 5, MultiPV: 3, Weights: []float64{0.5, 0.3, 0.2}},
	"level2": {Name: "level2", SkillLevel: 0, Elo: 0, Threads: defaultThreads, HashMB: 16, MoveTimeMillis: 60, DepthCap: 6, MultiPV: 3, Weights: []float64{0.6, 0.3, 0.1}},
	"level3": {Name: "level3", SkillLevel: 1, Elo: 0, Threads: defaultThreads, HashMB: 24, MoveTimeMillis: 80, DepthCap: 8, MultiPV: 3, Weights: []float64{0.7, 0.2, 0.1}},
	"level4": {Name: "level4", SkillLevel: 3, Elo: 1350, Threads: defaultThreads, HashMB: 32, MoveTimeMillis: 140, DepthCap: 10, MultiPV: 3, Weights: []float64{0.65, 0.25, 0.1}},
	"level5": {Name: "level5", SkillLevel: 7, Elo: 1500, Threads: defaultThreads, HashMB: 48, MoveTimeMillis: 200, DepthCap: 12, MultiPV: 3, Weights: []float64{0.7, 0.2, 0.1}},
	"level6": {Name: "level6", SkillLevel: 11, Elo: 1700, Threads: defaultThreads, HashMB: 64, MoveTimeMillis: 300, DepthCap: 16, MultiPV: 2, Weights: []float64{0.8, 0.2}},
	"level7": {Name: "level7", SkillLevel: 16, Elo: 2000, Threads: defaultThreads, HashMB: 96, MoveTimeMillis: 500, DepthCap: 20, MultiPV: 2, Weights: []float64{0.85, 0.15}},
	"level8": {Name: "level8", SkillLevel: 20, Elo: 0, Threads: 6, HashMB: 128, MoveTimeMillis: 1000, DepthCap: 30, MultiPV: 1, Weights: []float64{1.0}},
}

var levelAliases = map[string]string{
	"beginner":     "level1",
	"intermediate": "level5",
	"advanced":     "level7",
	"master":       "level8",
}

// LookupLevel resolves "level1".."level8", a bare digit, or one of the named aliases.
func LookupLevel(name string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "level3"
	}
	if alias, ok := levelAliases[key]; ok {
		key = alias
	}
	if _, err := strconv.Atoi(key); err == nil {
		key = "level" + key
	}
	l, ok := levels[key]
	if !ok {
		return Level{}, fmt.Errorf("unknown difficulty level: %s", name)
	}
	l.Weights = append([]float64(nil), l.Weights...)
	return l, nil
}

func (l Level) Validate() error {
	switch {
	case l.SkillLevel < 0 || l.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", l.SkillLevel)
	case l.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", l.HashMB)
	case l.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", l.MultiPV)
	case l.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", l.Elo)
	case len(l.Weights) == 0:
		return fmt.Errorf("candidate weights must not be empty")
	case l.MoveTimeMillis < 0 || l.DepthCap < 0:
		return fmt.Errorf("search limits must be >= 0")
	}
	sum := 0.0
	for i, w := range l.Weights {
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	return nil
}

// GoTokens builds the "go depth N movetime M" command.
func (l Level) GoTokens() ([]string, error) {
	args := []string{"go"}
	if l.DepthCap > 0 {
		args = append(args, "depth", strconv.Itoa(l.DepthCap))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("level %s does not define search limits", l.Name)
	}
	return args, nil
}

// SearchTimeout bounds how long a single search may take to report bestmove.
func (l Level) SearchTimeout() time.Duration {
	if l.MoveTimeMillis > 0 {
		return time.Duration(l.MoveTimeMillis+2000) * time.Millisecond * 3
	}
	if l.DepthCap > 0 {
		base := time.Duration(l.DepthCap) * 300 * time.Millisecond
		return min(max(base, 6*time.Second), 20*time.Second)
	}
	return 6 * time.Second
}

func (l Level) key() string {
	return fmt.Sprintf("thr=%d|skill=%d|hash=%d|multipv=%d|elo=%d", l.Threads, l.SkillLevel, l.HashMB, l.MultiPV, l.Elo)
}
