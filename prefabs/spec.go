package prefabs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// DecodeSpec re-decodes a loosely typed YAML value (an action argument, say) into T.
func DecodeSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

type FSMSpec struct {
	Initial     string                         `yaml:"initial"`
	States      map[string]FSMStateSpec        `yaml:"states"`
	Transitions map[string][]map[string]string `yaml:"transitions"`
	Global      []map[string]string            `yaml:"global"`
}

type FSMStateSpec struct {
	OnEnter []map[string]any `yaml:"on_enter"`
	OnTick  []map[string]any `yaml:"on_tick"`
	OnExit  []map[string]any `yaml:"on_exit"`
}

func LoadFSMSpec(filename string) (FSMSpec, error) {
	return LoadSpec[FSMSpec](filename)
}

type VecSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type EncounterSpec struct {
	Name     string        `yaml:"name"`
	Director string        `yaml:"director"`
	Origin   VecSpec       `yaml:"origin"`
	Arena    ArenaSpec     `yaml:"arena"`
	Pool     PoolSpec      `yaml:"pool"`
	Absorb   AbsorbSpec    `yaml:"absorb"`
	Volley   VolleySpec    `yaml:"volley"`
	Burst    BurstSpec     `yaml:"burst"`
	Patterns []PatternSpec `yaml:"patterns"`
}

func LoadEncounterSpec(filename string) (*EncounterSpec, error) {
	spec, err := LoadSpec[EncounterSpec](filename)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

type ArenaSpec struct {
	Width        float64    `yaml:"width"`
	Height       float64    `yaml:"height"`
	WallRadius   float64    `yaml:"wall_radius"`
	TargetRadius float64    `yaml:"target_radius"`
	Walls        []WallSpec `yaml:"walls"`
}

type WallSpec struct {
	A      VecSpec `yaml:"a"`
	B      VecSpec `yaml:"b"`
	Radius float64 `yaml:"radius"`
}

type PoolSpec struct {
	Size         int     `yaml:"size"`
	Growable     bool    `yaml:"growable"`
	MaxSize      int     `yaml:"max_size"`
	GraceDelay   float64 `yaml:"grace_delay"`
	DisperseTime float64 `yaml:"disperse_time"`
	Radius       float64 `yaml:"radius"`
}

type AbsorbSpec struct {
	SpawnInterval float64 `yaml:"spawn_interval"`
	Duration      float64 `yaml:"duration"`
	Cap           int     `yaml:"cap"`
	SpawnRadius   float64 `yaml:"spawn_radius"`
	Acceleration  float64 `yaml:"acceleration"`
	MaxSpeed      float64 `yaml:"max_speed"`
	ReachDistance float64 `yaml:"reach_distance"`
	Timeout       float64 `yaml:"timeout"`
	GrowthStep    float64 `yaml:"growth_step"`
	GrowthMax     float64 `yaml:"growth_max"`
}

type VolleySpec struct {
	Waves        int     `yaml:"waves"`
	PerWave      int     `yaml:"per_wave"`
	WaveInterval float64 `yaml:"wave_interval"`
	BaseAngleDeg float64 `yaml:"base_angle_deg"`
	AimAtTarget  bool    `yaml:"aim_at_target"`
	SpreadDeg    float64 `yaml:"spread_deg"`
	Speed        float64 `yaml:"speed"`
	SpeedJitter  float64 `yaml:"speed_jitter"`
	Timeout      float64 `yaml:"timeout"`
}

type BurstSpec struct {
	Rings           []RingSpec `yaml:"rings"`
	RingInterval    float64    `yaml:"ring_interval"`
	ReleaseDelay    float64    `yaml:"release_delay"`
	Speed           float64    `yaml:"speed"`
	InnerMultiplier float64    `yaml:"inner_multiplier"`
	OuterMultiplier float64    `yaml:"outer_multiplier"`
	Timeout         float64    `yaml:"timeout"`
}

type RingSpec struct {
	Count           int         `yaml:"count"`
	Radius          float64     `yaml:"radius"`
	SpeedMultiplier float64     `yaml:"speed_multiplier"`
	Motion          string      `yaml:"motion"`
	Orbit           OrbitSpec   `yaml:"orbit"`
	Reverse         ReverseSpec `yaml:"reverse"`
}

type OrbitSpec struct {
	AngularSpeedDeg float64 `yaml:"angular_speed_deg"`
	Duration        float64 `yaml:"duration"`
}

type ReverseSpec struct {
	InwardAccel    float64 `yaml:"inward_accel"`
	MaxInwardSpeed float64 `yaml:"max_inward_speed"`
	Duration       float64 `yaml:"duration"`
}

type PatternSpec struct {
	Name      string   `yaml:"name"`
	Phases    []string `yaml:"phases"`
	Weight    float64  `yaml:"weight"`
	MaxFires  int      `yaml:"max_fires"`
	MissedMax int      `yaml:"missed_max"`
}
