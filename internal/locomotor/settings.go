package locomotor

import (
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// MovementSettings controls how the body follows the root goal.
// Speeds are in world units per second, phase speeds in cycles per second.
type MovementSettings struct {
	SpeedMin                float32 `yaml:"speed_min"`
	SpeedMax                float32 `yaml:"speed_max"`
	Acceleration            float32 `yaml:"acceleration"`
	Deceleration            float32 `yaml:"deceleration"`
	PhaseSpeedMin           float32 `yaml:"phase_speed_min"`
	PhaseSpeedMax           float32 `yaml:"phase_speed_max"`
	GoalCatchUpTime         float32 `yaml:"goal_catch_up_time"`
	StopDistance            float32 `yaml:"stop_distance"`
	RotationDampingHalfLife float32 `yaml:"rotation_damping_half_life"`
}

// StepSettings controls the shape and timing of individual steps.
// MinStepAngle is in degrees.
type StepSettings struct {
	PercentOfStrideInAir     float32 `yaml:"percent_of_stride_in_air"`
	AirExtensionAtMaxSpeed   float32 `yaml:"air_extension_at_max_speed"`
	StepHeight               float32 `yaml:"step_height"`
	StepEaseIn               float32 `yaml:"step_ease_in"`
	StepEaseOut              float32 `yaml:"step_ease_out"`
	MinStepDistance          float32 `yaml:"min_step_distance"`
	MinStepAngle             float32 `yaml:"min_step_angle"`
	EnableFootCollision      bool    `yaml:"enable_foot_collision"`
	FootCollisionGlobalScale float32 `yaml:"foot_collision_global_scale"`
	EnableGroundCollision    bool    `yaml:"enable_ground_collision"`
	OrientFootToGroundPitch  float32 `yaml:"orient_foot_to_ground_pitch"`
	OrientFootToGroundRoll   float32 `yaml:"orient_foot_to_ground_roll"`
}

// PelvisSettings controls the secondary motion of the pelvis.
type PelvisSettings struct {
	BlendToFeet             float32 `yaml:"blend_to_feet"`
	FeetDampingHalfLife     float32 `yaml:"feet_damping_half_life"`
	LeadAmount              float32 `yaml:"lead_amount"`
	LeadDampingHalfLife     float32 `yaml:"lead_damping_half_life"`
	BobOffset               float32 `yaml:"bob_offset"`
	BobStiffness            float32 `yaml:"bob_stiffness"`
	BobDamping              float32 `yaml:"bob_damping"`
	PositionStiffness       float32 `yaml:"position_stiffness"`
	RotationDampingHalfLife float32 `yaml:"rotation_damping_half_life"`
	OrientToGroundPitch     float32 `yaml:"orient_to_ground_pitch"`
	OrientToGroundRoll      float32 `yaml:"orient_to_ground_roll"`
}

// FootSettings are the static per-foot parameters. MaxHeelPeel is in degrees.
// LocalOffset moves the collision and ground probe point off the foot origin.
type FootSettings struct {
	CollisionRadius float32   `yaml:"collision_radius"`
	MaxHeelPeel     float32   `yaml:"max_heel_peel"`
	LocalOffset     math.Vec3 `yaml:"local_offset"`
}

// InputSettings is everything RunSimulation needs for one tick.
type InputSettings struct {
	DeltaTime     float32
	RootGoalWorld math.Transform
	Movement      MovementSettings
	Step          StepSettings
	Pelvis        PelvisSettings
	// Ground is optional; nil disables ground collision.
	Ground GroundProbe
}

// GroundHit is the result of a ground query.
type GroundHit struct {
	Height float32
	Normal math.Vec3
}

// GroundProbe answers height and normal queries at a planar position.
type GroundProbe interface {
	Probe(x, z float32) (GroundHit, bool)
}

// DefaultMovementSettings returns settings for an adult walking biped in meters.
func DefaultMovementSettings() MovementSettings {
	return MovementSettings{
		SpeedMin:                0.2,
		SpeedMax:                2.5,
		Acceleration:            4.0,
		Deceleration:            6.0,
		PhaseSpeedMin:           0.8,
		PhaseSpeedMax:           1.6,
		GoalCatchUpTime:         0.5,
		StopDistance:            0.02,
		RotationDampingHalfLife: 0.1,
	}
}

// DefaultStepSettings returns step settings matching DefaultMovementSettings.
func DefaultStepSettings() StepSettings {
	return StepSettings{
		PercentOfStrideInAir:     0.4,
		AirExtensionAtMaxSpeed:   0.1,
		StepHeight:               0.12,
		StepEaseIn:               0.3,
		StepEaseOut:              0.3,
		MinStepDistance:          0.05,
		MinStepAngle:             10,
		EnableFootCollision:      true,
		FootCollisionGlobalScale: 1,
		EnableGroundCollision:    true,
		OrientFootToGroundPitch:  1,
		OrientFootToGroundRoll:   1,
	}
}

// DefaultPelvisSettings returns pelvis settings matching DefaultMovementSettings.
func DefaultPelvisSettings() PelvisSettings {
	return PelvisSettings{
		BlendToFeet:             0.5,
		FeetDampingHalfLife:     0.1,
		LeadAmount:              0.1,
		LeadDampingHalfLife:     0.2,
		BobOffset:               0.03,
		BobStiffness:            80,
		BobDamping:              0.5,
		PositionStiffness:       200,
		RotationDampingHalfLife: 0.1,
		OrientToGroundPitch:     0.5,
		OrientToGroundRoll:      0.5,
	}
}

// DefaultFootSettings returns settings for an adult foot in meters.
func DefaultFootSettings() FootSettings {
	return FootSettings{
		CollisionRadius: 0.08,
		MaxHeelPeel:     20,
	}
}

// speedNorm maps speed into [0,1] over [SpeedMin, SpeedMax].
func (m MovementSettings) speedNorm(speed float32) float32 {
	span := m.SpeedMax - m.SpeedMin
	if span <= 0 {
		return 0
	}
	return math.Clamp((speed-m.SpeedMin)/span, 0, 1)
}

// phaseSpeed returns the stride frequency for the given speed.
func (m MovementSettings) phaseSpeed(speed float32) float32 {
	return math.Lerp(m.PhaseSpeedMin, m.PhaseSpeedMax, m.speedNorm(speed))
}

// airWindow is the share of the stride a foot spends in the air.
func (s StepSettings) airWindow(speedNorm float32) float32 {
	a := s.PercentOfStrideInAir + s.AirExtensionAtMaxSpeed*speedNorm
	return math.Clamp(a, 0, maxAirWindow)
}

const maxAirWindow = 0.95
