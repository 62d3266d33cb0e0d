package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraNearPlane float32 = 1.0
	cameraFarPlane  float32 = 100.0
)

// Angular motion, radians per second.
const (
	turnDeadzone float32 = 0.01
	turnMaxSpeed float32 = 3.0
	turnAccel    float32 = 4.0
	turnDecel    float32 = 10.0
)

// Linear motion, units per second.
const (
	moveDeadzone        float32 = 0.01
	moveMaxSpeed        float32 = 8.0
	moveMaxReverseSpeed float32 = -3.0
	moveAccel           float32 = 9.0
	moveDecel           float32 = 25.0
)

// PlayerCamera moves forward, backward and turns in response to user input.
// Both speeds accelerate towards a maximum while input is held and decay
// back to zero once it is released.
type PlayerCamera struct {
	speed        float32
	angularSpeed float32
	rotation     float32
	position     mgl32.Vec3
	projection   mgl32.Mat4
}

func NewPlayerCamera(x, y, z, angleRad float32) *PlayerCamera {
	return &PlayerCamera{
		rotation:   angleRad,
		position:   mgl32.Vec3{x, y, z},
		projection: vulkanPerspective(1.0, cameraNearPlane, cameraFarPlane),
	}
}

// vulkanPerspective maps view space depth [near, far] to [0, 1] with +Z into
// the screen, as Vulkan clip space expects.
func vulkanPerspective(aspectRatio, near, far float32) mgl32.Mat4 {
	halfWidth := aspectRatio
	halfHeight := float32(1.0)
	return mgl32.Mat4{
		near / halfWidth, 0, 0, 0,
		0, near / halfHeight, 0, 0,
		0, 0, far / (far - near), 1,
		0, 0, (-far * near) / (far - near), 0,
	}
}

func (c *PlayerCamera) Position() mgl32.Vec3 {
	return c.position
}

func (c *PlayerCamera) Rotation() float32 {
	return c.rotation
}

func (c *PlayerCamera) ViewMatrix() mgl32.Mat4 {
	rotation := mgl32.HomogRotate3DY(c.rotation)
	translation := mgl32.Translate3D(-c.position.X(), -c.position.Y(), -c.position.Z())
	return rotation.Mul4(translation)
}

func (c *PlayerCamera) ProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

// Update moves the camera. dx turns, dy moves along the view direction.
func (c *PlayerCamera) Update(timeStepMillis uint64, dx, dy float32) {
	step := 0.001 * float32(timeStepMillis)

	c.angularSpeed = nextTurnSpeed(c.angularSpeed, dx, step)
	c.rotation += c.angularSpeed * step
	if c.rotation > 2*math.Pi {
		c.rotation -= 2 * math.Pi
	}
	if c.rotation < -2*math.Pi {
		c.rotation += 2 * math.Pi
	}

	c.speed = nextMoveSpeed(c.speed, dy, step)
	sin, cos := math.Sincos(float64(c.rotation))
	c.position[0] -= c.speed * step * float32(sin)
	c.position[2] += c.speed * step * float32(cos)
}

// Turning right (positive dx) is a negative angular speed.
func nextTurnSpeed(speed, dx, step float32) float32 {
	accelerate := func() float32 {
		return mgl32.Clamp(speed-turnAccel*step*dx, -turnMaxSpeed, turnMaxSpeed)
	}
	switch {
	case speed == 0:
		return accelerate()
	case speed > 0:
		if dx > -turnDeadzone {
			return max(speed-turnDecel*step, 0)
		}
		return accelerate()
	default:
		if dx < turnDeadzone {
			return min(speed+turnDecel*step, 0)
		}
		return accelerate()
	}
}

func nextMoveSpeed(speed, dy, step float32) float32 {
	accelerate := func() float32 {
		return mgl32.Clamp(speed+moveAccel*step*dy, moveMaxReverseSpeed, moveMaxSpeed)
	}
	switch {
	case speed == 0:
		return accelerate()
	case speed > 0:
		if dy < moveDeadzone {
			return max(speed-moveDecel*step, 0)
		}
		return accelerate()
	default:
		if dy > -moveDeadzone {
			return min(speed+moveDecel*step, 0)
		}
		return accelerate()
	}
}
