package input

import (
	"math"
	"math/rand"
	"time"
)

// Waypoint is one step along a WindMouse path: the target cursor position
// and how long to sleep before moving on to it.
type Waypoint struct {
	X, Y int
	Wait float64 // seconds
}

const (
	windMouseGravity    = 9.0
	windMouseWind       = 3.0
	windMouseMinWait    = 1.0
	windMouseMaxWait    = 2.0
	windMouseMaxStep    = 60.0
	windMouseTargetArea = 15.0
)

// randMouseSpeed draws a speed uniformly from [30, 40), matching the
// original generator's `rng.random::<f64>() * 10.0 + 30.0`.
func randMouseSpeed(rng *rand.Rand) float64 {
	s := rng.Float64()*10.0 + 30.0
	if s < 1.0 {
		s = 1.0
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WindMousePoints generates a human-like curved path of waypoints from
// (startX, startY) to (endX, endY) using the WindMouse algorithm: a
// gravity term pulls the cursor toward the target while a wind term
// perturbs it, producing organic overshoot and correction instead of a
// straight line.
func WindMousePoints(startX, startY, endX, endY int) []Waypoint {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var (
		cx, cy     = float64(startX), float64(startY)
		vx, vy     float64
		wx, wy     float64
		sqrt3      = math.Sqrt(3)
		sqrt5      = math.Sqrt(5)
		sqrt2      = math.Sqrt(2)
		mouseSpeed = randMouseSpeed(rng)
		points     []Waypoint
	)

	for {
		dx := float64(endX) - cx
		dy := float64(endY) - cy
		dist := math.Hypot(dx, dy)
		if dist < 1.0 {
			break
		}

		if dist >= windMouseTargetArea {
			wx = wx/sqrt3 + (rng.Float64()*windMouseWind*2-windMouseWind)/sqrt5
			wy = wy/sqrt3 + (rng.Float64()*windMouseWind*2-windMouseWind)/sqrt5
		} else {
			wx /= sqrt2
			wy /= sqrt2
			if windMouseMaxStep >= 3.0 {
				factor := rng.Float64()*3 + 3
				wx += (factor * (rng.Float64()*2 - 1)) / math.Max(dist, 0.1)
				wy += (factor * (rng.Float64()*2 - 1)) / math.Max(dist, 0.1)
			}
		}

		vx += wx + windMouseGravity*dx/dist
		vy += wy + windMouseGravity*dy/dist

		step := math.Min(windMouseMaxStep, dist)
		speed := math.Hypot(vx, vy)
		if speed > step {
			jitter := rng.Float64()*0.2 + 0.9
			ratio := step / speed * jitter
			vx *= ratio
			vy *= ratio
		}

		cx += vx
		cy += vy

		wait := clamp(math.Round(dist/mouseSpeed), windMouseMinWait, windMouseMaxWait)
		points = append(points, Waypoint{
			X:    int(math.Round(cx)),
			Y:    int(math.Round(cy)),
			Wait: wait,
		})
	}

	return points
}
