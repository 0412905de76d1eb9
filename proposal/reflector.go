package proposal

import (
	"math"

	"gonum.org/v1/gonum/floats"

	hops "github.com/modsim/hops-sub002"
)

// reflectionTolerance is the slack below which a face counts as hit.
const reflectionTolerance = 1e-15

// Reflection is the outcome of Reflect.
type Reflection struct {
	Point []float64
	// Direction is the unit direction of travel on arrival at Point.
	Direction   []float64
	Reflections int
	// Complete is false if the trajectory was cut short by the reflection
	// cap. Point is then the last reflection point, which lies on a face.
	Complete bool
}

// Reflect follows the straight line from start towards end and reflects it
// specularly off every face of p it reaches, until the length of the
// original segment has been travelled or maxReflections faces were hit.
// start must lie strictly inside p.
func Reflect(p *hops.Polytope, start, end []float64, maxReflections int) Reflection {
	m, n := p.Dims()
	point := append([]float64(nil), start...)
	dir := make([]float64, n)
	floats.SubTo(dir, end, start)
	total := floats.Norm(dir, 2)
	if total == 0 {
		return Reflection{Point: point, Direction: dir, Complete: true}
	}
	floats.Scale(1/total, dir)

	rows := make([][]float64, m)
	rowNorm2 := make([]float64, m)
	for i := range rows {
		rows[i] = p.Row(nil, i)
		rowNorm2[i] = floats.Dot(rows[i], rows[i])
	}
	slack := p.Slack(nil, start)
	active := make([]bool, m)
	for i := range active {
		active[i] = true
	}
	proj := make([]float64, m)

	remaining := total
	// Kahan-compensated sum of the distance travelled between reflections.
	var travelled, compensation float64
	var reflections int
	for {
		p.MulVec(proj, dir)
		toBorder := math.Inf(1)
		for i, t := range proj {
			if !active[i] || t <= 0 {
				continue
			}
			if d := slack[i] / t; d < toBorder {
				toBorder = d
			}
		}
		if remaining < toBorder {
			floats.AddScaled(point, remaining, dir)
			return Reflection{Point: point, Direction: dir, Reflections: reflections, Complete: true}
		}
		if reflections >= maxReflections {
			return Reflection{Point: point, Direction: dir, Reflections: reflections}
		}
		reflections++
		y := toBorder - compensation
		t := travelled + y
		compensation = (t - travelled) - y
		travelled = t
		remaining = total - travelled

		floats.AddScaled(point, toBorder, dir)
		floats.AddScaled(slack, -toBorder, proj)
		for i, s := range slack {
			if s <= reflectionTolerance {
				active[i] = false
				floats.AddScaled(dir, -2*floats.Dot(dir, rows[i])/rowNorm2[i], rows[i])
			} else {
				active[i] = true
			}
		}
	}
}
