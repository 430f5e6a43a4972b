package expr

import (
	"errors"
	"math"
	"sort"
)

// ErrNoLimit is returned when the approach sequence does not settle
var ErrNoLimit = errors.New("el límite no existe o no converge numéricamente")

// ErrOneSidedMismatch is returned when left and right limits differ
var ErrOneSidedMismatch = errors.New("los límites laterales no coinciden")

// Limit estimates the limit of n as v approaches at. dir is +1 for the
// right-hand limit, -1 for the left-hand one and 0 for both. at may be
// ±Inf. The result may be ±Inf for divergent limits.
func Limit(n Node, v string, at float64, dir int) (float64, error) {
	f := Func(n, v)
	if math.IsInf(at, 0) {
		return approach(f, func(k int) float64 { return math.Copysign(math.Pow(10, float64(k)), at) })
	}
	if dir == 0 {
		if y, err := f(at); err == nil && !math.IsInf(y, 0) {
			return round6(y), nil
		}
		left, lerr := side(f, at, -1)
		right, rerr := side(f, at, 1)
		if lerr != nil || rerr != nil {
			if lerr != nil {
				return 0, lerr
			}
			return 0, rerr
		}
		if !near(left, right) {
			return 0, ErrOneSidedMismatch
		}
		return right, nil
	}
	return side(f, at, dir)
}

func side(f func(float64) (float64, error), at float64, dir int) (float64, error) {
	return approach(f, func(k int) float64 {
		return at + float64(dir)*math.Pow(10, -float64(k))
	})
}

// approach samples f at point(2), point(3), ... and checks that the tail
// converges or diverges monotonically
func approach(f func(float64) (float64, error), point func(int) float64) (float64, error) {
	var ys []float64
	for k := 2; k <= 9; k++ {
		y, err := f(point(k))
		if err != nil || math.IsNaN(y) {
			continue
		}
		ys = append(ys, y)
	}
	if len(ys) < 3 {
		return 0, ErrNoLimit
	}
	a, b, c := ys[len(ys)-3], ys[len(ys)-2], ys[len(ys)-1]
	if math.Abs(c) > 1e6 && math.Abs(b) > math.Abs(a) && math.Abs(c) > math.Abs(b) &&
		math.Signbit(a) == math.Signbit(c) {
		return math.Copysign(math.Inf(1), c), nil
	}
	if near(b, c) {
		if math.Abs(c) < 1e-6 && math.Abs(c) <= math.Abs(b) {
			return 0, nil
		}
		return round6(c), nil
	}
	return 0, ErrNoLimit
}

func near(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= 1e-4*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// round6 keeps 6 significant digits and snaps near-integers
func round6(y float64) float64 {
	if y == 0 || math.IsInf(y, 0) {
		return y
	}
	if r := math.Round(y); math.Abs(y-r) < 1e-6 {
		return clean(r)
	}
	scale := math.Pow(10, 5-math.Floor(math.Log10(math.Abs(y))))
	return math.Round(y*scale) / scale
}

// Roots finds the real roots of n = 0 in v. Polynomials up to degree 2 are
// solved exactly; anything else is scanned for sign changes on
// [-100, 100] and refined by bisection. nonReal holds the roots of a
// quadratic with negative discriminant.
func Roots(n Node, v string) (reals []float64, nonReal []complex128, err error) {
	if p, ok := ToPoly(Simplify(n), v); ok {
		switch p.Degree() {
		case 0:
			if p.IsZero() {
				return nil, nil, ErrIdentity
			}
			return nil, nil, nil
		case 1:
			return []float64{clean(-p[0] / p[1])}, nil, nil
		case 2:
			a, b, c := p[2], p[1], p[0]
			disc := b*b - 4*a*c
			if disc < 0 {
				re := -b / (2 * a)
				im := math.Sqrt(-disc) / (2 * a)
				return nil, []complex128{complex(clean(re), -math.Abs(im)), complex(clean(re), math.Abs(im))}, nil
			}
			r1 := clean((-b - math.Sqrt(disc)) / (2 * a))
			r2 := clean((-b + math.Sqrt(disc)) / (2 * a))
			if r1 == r2 {
				return []float64{r1}, nil, nil
			}
			out := []float64{r1, r2}
			sort.Float64s(out)
			return out, nil, nil
		}
	}
	return scanRoots(Func(n, v)), nil, nil
}

// ErrIdentity is returned when the equation holds for every value
var ErrIdentity = errors.New("la ecuación se cumple para todo valor")

func scanRoots(f func(float64) (float64, error)) []float64 {
	const lo, hi, step = -100.0, 100.0, 0.05
	var out []float64
	addRoot := func(r float64) {
		r = round6(r)
		for _, have := range out {
			if math.Abs(have-r) < 1e-6 {
				return
			}
		}
		out = append(out, r)
	}
	prevX := lo
	prevY, prevErr := f(prevX)
	for x := lo + step; x <= hi+step/2; x += step {
		y, err := f(x)
		switch {
		case err != nil:
		case y == 0:
			addRoot(x)
		case prevErr == nil && math.Signbit(y) != math.Signbit(prevY) && prevY != 0:
			if r, ok := bisect(f, prevX, x); ok {
				addRoot(r)
			}
		}
		prevX, prevY, prevErr = x, y, err
	}
	sort.Float64s(out)
	return out
}

// bisect refines a bracketed sign change; it rejects poles, where |f|
// grows instead of shrinking
func bisect(f func(float64) (float64, error), a, b float64) (float64, bool) {
	fa, _ := f(a)
	for i := 0; i < 80; i++ {
		m := (a + b) / 2
		fm, err := f(m)
		if err != nil {
			return 0, false
		}
		if fm == 0 {
			return m, true
		}
		if math.Signbit(fm) == math.Signbit(fa) {
			a, fa = m, fm
		} else {
			b = m
		}
	}
	y, err := f((a + b) / 2)
	if err != nil || math.Abs(y) > 1e-6 {
		return 0, false
	}
	return (a + b) / 2, true
}
