// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package fusion

import (
	"math"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/sensing"
)

// fuseWeightedAverage computes an inverse-variance weighted mean. Confidence
// derives from a chi-squared goodness-of-fit test on the residuals, clamped
// to [0.5, 0.99]; the raw p-value is exposed alongside it.
func fuseWeightedAverage(group []sensing.Measurement) (Estimate, error) {
	var sumW, sumWV float64
	valid := make([]sensing.Measurement, 0, len(group))
	for _, m := range group {
		if m.Uncertainty <= 0 {
			continue
		}
		w := 1 / (m.Uncertainty * m.Uncertainty)
		sumW += w
		sumWV += w * m.Value
		valid = append(valid, m)
	}

	if len(valid) == 0 || sumW == 0 {
		return Estimate{}, &errors.Error{
			Message:         "no measurements with valid uncertainty",
			Kind:            errors.NoValidUncertainty,
			MeasurementType: group[0].Type,
		}
	}

	mean := sumWV / sumW

	var chi2 float64
	for _, m := range valid {
		r := (m.Value - mean) / m.Uncertainty
		chi2 += r * r
	}

	dof := len(valid) - 1
	confidence := 0.95 // convention for a single valid measurement
	pValue := math.NaN()
	if dof > 0 {
		pValue = chiSquaredPValue(chi2, dof)
		confidence = math.Min(math.Max(pValue, 0.5), 0.99)
	}

	details := map[string]float64{"chiSquared": chi2}
	if !math.IsNaN(pValue) {
		details["chiSquaredPValue"] = pValue
	}

	return Estimate{
		Value:       mean,
		Uncertainty: 1 / math.Sqrt(sumW),
		Confidence:  confidence,
		Sensors:     sensorIDs(valid),
		Details:     details,
	}, nil
}

// chiSquaredPValue is the survival function of the chi-squared distribution
// with the given degrees of freedom, i.e. Q(dof/2, x/2).
func chiSquaredPValue(x float64, dof int) float64 {
	if dof <= 0 || x < 0 {
		return 1
	}
	return gammaQ(float64(dof)/2, x/2)
}

// gammaQ is the regularized upper incomplete gamma function Q(a, x),
// evaluated by series expansion for small x and by continued fraction
// otherwise. Numerical Recipes 6.2.
func gammaQ(a, x float64) float64 {
	switch {
	case x <= 0:
		return 1
	case x < a+1:
		return 1 - gammaPSeries(a, x)
	default:
		return gammaQFraction(a, x)
	}
}

func gammaPSeries(a, x float64) float64 {
	term := 1 / a
	sum := term
	for n := 1; n < 500; n++ {
		term *= x / (a + float64(n))
		sum += term
		if math.Abs(term) < math.Abs(sum)*1e-15 {
			break
		}
	}
	lg, _ := math.Lgamma(a)
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

func gammaQFraction(a, x float64) float64 {
	const tiny = 1e-300
	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i < 500; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < 1e-15 {
			break
		}
	}
	lg, _ := math.Lgamma(a)
	return math.Exp(-x+a*math.Log(x)-lg) * h
}
