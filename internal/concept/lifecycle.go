package concept

// MinCyclesEstablished is the number of evolution cycles a concept must
// survive before emerging -> established, alongside the member-count gate.
const MinCyclesEstablished = 2

// FadingCycles is the number of consecutive cycles a concept may spend
// under MinClusterSize before it transitions to fading.
const FadingCycles = 3

// CentralPercentile is the top fraction of concepts by salience that
// qualify for the established -> central transition.
const CentralPercentile = 0.10

// AdvanceLifecycle applies one evolution cycle's worth of stage
// transitions to concepts, given each concept's current salience.
// Concepts that reach fading with zero members are returned separately
// for deletion; they are not retained in the returned slice.
func AdvanceLifecycle(concepts []*Concept, salience map[string]float64) (kept []*Concept, deleted []*Concept) {
	salienceThreshold := topPercentileThreshold(salience, CentralPercentile)

	for _, c := range concepts {
		c.CyclesExisted++

		if len(c.Members) < MinClusterSize {
			c.BelowMinCycles++
		} else {
			c.BelowMinCycles = 0
		}

		switch c.Stage {
		case StageEmerging:
			if len(c.Members) >= 2*MinClusterSize && c.CyclesExisted >= MinCyclesEstablished {
				c.Stage = StageEstablished
			}
		case StageEstablished:
			if salience[c.ID] >= salienceThreshold {
				c.Stage = StageCentral
			}
		case StageCentral:
			if salience[c.ID] < salienceThreshold {
				c.Stage = StageEstablished
			}
		}

		if c.BelowMinCycles >= FadingCycles && c.Stage != StageFading {
			c.Stage = StageFading
		}

		if c.Stage == StageFading && len(c.Members) == 0 {
			deleted = append(deleted, c)
			continue
		}
		kept = append(kept, c)
	}
	return kept, deleted
}

func topPercentileThreshold(salience map[string]float64, pct float64) float64 {
	if len(salience) == 0 {
		return 0
	}
	values := make([]float64, 0, len(salience))
	for _, v := range salience {
		values = append(values, v)
	}
	sortFloatsDesc(values)
	idx := int(float64(len(values)) * pct)
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}

func sortFloatsDesc(v []float64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] > v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}
