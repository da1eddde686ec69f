package domain

import "math"

// MileageBucket es uno de los 7 rangos fijos de kilometraje usados para afinar la cohorte.
// Los rangos son (lower, upper]: excluyen el límite inferior e incluyen el superior,
// salvo BucketZero (exactamente 0 km) y BucketOver120k (sin límite superior).
type MileageBucket int

const (
	BucketZero     MileageBucket = iota // {0}
	BucketUpTo10k                       // (0, 10000]
	BucketUpTo30k                       // (10000, 30000]
	BucketUpTo50k                       // (30000, 50000]
	BucketUpTo80k                       // (50000, 80000]
	BucketUpTo120k                      // (80000, 120000]
	BucketOver120k                      // (120000, ∞)
)

// MileageBuckets lista todos los buckets en orden ascendente.
var MileageBuckets = []MileageBucket{
	BucketZero, BucketUpTo10k, BucketUpTo30k, BucketUpTo50k,
	BucketUpTo80k, BucketUpTo120k, BucketOver120k,
}

// bucketUpper es el límite superior inclusivo de cada bucket.
var bucketUpper = [...]int{0, 10_000, 30_000, 50_000, 80_000, 120_000, math.MaxInt}

// BucketFor clasifica un kilometraje en su bucket. Kilometrajes negativos
// son una violación del contrato del llamador; se tratan como 0.
func BucketFor(mileage int) MileageBucket {
	for _, b := range MileageBuckets {
		if mileage <= bucketUpper[b] {
			return b
		}
	}
	return BucketOver120k
}

// Contains devuelve true si el kilometraje cae dentro del bucket.
func (b MileageBucket) Contains(mileage int) bool {
	if b == BucketZero {
		return mileage == 0
	}
	return mileage > bucketUpper[b-1] && mileage <= bucketUpper[b]
}

// Bounds devuelve los límites (lower, upper] del bucket. Para BucketOver120k upper es -1.
func (b MileageBucket) Bounds() (lower, upper int) {
	switch b {
	case BucketZero:
		return 0, 0
	case BucketOver120k:
		return bucketUpper[b-1], -1
	default:
		return bucketUpper[b-1], bucketUpper[b]
	}
}

func (b MileageBucket) String() string {
	switch b {
	case BucketZero:
		return "0 km"
	case BucketUpTo10k:
		return "0-10,000 km"
	case BucketUpTo30k:
		return "10,000-30,000 km"
	case BucketUpTo50k:
		return "30,000-50,000 km"
	case BucketUpTo80k:
		return "50,000-80,000 km"
	case BucketUpTo120k:
		return "80,000-120,000 km"
	default:
		return "over 120,000 km"
	}
}
