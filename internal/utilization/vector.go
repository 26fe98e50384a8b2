package utilization

// Vector holds one value per utilization class. It is a value type; copies
// are independent.
type Vector [classCount]float64

// Get returns the value for c.
func (v Vector) Get(c Class) float64 {
	return v[c]
}

// Set stores the value for c.
func (v *Vector) Set(c Class, value float64) {
	v[c] = value
}

// Scale multiplies every slot by f.
func (v *Vector) Scale(f float64) {
	for i := range v {
		v[i] *= f
	}
}

// MerchantableSum returns the sum of the four merchantable slots.
func (v Vector) MerchantableSum() float64 {
	sum := 0.0
	for _, c := range MerchantableClasses {
		sum += v[c]
	}
	return sum
}

// SetAllFromMerchantable replaces the All slot with the merchantable sum.
// The Small slot is not part of All.
func (v *Vector) SetAllFromMerchantable() {
	v[ClassAll] = v.MerchantableSum()
}

// Uniform returns a vector with every slot set to value.
func Uniform(value float64) Vector {
	var v Vector
	for i := range v {
		v[i] = value
	}
	return v
}
