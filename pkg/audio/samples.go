package audio

// ToFloat64s decodes every sample of data into dst (allocated if too short)
// and returns the resulting slice.
func ToFloat64s(format SampleFormat, dst []float64, data []byte) []float64 {
	width := int(format.BytesPerSample())
	samples := len(data) / width
	if cap(dst) < samples {
		dst = make([]float64, samples)
	}
	dst = dst[:samples]
	for idx := range dst {
		dst[idx] = format.Float64(data[idx*width:])
	}
	return dst
}

// FromFloat64s encodes samples into dst, which must be large enough.
func FromFloat64s(format SampleFormat, dst []byte, samples []float64) {
	width := int(format.BytesPerSample())
	for idx, v := range samples {
		format.PutFloat64(dst[idx*width:], v)
	}
}
